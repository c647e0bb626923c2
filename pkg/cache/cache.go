// Package cache provides an LRU cache for lift results with msgpack disk
// persistence. Keys are derived from the program being lifted, so an
// unchanged program whose result is still cached is not lifted again across
// CLI invocations; entries evicted by the LRU bound are lifted anew.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-bytecode-lift/pkg/export"
)

// ErrNotFound is returned when a key has no cached result.
var ErrNotFound = errors.New("lift result not found")

// Key derives a stable cache key from any hashable description of the input
// program (the assembled instruction listing plus parameters).
func Key(input interface{}) (string, error) {
	h, err := hashstructure.Hash(input, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash program: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// entry pairs a key with its cached document for persistence.
type entry struct {
	Key      string              `msgpack:"key"`
	Document *export.CFGDocument `msgpack:"document"`
}

// ResultCache is an in-memory LRU over lift documents. The zero value is not
// usable; construct with New.
type ResultCache struct {
	mu      sync.Mutex
	items   map[string]*export.CFGDocument
	order   []string // least recently used first
	maxSize int
}

// New creates a cache bounded to maxSize entries; zero means unbounded.
func New(maxSize int) *ResultCache {
	return &ResultCache{
		items:   make(map[string]*export.CFGDocument),
		maxSize: maxSize,
	}
}

// Get returns the cached document for key, or ErrNotFound.
func (c *ResultCache) Get(key string) (*export.CFGDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	c.touch(key)
	return doc, nil
}

// Put stores a document, evicting the least recently used entry when the
// cache is full.
func (c *ResultCache) Put(key string, doc *export.CFGDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		c.items[key] = doc
		c.touch(key)
		return
	}
	c.items[key] = doc
	c.order = append(c.order, key)
	for c.maxSize > 0 && len(c.items) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// touch moves key to the most recently used position.
func (c *ResultCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// Save writes the cache to w as msgpack, least recently used first so Load
// restores the same ordering.
func (c *ResultCache) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]entry, 0, len(c.items))
	for _, key := range c.order {
		entries = append(entries, entry{Key: key, Document: c.items[key]})
	}
	return msgpack.NewEncoder(w).Encode(entries)
}

// Load replaces the cache contents from r.
func (c *ResultCache) Load(r io.Reader) error {
	var entries []entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("decode cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*export.CFGDocument, len(entries))
	c.order = c.order[:0]
	for _, e := range entries {
		c.items[e.Key] = e.Document
		c.order = append(c.order, e.Key)
	}
	return nil
}

// SaveFile persists the cache to path, creating parent directories.
func (c *ResultCache) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()
	return c.Save(f)
}

// LoadFile restores the cache from path. A missing file is not an error.
func (c *ResultCache) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}
