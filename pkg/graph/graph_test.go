package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortIDs(t *testing.T) {
	ids := []int64{20, -3, 0, 7}
	assert.Equal(t, []int64{-3, 0, 7, 20}, SortIDs(ids))
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrInvariantViolation, 42, "a node with offset %d already exists", 42)
	assert.Equal(t, "invariant_violation at offset 42: a node with offset 42 already exists", err.Error())
}

func TestErrorUnwrapping(t *testing.T) {
	inner := NewError(ErrInconsistentInput, 7, "no data flow node for instruction")
	wrapped := fmt.Errorf("lifting %q: %w", "demo", inner)

	var gerr *Error
	require.True(t, errors.As(wrapped, &gerr))
	assert.Equal(t, ErrInconsistentInput, gerr.Kind)
	assert.Equal(t, int64(7), gerr.Offset)
}
