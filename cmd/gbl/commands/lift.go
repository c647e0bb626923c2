package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/internal/config"
	"github.com/l3aro/go-bytecode-lift/internal/log"
	"github.com/l3aro/go-bytecode-lift/pkg/ast"
	"github.com/l3aro/go-bytecode-lift/pkg/cache"
	"github.com/l3aro/go-bytecode-lift/pkg/export"
	"github.com/l3aro/go-bytecode-lift/pkg/vm"
)

// liftCmd represents the lift command
var liftCmd = &cobra.Command{
	Use:   "lift <program>",
	Short: "Lift a program into an SSA statement graph",
	Long: `Assembles a YAML stack machine listing, derives its control and data flow
graphs, and lifts every basic block into SSA-form statements.
Outputs the lifted graph with blocks, edges, and regions; the text output
format lists blocks and edges only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLift(args[0])
	},
}

func runLift(path string) error {
	logger := log.Default()

	lp, err := loadProgram(path)
	if err != nil {
		return err
	}

	var store *cache.ResultCache
	var key string
	if conf.CacheEnabled {
		key, err = cache.Key(struct {
			Instructions []vm.Instruction
			Parameters   []string
		}{lp.instrs, lp.program.Parameters})
		if err != nil {
			return err
		}
		store = cache.New(conf.CacheMaxEntries)
		if err := store.LoadFile(conf.CacheFilePath()); err != nil {
			logger.Warn("ignoring unreadable result cache", "path", conf.CacheFilePath(), "error", err)
		}
		if doc, err := store.Get(key); err == nil {
			logger.Debug("lift result served from cache", "program", lp.program.Name, "key", key)
			return printDocument(doc)
		}
	}

	lifted, err := ast.Lift(lp.flow, lp.data, vm.Arch{})
	if err != nil {
		return fmt.Errorf("lifting %q: %w", lp.program.Name, err)
	}
	logger.Debug("lifted program", "program", lp.program.Name,
		"blocks", lifted.Len(), "instructions", len(lp.instrs))

	doc := export.Document(lifted, lp.program.Name, ast.Format[vm.Instruction])

	if store != nil {
		store.Put(key, doc)
		if err := store.SaveFile(conf.CacheFilePath()); err != nil {
			logger.Warn("could not persist result cache", "path", conf.CacheFilePath(), "error", err)
		}
	}
	return printDocument(doc)
}

// printDocument renders a lifted graph per the configured output format.
func printDocument(doc *export.CFGDocument) error {
	if conf.Output == config.FormatText {
		for _, block := range doc.Blocks {
			fmt.Fprintf(os.Stdout, "block_%d:\n", block.Offset)
			for _, stmt := range block.Statements {
				fmt.Fprintf(os.Stdout, "  %s\n", stmt)
			}
		}
		for _, edge := range doc.Edges {
			fmt.Fprintf(os.Stdout, "%d -> %d (%s)\n", edge.Source, edge.Target, edge.Type)
		}
		return nil
	}
	return printJSON(doc)
}
