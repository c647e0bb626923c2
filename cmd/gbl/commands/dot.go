package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/pkg/ast"
	"github.com/l3aro/go-bytecode-lift/pkg/export"
	"github.com/l3aro/go-bytecode-lift/pkg/vm"
)

// dotCmd represents the dot command
var dotCmd = &cobra.Command{
	Use:   "dot <program>",
	Short: "Render a program's lifted graph as Graphviz DOT",
	Long: `Assembles a YAML stack machine listing, lifts it, and writes the lifted
control flow graph as a Graphviz digraph to stdout. Use --raw to render the
unlifted instruction graph instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		lp, err := loadProgram(args[0])
		if err != nil {
			return err
		}
		if raw {
			return export.WriteDOT(os.Stdout, lp.flow, lp.program.Name, vm.Instruction.String)
		}

		lifted, err := ast.Lift(lp.flow, lp.data, vm.Arch{})
		if err != nil {
			return fmt.Errorf("lifting %q: %w", lp.program.Name, err)
		}
		return export.WriteDOT(os.Stdout, lifted, lp.program.Name, ast.Format[vm.Instruction])
	},
}

func init() {
	dotCmd.Flags().Bool("raw", false, "Render the unlifted instruction graph")
}
