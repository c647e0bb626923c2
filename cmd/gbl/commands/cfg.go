package commands

import (
	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/pkg/export"
	"github.com/l3aro/go-bytecode-lift/pkg/vm"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <program>",
	Short: "Print the control flow graph of a program",
	Long: `Assembles a YAML stack machine listing and prints its control flow graph:
basic blocks, typed edges, and the entrypoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lp, err := loadProgram(args[0])
		if err != nil {
			return err
		}
		doc := export.Document(lp.flow, lp.program.Name, vm.Instruction.String)
		return printJSON(doc)
	},
}
