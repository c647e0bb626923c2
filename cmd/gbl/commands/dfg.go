package commands

import (
	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/pkg/export"
	"github.com/l3aro/go-bytecode-lift/pkg/vm"
)

// dfgCmd represents the dfg command
var dfgCmd = &cobra.Command{
	Use:   "dfg <program>",
	Short: "Print the data flow graph of a program",
	Long: `Assembles a YAML stack machine listing and prints its data flow graph:
per-instruction stack and variable dependencies, external sources, and the
reverse dependants index.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lp, err := loadProgram(args[0])
		if err != nil {
			return err
		}
		doc := export.DocumentDFG(lp.data, lp.program.Name, vm.Instruction.String)
		return printJSON(doc)
	},
}
