// Package commands provides the CLI commands for the go-bytecode-lift tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/internal/config"
	"github.com/l3aro/go-bytecode-lift/internal/log"
)

var (
	cfgFile string
	verbose bool
	noCache bool

	conf *config.Config
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gbl",
	Short: "go-bytecode-lift - Lift stack machine programs into SSA form",
	Long: `go-bytecode-lift derives control and data flow graphs from stack machine
programs and lifts them into a graph of SSA-form statements.

Commands:
  lift        Lift a program and print its SSA statement graph
  cfg         Print the control flow graph of a program
  dfg         Print the data flow graph of a program
  dot         Render a program's lifted graph as Graphviz DOT
  init        Initialize gbl configuration interactively

Use "gbl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			conf, err = config.LoadFromFile(cfgFile)
		} else {
			conf, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if verbose {
			conf.Verbose = true
		}
		if noCache {
			conf.CacheEnabled = false
		}

		logger := log.Default()
		if conf.Verbose {
			logger.SetLevel(log.DebugLevel)
		}
		logger.SetJSONOutput(conf.JSONLogs)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file (overrides discovery)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable the lift result cache")

	RootCmd.AddCommand(liftCmd)
	RootCmd.AddCommand(cfgCmd)
	RootCmd.AddCommand(dfgCmd)
	RootCmd.AddCommand(dotCmd)
	RootCmd.AddCommand(initCmd)
}
