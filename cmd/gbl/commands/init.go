package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-bytecode-lift/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gbl configuration interactively",
	Long: `Guides you through setting up gbl configuration step by step.
Creates a config file with output format and result cache settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	conf := config.DefaultConfig()

	outputChoice := string(conf.Output)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Description("How command results are rendered").
				Options(
					huh.NewOption("JSON", "json"),
					huh.NewOption("Text", "text"),
				).
				Value(&outputChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	conf.Output = config.OutputFormat(outputChoice)

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cache lift results between runs?").
				Value(&conf.CacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if conf.CacheEnabled {
		maxEntries := strconv.Itoa(conf.CacheMaxEntries)
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Cache directory").
					Placeholder(conf.CacheDir).
					Value(&conf.CacheDir),
				huh.NewInput().
					Title("Maximum cached results").
					Placeholder(maxEntries).
					Value(&maxEntries),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if n, err := strconv.Atoi(maxEntries); err == nil && n > 0 {
			conf.CacheMaxEntries = n
		}
	}

	scope := "project"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the config be written?").
				Options(
					huh.NewOption("Project (./.gbl/config.yaml)", "project"),
					huh.NewOption("Global (~/.gbl/config.yaml)", "global"),
				).
				Value(&scope),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	path := ".gbl/config.yaml"
	if scope == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".gbl", "config.yaml")
	}
	if err := conf.Save(path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
