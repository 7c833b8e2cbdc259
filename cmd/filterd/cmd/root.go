// Package cmd implements filterd's cobra command tree, grounded on the
// alert-history service's internal/infrastructure/migrations CLI struct
// pattern: a receiver struct wiring cobra commands instead of package
// level globals.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nullset-labs/filterd/internal/config"
)

const (
	serviceName    = "filterd"
	serviceVersion = "0.1.0"
)

// CLI wires filterd's command tree. configPath is bound as a persistent
// flag shared by every subcommand.
type CLI struct {
	configPath string
}

// NewCLI constructs an empty CLI.
func NewCLI() *CLI {
	return &CLI{}
}

// GetRootCommand returns the root "filterd" command with its
// subcommands attached.
func (c *CLI) GetRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     serviceName,
		Short:   "filterd manages a registry of named bloom filters",
		Version: serviceVersion,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file (optional)")

	root.AddCommand(
		c.serveCommand(),
		c.vacuumNowCommand(),
	)

	return root
}

// Execute runs the CLI.
func (c *CLI) Execute() error {
	return c.GetRootCommand().Execute()
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}
