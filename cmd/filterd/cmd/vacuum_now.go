package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nullset-labs/filterd/internal/manager"
	"github.com/nullset-labs/filterd/pkg/logger"
)

// vacuumNowCommand builds a fresh manager over a data directory, runs
// discovery and one forced vacuum pass with no workers attached, then
// closes the manager. A fresh manager holds only the genesis snapshot, so
// the pass finds no retired snapshots to reclaim; retired deletions held
// in memory by another running filterd process are not reached.
func (c *CLI) vacuumNowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum-now",
		Short: "Run discovery and one forced vacuum pass in a fresh manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := logger.New(cfg.Log)

			mgr := manager.New(manager.Options{
				DataDir:       cfg.DataDir,
				DefaultConfig: cfg.Filter,
				WarnThreshold: cfg.Vacuum.WarnThreshold,
				Logger:        log,
			})

			if err := mgr.Discover(); err != nil {
				return fmt.Errorf("discovery: %w", err)
			}

			mgr.VacuumNow()
			log.Info("vacuum complete", "head_version", mgr.HeadVersion())

			return mgr.Close()
		},
	}
}
