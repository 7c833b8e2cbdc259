package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nullset-labs/filterd/internal/adminserver"
	"github.com/nullset-labs/filterd/internal/manager"
	"github.com/nullset-labs/filterd/pkg/logger"
)

// serveCommand runs discovery, starts the manager's vacuum loop, and
// serves the admin HTTP surface until SIGINT/SIGTERM, mirroring
// cmd/server/main.go's signal-handling shutdown sequence.
func (c *CLI) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the filter manager daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := logger.New(cfg.Log)
			log.Info("starting filterd", "service", serviceName, "version", serviceVersion, "data_dir", cfg.DataDir)

			mgr := manager.New(manager.Options{
				DataDir:       cfg.DataDir,
				DefaultConfig: cfg.Filter,
				WarnThreshold: cfg.Vacuum.WarnThreshold,
				Logger:        log,
			})

			if err := mgr.Discover(); err != nil {
				return fmt.Errorf("discovery: %w", err)
			}
			log.Info("discovery complete", "active_filters", len(mgr.List("")))

			mgr.StartVacuum(cfg.Vacuum.Interval)

			var admin *adminserver.Server
			if cfg.Admin.Enabled {
				admin = adminserver.New(adminserver.Config{Addr: cfg.Admin.Addr}, mgr, mgr.MetricsRegistry(), log)
				admin.MarkReady()
				go func() {
					if err := admin.ListenAndServe(); err != nil {
						log.Error("admin server failed", "error", err)
					}
				}()
				log.Info("admin server listening", "addr", cfg.Admin.Addr)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit
			log.Info("shutting down")

			if admin != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := admin.Shutdown(ctx); err != nil {
					log.Error("admin server shutdown error", "error", err)
				}
			}

			return mgr.Close()
		},
	}
}
