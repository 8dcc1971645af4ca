package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"parafile/internal/daemon"
	"parafile/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := newConsole(cmd.OutOrStdout())
				running := daemon.Probe(cfg)

				out.header("Parafile")
				out.field(boolKind(running), "Daemon", runningLabel(running))
				out.field(boolKind(cfg.EnableOrganization), "Organization", enabledLabel(cfg.EnableOrganization))
				out.field(statusInfo, "Watched folder", cfg.Paths.WatchedFolder)
				out.field(statusInfo, "Queue database", store.Path())
				out.field(statusInfo, "Lock file", daemon.LockPath(cfg))
				out.blank()

				out.table(
					[]column{{name: "Queue"}, {name: "Count", numeric: true}},
					buildHealthRows(health),
				)
				return nil
			})
		},
	}
}

func buildHealthRows(health queue.HealthSummary) [][]string {
	return [][]string{
		{"pending", strconv.Itoa(health.Pending)},
		{"processing", strconv.Itoa(health.Processing)},
		{"completed", strconv.Itoa(health.Completed)},
		{"skipped", strconv.Itoa(health.Skipped)},
		{"failed", strconv.Itoa(health.Failed)},
		{"total", strconv.Itoa(health.Total)},
	}
}

func boolKind(value bool) statusKind {
	if value {
		return statusOK
	}
	return statusWarn
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
