package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"parafile/internal/logging"
	"parafile/internal/pipeline"
	"parafile/internal/queue"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>",
		Short: "Organize a single document without starting the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			cat, err := cfg.Catalog()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				mgr := pipeline.NewManager(cfg, cat, store, logger)
				item, err := mgr.RunOnce(cmd.Context(), path)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch item.Status {
				case queue.StatusCompleted:
					fmt.Fprintf(out, "Organized %s into %s\n", filepath.Base(path), item.FinalPath)
				case queue.StatusSkipped:
					fmt.Fprintf(out, "Skipped %s: %s\n", filepath.Base(path), item.ErrorMessage)
				default:
					return fmt.Errorf("processing %s failed (%s): %s", filepath.Base(path), item.ErrorKind, item.ErrorMessage)
				}
				return nil
			})
		},
	}
}
