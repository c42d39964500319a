package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/metrics"
	"codeberg.org/mutker/healthsync/internal/pid"
	"codeberg.org/mutker/healthsync/internal/sync"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync on an interval until stopped",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			if err := pid.Write(cfg.PIDFile); err != nil {
				return err
			}
			defer func() {
				if err := pid.Remove(cfg.PIDFile); err != nil {
					logger.Warn().Err(err).Msg("Failed to remove pid file")
				}
			}()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go handleSignals(ctx, cancel)

			g, ctx := errgroup.WithContext(ctx)
			if cfg.Metrics.Enabled {
				g.Go(func() error {
					return metrics.Serve(ctx, metrics.Config{
						Enabled: true,
						Listen:  cfg.Metrics.Listen,
					}, a.registry, logger.Default().With("metrics"))
				})
			}
			g.Go(func() error {
				return loop(ctx, a)
			})

			err := g.Wait()
			logger.Info().Msg("Exiting...")
			return err
		})
	},
}

func loop(ctx context.Context, a *app) error {
	if cfg.Interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, cfg.Interval)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", cfg.Interval).Msg("Sync daemon started")
	runCycle(ctx, a)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runCycle(ctx, a)
		}
	}
}

// runCycle performs one scheduled sync. Failures are logged; the next
// tick tries again with the pending records.
func runCycle(ctx context.Context, a *app) {
	res := a.sync.SyncBatch(ctx, sync.Options{})
	switch {
	case !res.Success:
		logger.ErrorWithCode(res.Err).Str("message", res.Message).Msg("Sync cycle failed")
	case res.Disabled, res.Throttled:
		logger.Debug().Bool("disabled", res.Disabled).Bool("throttled", res.Throttled).Msg("Sync cycle skipped")
	default:
		logger.Info().Int("synced", res.Synced).Int("skipped", res.Skipped).Msg("Sync cycle completed")
	}
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
