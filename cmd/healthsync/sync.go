package main

import (
	"context"
	"fmt"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/sync"
	"github.com/spf13/cobra"
)

var (
	syncDays   int
	syncForce  bool
	syncToday  bool
	historyDay int
	deleteDays int
	deleteAll  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload recent daily records to the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			var res sync.Result
			if syncToday {
				res = a.sync.SyncToday(ctx, syncForce)
			} else {
				res = a.sync.SyncBatch(ctx, sync.Options{DaysBack: syncDays, Force: syncForce})
			}
			return reportSync(cmd, res)
		})
	},
}

func reportSync(cmd *cobra.Command, res sync.Result) error {
	out := cmd.OutOrStdout()
	switch {
	case !res.Success:
		return res.Err
	case res.Disabled:
		fmt.Fprintln(out, "Sync is disabled. Run `healthsync enable` to turn it on.")
	case res.Throttled:
		fmt.Fprintln(out, "Synced recently, skipping. Use --force to sync anyway.")
	default:
		fmt.Fprintf(out, "Synced: %d\n", res.Synced)
		if res.Skipped > 0 {
			fmt.Fprintf(out, "Skipped: %d\n", res.Skipped)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(out, "Rejected %s: %s\n", e.RecordedAt, e.Error)
		}
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local sync state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.sync.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Enabled: %t\n", st.Enabled)
			fmt.Fprintf(out, "Source: %s\n", a.adapter.Name())
			fmt.Fprintf(out, "Last sync: %s\n", formatTime(st.LastSync, a.loc))
			if st.HasSynced {
				fmt.Fprintf(out, "Next sync allowed: %s\n", formatTime(st.NextAllowed, a.loc))
			}
			fmt.Fprintf(out, "Pending records: %d\n", st.Pending)
			return nil
		})
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn automatic sync on",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setEnabled(cmd, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn automatic sync off",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setEnabled(cmd, false)
	},
}

func setEnabled(cmd *cobra.Command, enabled bool) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.sync.SetEnabled(ctx, enabled); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync %s\n", state)
		return nil
	})
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show daily records stored by the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			page, err := a.sync.History(ctx, historyDay)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		})
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show today's stored record and streaks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			latest, err := a.sync.Latest(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), latest)
		})
	},
}

var deleteRemoteCmd = &cobra.Command{
	Use:   "delete-remote",
	Short: "Delete records stored by the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !deleteAll && deleteDays <= 0 {
			return errors.New().WithMessage(errors.ErrInvalidArgument, "pass --days N or --all")
		}
		days := deleteDays
		if deleteAll {
			days = 0
		}
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			n, err := a.sync.DeleteRemote(ctx, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %d\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, statusCmd, enableCmd, disableCmd, historyCmd, latestCmd, deleteRemoteCmd)

	syncCmd.Flags().IntVar(&syncDays, "days", 0, "Days to collect, counting today (default from config)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Ignore the sync throttle")
	syncCmd.Flags().BoolVar(&syncToday, "today", false, "Upload only today's record")

	historyCmd.Flags().IntVar(&historyDay, "days", 7, "Days of history to fetch")

	deleteRemoteCmd.Flags().IntVar(&deleteDays, "days", 0, "Delete the last N days")
	deleteRemoteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every stored record")
}
