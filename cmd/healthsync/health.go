package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/healthsync/internal/health"
	"github.com/spf13/cobra"
)

var todayDate string

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the aggregated record for today",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			day, err := parseDay(todayDate, a)
			if err != nil {
				return err
			}

			record, report := a.aggregator.Day(ctx, day)
			if missing := report.Unavailable(); len(missing) > 0 {
				names := make([]string, len(missing))
				for i, m := range missing {
					names[i] = string(m)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Unavailable: %s\n", strings.Join(names, ", "))
			}
			return printJSON(cmd.OutOrStdout(), record.WithScore())
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show today's health score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			day, err := parseDay(todayDate, a)
			if err != nil {
				return err
			}
			record, _ := a.aggregator.Day(ctx, day)
			fmt.Fprintf(cmd.OutOrStdout(), "Health score %s: %d\n", record.Date, health.Score(record))
			return nil
		})
	},
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Summarize the last seven days",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			last := a.clock.Now().In(a.loc)
			records := a.aggregator.Range(ctx, last.AddDate(0, 0, -6), last)
			return printJSON(cmd.OutOrStdout(), health.Weekly(records))
		})
	},
}

// parseDay resolves --date in the configured timezone, defaulting to now
func parseDay(date string, a *app) (time.Time, error) {
	if date == "" {
		return a.clock.Now().In(a.loc), nil
	}
	t, err := time.ParseInLocation(health.DateLayout, date, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
	}
	return t, nil
}

func init() {
	rootCmd.AddCommand(todayCmd, scoreCmd, weekCmd)
	todayCmd.Flags().StringVar(&todayDate, "date", "", "Date YYYY-MM-DD (default today)")
	scoreCmd.Flags().StringVar(&todayDate, "date", "", "Date YYYY-MM-DD (default today)")
}
