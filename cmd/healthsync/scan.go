package main

import (
	"context"
	"fmt"
	"os"

	"codeberg.org/mutker/healthsync/internal/errors"
	"codeberg.org/mutker/healthsync/internal/logger"
	"codeberg.org/mutker/healthsync/internal/scan"
	"github.com/spf13/cobra"
)

var (
	scanNoHistory bool
	scanWait      bool
	pillHints     scan.PillHints

	historyLimit   int
	historyType    string
	historyNoCache bool

	trendsRange string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan food, product labels and pills",
}

var scanBarcodeCmd = &cobra.Command{
	Use:   "barcode <code>",
	Short: "Look up a product by barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, func(ctx context.Context, s *scan.Service) (scan.Result, error) {
			return s.ScanBarcode(ctx, args[0], !scanNoHistory)
		})
	},
}

var scanPhotoCmd = &cobra.Command{
	Use:   "photo <image>",
	Short: "Analyze a photo of a meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runScan(cmd, func(ctx context.Context, s *scan.Service) (scan.Result, error) {
			return s.ScanFoodPhoto(ctx, image, !scanNoHistory)
		})
	},
}

var scanLabelCmd = &cobra.Command{
	Use:   "label <image>",
	Short: "Read a nutrition or ingredient label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runScan(cmd, func(ctx context.Context, s *scan.Service) (scan.Result, error) {
			return s.ScanProductLabel(ctx, image, !scanNoHistory)
		})
	},
}

var scanPillCmd = &cobra.Command{
	Use:   "pill <image>",
	Short: "Identify a pill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runScan(cmd, func(ctx context.Context, s *scan.Service) (scan.Result, error) {
			return s.ScanPill(ctx, image, pillHints)
		})
	},
}

var scanConfirmCmd = &cobra.Command{
	Use:   "confirm <scan-id> <rxcui>",
	Short: "Confirm a pill identification and add it to medications",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			res, err := scan.WithRetry(ctx, a.scan, func(ctx context.Context) (scan.PillConfirmation, error) {
				return a.scan.ConfirmPill(ctx, args[0], args[1])
			})
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			if !res.Success {
				return fmt.Errorf("confirmation rejected: %s", res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confirmed. Medication added: %t\n", res.MedicationAdded)
			return nil
		})
	},
}

var scanDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a scan from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("scan id", args[0])
		if err != nil {
			return err
		}
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			res, err := a.scan.DeleteScan(ctx, id)
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %d\n", id)
			return nil
		})
	},
}

var scanHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			// the cache holds the unfiltered page only
			useCache := !historyNoCache && historyType == "" && historyLimit == 0
			res, err := scan.WithRetry(ctx, a.scan, func(ctx context.Context) (scan.HistoryResult, error) {
				return a.scan.History(ctx, historyLimit, scan.Type(historyType), useCache)
			})
			if err != nil {
				return err
			}
			if res.Err != nil {
				return res.Err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var scanClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop the cached scan history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			if err := a.scan.ClearCache(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scan history cache cleared")
			return nil
		})
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Summarize health scores of recent scans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := scan.ParseRange(trendsRange)
		if err != nil {
			return err
		}
		return withBackend(cmd, func(ctx context.Context, a *app) error {
			trends, err := a.scan.HealthTrends(ctx, r)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), trends)
		})
	},
}

// runScan retries transient failures and, with --wait, blocks for a rate
// limit slot instead of failing
func runScan(cmd *cobra.Command, fn func(ctx context.Context, s *scan.Service) (scan.Result, error)) error {
	return withBackend(cmd, func(ctx context.Context, a *app) error {
		attempt := func(ctx context.Context) (scan.Result, error) {
			return scan.WithRetry(ctx, a.scan, func(ctx context.Context) (scan.Result, error) {
				return fn(ctx, a.scan)
			})
		}

		var (
			res scan.Result
			err error
		)
		if scanWait {
			res, err = scan.WithWait(ctx, a.scan, attempt)
		} else {
			res, err = attempt(ctx)
		}
		if err != nil {
			return err
		}
		if res.Err != nil {
			return res.Err
		}

		logger.Debug().Dur("processing_time", res.ProcessingTime).Msg("Scan result received")
		return printJSON(cmd.OutOrStdout(), res.Data)
	})
}

func parseInt64Arg(name, value string) (int64, error) {
	var v int64
	if _, err := fmt.Sscan(value, &v); err != nil || v <= 0 {
		return 0, errors.New().WithMessage(errors.ErrInvalidArgument, fmt.Sprintf("invalid %s %q", name, value))
	}
	return v, nil
}

func init() {
	rootCmd.AddCommand(scanCmd, trendsCmd)
	scanCmd.AddCommand(
		scanBarcodeCmd, scanPhotoCmd, scanLabelCmd, scanPillCmd,
		scanConfirmCmd, scanDeleteCmd, scanHistoryCmd, scanClearCacheCmd,
	)

	scanCmd.PersistentFlags().BoolVar(&scanNoHistory, "no-history", false, "Do not store the scan in history")
	scanCmd.PersistentFlags().BoolVar(&scanWait, "wait", false, "Wait for a rate limit slot instead of failing")

	scanPillCmd.Flags().StringVar(&pillHints.Imprint, "imprint", "", "Text or numbers printed on the pill")
	scanPillCmd.Flags().StringVar(&pillHints.Color, "color", "", "Pill color")
	scanPillCmd.Flags().StringVar(&pillHints.Shape, "shape", "", "Pill shape")

	scanHistoryCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum scans to fetch (default from config)")
	scanHistoryCmd.Flags().StringVar(&historyType, "type", "", "Only this scan type")
	scanHistoryCmd.Flags().BoolVar(&historyNoCache, "no-cache", false, "Bypass the cached history")

	trendsCmd.Flags().StringVar(&trendsRange, "range", "week", "day, week, month or all")
}
