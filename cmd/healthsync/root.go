package main

import (
	"context"
	"fmt"
	"os"

	"codeberg.org/mutker/healthsync/internal/config"
	"codeberg.org/mutker/healthsync/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "healthsync",
	Short: "healthsync collects daily health metrics and syncs them to the backend",
	Long: "healthsync reads steps, activity, heart rate, sleep, weight and hydration from the " +
		"platform health store, scores each day and uploads the records. It also drives " +
		"food, label and pill scans against the same backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(
			config.WithConfigFile(configPath),
			config.WithFlags(cmd.Flags()),
		)
		if err != nil {
			return err
		}
		cfg = loaded

		logger.Init(cfg.LogLevel, logger.IsService())
		logger.Debug().Msg("Config loaded")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to healthsync.toml")
	flags.String("log-level", "", "Log level: debug, info, warning or error")
	flags.Duration("interval", 0, "Daemon sync interval")
	flags.String("pid-file", "", "Daemon PID file")
	flags.String("user-id", "", "User ID for scan requests")
	flags.String("platform", "", "Host platform: ios, android or other")
	flags.String("export", "", "HealthKit JSON export to read instead of the mock source")
	flags.String("api-url", "", "Backend base URL")
	flags.String("token", "", "Backend bearer token")
	flags.String("timezone", "", "IANA timezone used for day boundaries")
	flags.String("store-backend", "", "Local state backend: sqlite or badger")
	flags.String("store-path", "", "Local state path")
	flags.String("cache-backend", "", "Scan history cache: memory or redis")
	flags.String("redis-addr", "", "Redis address for the redis cache backend")
	flags.Bool("metrics", false, "Expose Prometheus metrics while running the daemon")
	flags.String("metrics-addr", "", "Metrics listen address")
}

// withApp builds the components for one command and closes them after run
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return run(ctx, a)
}

// withBackend is withApp for commands that need the backend
func withBackend(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.online(); err != nil {
			return err
		}
		return run(ctx, a)
	})
}
