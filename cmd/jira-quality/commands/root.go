package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jira-quality/internal/changelog"
	"jira-quality/internal/config"
	"jira-quality/internal/inference"
	"jira-quality/internal/jira"
	"jira-quality/internal/logging"
	"jira-quality/internal/quality"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "jira-quality",
	Short: "Fetch a Jira project and report on its data quality",
	Long: `jira-quality downloads every issue of a Jira Cloud project in parallel date partitions,
stores the raw snapshot locally and runs hierarchy, date and workflow checks against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := logging.Init(verbose, cfg.LogDir); err != nil {
			log.Warn().Err(err).Msg("File logging disabled")
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("jira-quality starting")
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Version = Version
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newAnalyzer wires the configured date mapping and, when credentials are
// present, remote status resolution. The returned func releases the store.
func newAnalyzer(ctx context.Context) (*quality.Analyzer, func(), error) {
	mapping, err := inference.LoadFieldMapping(cfg.FieldMapFile)
	if err != nil {
		return nil, nil, err
	}
	opts := []quality.Option{quality.WithGuesser(inference.NewGuesser(mapping))}
	cleanup := func() {}

	if err := cfg.Jira.Validate(); err != nil {
		log.Info().Msg("Jira credentials not set, status durations use embedded changelogs only")
		return quality.NewAnalyzer(opts...), cleanup, nil
	}

	var store changelog.Store = changelog.NewMemoryStore(cfg.StatusCacheTTL)
	if cfg.RedisURL != "" {
		redisStore, err := changelog.NewRedisStore(ctx, cfg.RedisURL, cfg.StatusCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory status cache")
		} else {
			store = redisStore
			cleanup = func() { _ = redisStore.Close() }
		}
	}

	resolver := changelog.NewResolver(jira.NewClient(cfg.Jira), changelog.WithStore(store))
	opts = append(opts, quality.WithResolver(resolver))
	return quality.NewAnalyzer(opts...), cleanup, nil
}
