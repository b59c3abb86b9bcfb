package commands

import (
	"errors"
	"fmt"

	"jira-quality/internal/ingest"
	"jira-quality/internal/jira"
	"jira-quality/internal/logging"
	"jira-quality/internal/snapshot"

	"github.com/spf13/cobra"
)

const (
	defaultStartDate = "2000-01-01"
	defaultEndDate   = "2100-01-01"
)

var (
	fetchWorkers int
	fetchOutput  string
	fetchProject string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [start end]",
	Short: "Download every issue of the project into the local snapshot",
	Long: `Splits [start, end] (inclusive, YYYY-MM-DD) into date partitions, fetches them in parallel
and writes the merged issues, sorted by creation time, to the snapshot file.
A partial result is still written; the command fails only when every partition failed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected either no dates or both start and end, got %d argument(s)", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end := defaultStartDate, defaultEndDate
		if len(args) == 2 {
			start, end = args[0], args[1]
		}
		r, err := ingest.ParseDateRange(start, end)
		if err != nil {
			return err
		}

		project := fetchProject
		if project == "" {
			project = cfg.ProjectKey
		}
		if project == "" {
			return errors.New("no project: set PROJECT_KEY or pass --project")
		}
		if err := cfg.Jira.Validate(); err != nil {
			return err
		}
		workers := fetchWorkers
		if workers <= 0 {
			workers = cfg.Workers
		}
		output := fetchOutput
		if output == "" {
			output = cfg.SnapshotPath
		}

		ctx, cancel := signalContext()
		defer cancel()

		logger := logging.Component("fetch")
		client := jira.NewClient(cfg.Jira)
		coordinator := ingest.NewCoordinator(ingest.NewPageFetcher(client, client.PageSize()), workers)

		res, err := coordinator.Fetch(ctx, project, r)
		if err != nil {
			return err
		}
		if res.Partitions > 0 && res.Dropped() == res.Partitions {
			return fmt.Errorf("all %d partitions failed: %w", res.Partitions, res.Err())
		}
		if !res.Complete() {
			logger.Warn().
				Str("run_id", res.RunID).
				Int("dropped", res.Dropped()).
				Int("partitions", res.Partitions).
				Msg("Snapshot is incomplete, some partitions failed")
		}

		if err := snapshot.Save(output, res.Issues); err != nil {
			return err
		}
		logger.Info().
			Str("run_id", res.RunID).
			Str("path", output).
			Int("issues", len(res.Issues)).
			Dur("elapsed", res.Duration).
			Msg("Snapshot written")
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVarP(&fetchWorkers, "workers", "w", 0, "number of concurrent partitions (default FETCH_WORKERS)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "snapshot file (default SNAPSHOT_FILE)")
	fetchCmd.Flags().StringVarP(&fetchProject, "project", "p", "", "project key (default PROJECT_KEY)")
	rootCmd.AddCommand(fetchCmd)
}
