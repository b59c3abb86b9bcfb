package commands

import (
	"encoding/json"
	"os"

	"jira-quality/internal/quality"
	"jira-quality/internal/snapshot"

	"github.com/spf13/cobra"
)

var (
	analyzeProject string
	analyzeJSON    bool
	analyzeInput   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the data-quality report for the local snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := analyzeInput
		if path == "" {
			path = cfg.SnapshotPath
		}
		issues, err := snapshot.Load(path)
		if err != nil {
			return err
		}
		issues = quality.FilterByProject(issues, analyzeProject)

		ctx, cancel := signalContext()
		defer cancel()
		analyzer, cleanup, err := newAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		report := analyzer.Report(issues)
		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(report)
		}
		printReport(os.Stdout, report, analyzer.WaitingForRelease(ctx, issues))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProject, "project", "p", "", "only analyze issues whose project key or name contains this text")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the report as JSON")
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "snapshot file (default SNAPSHOT_FILE)")
	rootCmd.AddCommand(analyzeCmd)
}
