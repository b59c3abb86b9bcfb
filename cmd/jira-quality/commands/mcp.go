package commands

import (
	"jira-quality/internal/mcp"
	"jira-quality/internal/snapshot"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server on stdio exposing the quality checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		analyzer, cleanup, err := newAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		return mcp.NewServer(snapshot.NewCache(cfg.SnapshotPath), analyzer, Version).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
