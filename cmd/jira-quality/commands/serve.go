package commands

import (
	"fmt"
	"net"
	"strings"

	"jira-quality/internal/httpapi"
	"jira-quality/internal/snapshot"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quality checks as a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		ctx, cancel := signalContext()
		defer cancel()
		analyzer, cleanup, err := newAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		server := httpapi.NewServer(snapshot.NewCache(cfg.SnapshotPath), analyzer)
		if serveOpen {
			url := summaryURL(addr)
			go func() {
				if err := browser.OpenURL(url); err != nil {
					log.Warn().Err(err).Str("url", url).Msg("Could not open browser")
				}
			}()
		}
		return server.Run(ctx, addr)
	},
}

// summaryURL turns a listen address into a browsable URL.
func summaryURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + strings.TrimPrefix(addr, "http://") + "/api/summary"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s/api/summary", net.JoinHostPort(host, port))
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the summary in the default browser")
	rootCmd.AddCommand(serveCmd)
}
