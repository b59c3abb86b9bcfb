package mcp

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"jira-quality/internal/jira"
	"jira-quality/internal/quality"
	"jira-quality/internal/snapshot"
)

// Server answers quality questions about the local snapshot over MCP.
type Server struct {
	cache    *snapshot.Cache
	analyzer *quality.Analyzer
	version  string
}

// NewServer creates an MCP server over the snapshot cache.
func NewServer(cache *snapshot.Cache, analyzer *quality.Analyzer, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{cache: cache, analyzer: analyzer, version: version}
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: "jira-quality", Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Run serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("Starting MCP server on stdio")
	return s.MCP().Run(ctx, &sdk.StdioTransport{})
}

// Response wraps tool output with hints for the calling agent.
type Response struct {
	Project  string   `json:"project"`
	Data     any      `json:"data"`
	Guidance []string `json:"guidance,omitempty"`
}

func (s *Server) issues() ([]jira.Issue, error) {
	issues, err := s.cache.Issues()
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil, errors.New("no snapshot available, run `jira-quality fetch` first")
	}
	return issues, err
}

func textResult(issues []jira.Issue, data any, guidance ...string) (*sdk.CallToolResult, any, error) {
	out, err := json.MarshalIndent(Response{
		Project:  quality.ProjectName(issues),
		Data:     data,
		Guidance: guidance,
	}, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(out)}},
	}, nil, nil
}
