package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"jira-quality/internal/jira"
)

// Searcher is the single-page search call the page fetcher drives.
type Searcher interface {
	Search(ctx context.Context, req jira.SearchRequest) (*jira.SearchResponse, error)
}

// BuildJQL returns the partition query. The upper bound is exclusive on the
// following day so the whole last calendar day is included.
func BuildJQL(project string, r DateRange) string {
	return fmt.Sprintf(`project = "%s" AND created >= "%s" AND created < "%s" ORDER BY created ASC`,
		strings.ReplaceAll(project, `"`, `\"`), r.StartDate(), r.ExclusiveEnd())
}

// PageFetcher retrieves every issue of one partition through token pagination.
type PageFetcher struct {
	searcher Searcher
	pageSize int
}

// NewPageFetcher creates a page fetcher. A non-positive page size defaults to 100.
func NewPageFetcher(s Searcher, pageSize int) *PageFetcher {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &PageFetcher{searcher: s, pageSize: pageSize}
}

// Fetch pages through the partition until a response carries no token or no
// issues. Any error aborts the partition; the pages read so far are discarded.
func (p *PageFetcher) Fetch(ctx context.Context, project string, r DateRange) ([]jira.Issue, error) {
	jql := BuildJQL(project, r)
	seen := make(map[string]struct{})

	var (
		issues []jira.Issue
		token  string
		page   int
	)
	for {
		page++
		resp, err := p.searcher.Search(ctx, jira.SearchRequest{
			JQL:           jql,
			MaxResults:    p.pageSize,
			Fields:        []string{"*all"},
			NextPageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("range %s page %d: %w", r, page, err)
		}

		issues = append(issues, resp.Issues...)
		log.Debug().Str("range", r.String()).Int("page", page).Int("issues", len(resp.Issues)).Msg("Fetched page")

		if resp.NextPageToken == "" || len(resp.Issues) == 0 {
			return issues, nil
		}
		if _, dup := seen[resp.NextPageToken]; dup {
			return nil, fmt.Errorf("range %s page %d: continuation token repeated", r, page)
		}
		seen[resp.NextPageToken] = struct{}{}
		token = resp.NextPageToken
	}
}
