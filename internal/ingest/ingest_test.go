package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jira-quality/internal/jira"
)

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestSplitDateRange_ShortRangeIsSingleChunk(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-01-30")
	chunks := SplitDateRange(r, 5)
	require.Len(t, chunks, 1)
	assert.Equal(t, r, chunks[0])
}

func TestSplitDateRange_CoversRangeExactlyOnce(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		workers int
		want    int
	}{
		{"31 days", "2024-01-01", "2024-01-31", 5, 2},
		{"one year five workers", "2023-01-01", "2023-12-31", 5, 5},
		{"one year many workers", "2023-01-01", "2023-12-31", 50, 13},
		{"zero workers falls back", "2023-01-01", "2023-12-31", 0, 5},
		{"leap year", "2024-01-01", "2024-12-31", 4, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRange(t, tt.start, tt.end)
			chunks := SplitDateRange(r, tt.workers)
			assert.Len(t, chunks, tt.want)

			require.Equal(t, r.Start, chunks[0].Start)
			require.Equal(t, r.End, chunks[len(chunks)-1].End)
			total := 0
			for i, c := range chunks {
				assert.False(t, c.End.Before(c.Start), "chunk %d reversed", i)
				if i > 0 {
					assert.Equal(t, chunks[i-1].End.AddDate(0, 0, 1), c.Start, "chunk %d not contiguous", i)
				}
				total += c.Days()
			}
			assert.Equal(t, r.Days(), total)
		})
	}
}

func TestParseDateRange_Invalid(t *testing.T) {
	_, err := ParseDateRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseDateRange("2024-13-01", "2024-12-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBuildJQL(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-01-31")
	assert.Equal(t,
		`project = "PROJ" AND created >= "2024-01-01" AND created < "2024-02-01" ORDER BY created ASC`,
		BuildJQL("PROJ", r))
}

func TestPageFetcher_FollowsTokens(t *testing.T) {
	backend := newFakeBackend(makeIssues(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), 25, time.Hour))
	fetcher := NewPageFetcher(backend, 10)

	issues, err := fetcher.Fetch(context.Background(), "PROJ", mustRange(t, "2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, issues, 25)
	assert.EqualValues(t, 3, backend.calls.Load())
}

func TestPageFetcher_ErrorDiscardsPartition(t *testing.T) {
	backend := newFakeBackend(makeIssues(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), 5, time.Hour))
	boom := errors.New("status 500")
	backend.failRange("2024-01-01", boom)

	issues, err := NewPageFetcher(backend, 10).Fetch(context.Background(), "PROJ", mustRange(t, "2024-01-01", "2024-01-02"))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, issues)
}

type loopingSearcher struct{}

func (loopingSearcher) Search(context.Context, jira.SearchRequest) (*jira.SearchResponse, error) {
	return &jira.SearchResponse{
		Issues:        makeIssues(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1, time.Hour),
		NextPageToken: "same",
	}, nil
}

func TestPageFetcher_RepeatedTokenFails(t *testing.T) {
	_, err := NewPageFetcher(loopingSearcher{}, 10).Fetch(context.Background(), "PROJ", mustRange(t, "2024-01-01", "2024-01-02"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestCoordinator_UnionEqualsSinglePartition(t *testing.T) {
	// One issue every 7 hours across roughly a year, including the last hours
	// of each calendar day.
	all := makeIssues(time.Date(2023, 1, 1, 0, 30, 0, 0, time.UTC), 1250, 7*time.Hour)
	backend := newFakeBackend(all)
	fetcher := NewPageFetcher(backend, 37)
	r := mustRange(t, "2023-01-01", "2023-12-31")

	single, err := fetcher.Fetch(context.Background(), "PROJ", r)
	require.NoError(t, err)

	for _, workers := range []int{1, 3, 5, 12} {
		res, err := NewCoordinator(fetcher, workers).Fetch(context.Background(), "PROJ", r)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		assert.Equal(t, issueKeys(single), issueKeys(res.Issues), "workers=%d", workers)
		assert.Len(t, res.Issues, len(single), "duplicates with workers=%d", workers)
	}
}

func TestCoordinator_SortedByCreated(t *testing.T) {
	backend := newFakeBackend(makeIssues(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 400, 20*time.Hour))
	backend.delay = time.Millisecond

	res, err := NewCoordinator(NewPageFetcher(backend, 25), 5).Fetch(context.Background(), "PROJ", mustRange(t, "2023-01-01", "2023-12-31"))
	require.NoError(t, err)
	require.NotEmpty(t, res.Issues)
	for i := 1; i < len(res.Issues); i++ {
		assert.LessOrEqual(t, res.Issues[i-1].Created(), res.Issues[i].Created())
	}
}

func TestCoordinator_BoundsConcurrency(t *testing.T) {
	backend := newFakeBackend(makeIssues(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 200, 40*time.Hour))
	backend.delay = 5 * time.Millisecond

	_, err := NewCoordinator(NewPageFetcher(backend, 5), 3).Fetch(context.Background(), "PROJ", mustRange(t, "2023-01-01", "2023-12-31"))
	require.NoError(t, err)
	assert.LessOrEqual(t, backend.maxInFlight.Load(), int32(3))
}

func TestCoordinator_PartialFailureIsReported(t *testing.T) {
	all := makeIssues(time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC), 365, 24*time.Hour)
	backend := newFakeBackend(all)
	r := mustRange(t, "2023-01-01", "2023-12-31")
	chunks := SplitDateRange(r, 5)
	require.Len(t, chunks, 5)

	boom := errors.New("connection reset")
	backend.failRange(chunks[2].StartDate(), boom)

	res, err := NewCoordinator(NewPageFetcher(backend, 50), 5).Fetch(context.Background(), "PROJ", r)
	require.NoError(t, err)
	assert.False(t, res.Complete())
	assert.Equal(t, 1, res.Dropped())
	assert.Equal(t, 5, res.Partitions)
	assert.Equal(t, 3, res.Failures[0].Chunk)
	assert.Equal(t, chunks[2], res.Failures[0].Range)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Len(t, res.Issues, 365-chunks[2].Days())
}

func TestCoordinator_InvalidRange(t *testing.T) {
	r := DateRange{Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err := NewCoordinator(NewPageFetcher(newFakeBackend(nil), 10), 5).Fetch(context.Background(), "PROJ", r)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
