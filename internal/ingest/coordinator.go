package ingest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"jira-quality/internal/jira"
)

// PartitionFetcher retrieves all issues of one project within one date range.
type PartitionFetcher interface {
	Fetch(ctx context.Context, project string, r DateRange) ([]jira.Issue, error)
}

// PartitionFailure records a partition whose issues are missing from a Result.
type PartitionFailure struct {
	Chunk int
	Range DateRange
	Err   error
}

// Result is the merged outcome of a coordinated fetch.
type Result struct {
	RunID      string
	Issues     []jira.Issue
	Partitions int
	Failures   []PartitionFailure
	Duration   time.Duration
}

// Complete reports whether every partition succeeded.
func (r *Result) Complete() bool {
	return len(r.Failures) == 0
}

// Dropped is the number of failed partitions.
func (r *Result) Dropped() int {
	return len(r.Failures)
}

// Err joins the partition errors, or returns nil for a complete result.
func (r *Result) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Coordinator splits a date range into partitions and fetches them concurrently.
type Coordinator struct {
	fetcher PartitionFetcher
	workers int
}

// NewCoordinator creates a coordinator running at most workers partitions at
// once. A non-positive count defaults to 5.
func NewCoordinator(f PartitionFetcher, workers int) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Coordinator{fetcher: f, workers: workers}
}

type partitionResult struct {
	issues []jira.Issue
	err    error
}

// Fetch returns every issue created in r, sorted ascending by created. A
// failed partition is logged and recorded in Result.Failures; it does not stop
// the others. The returned error is non-nil only for an invalid range.
func (c *Coordinator) Fetch(ctx context.Context, project string, r DateRange) (*Result, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := log.With().Str("component", "ingest").Str("run_id", runID).Logger()
	chunks := SplitDateRange(r, c.workers)
	logger.Info().
		Str("project", project).
		Str("range", r.String()).
		Int("chunks", len(chunks)).
		Int("workers", c.workers).
		Msg("Starting partitioned fetch")

	started := time.Now()
	slots := make([]partitionResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			issues, err := c.fetcher.Fetch(ctx, project, chunk)
			slots[i] = partitionResult{issues: issues, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{RunID: runID, Partitions: len(chunks)}
	for i, slot := range slots {
		chunk := i + 1
		if slot.err != nil {
			partitionsTotal.WithLabelValues("failed").Inc()
			logger.Warn().
				Int("chunk", chunk).
				Str("start", chunks[i].StartDate()).
				Str("end", chunks[i].EndDate()).
				Err(slot.err).
				Msg("Partition fetch failed, its issues are excluded")
			res.Failures = append(res.Failures, PartitionFailure{Chunk: chunk, Range: chunks[i], Err: slot.err})
			continue
		}
		partitionsTotal.WithLabelValues("ok").Inc()
		logger.Debug().Int("chunk", chunk).Int("issues", len(slot.issues)).Msg("Partition complete")
		res.Issues = append(res.Issues, slot.issues...)
	}
	issuesFetched.Add(float64(len(res.Issues)))

	SortByCreated(res.Issues)
	res.Duration = time.Since(started)

	event := logger.Info()
	if !res.Complete() {
		event = logger.Warn()
	}
	event.
		Int("issues", len(res.Issues)).
		Int("partitions", res.Partitions).
		Int("failed", res.Dropped()).
		Dur("elapsed", res.Duration).
		Msg("Partitioned fetch finished")
	return res, nil
}

// SortByCreated stable-sorts issues by their raw created timestamp.
func SortByCreated(issues []jira.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Created() < issues[j].Created()
	})
}
