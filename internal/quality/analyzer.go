package quality

import (
	"context"
	"strings"
	"time"

	"jira-quality/internal/changelog"
	"jira-quality/internal/inference"
	"jira-quality/internal/jira"
)

const (
	unknownType = "Unknown"
	dayLayout   = "2006-01-02"
)

// StatusResolver resolves when issues last entered a status.
type StatusResolver interface {
	StatusSince(ctx context.Context, refs []changelog.IssueRef, status string) map[string]time.Time
}

// Analyzer runs the quality checks over a snapshot. It holds no state
// derived from the issues, so one instance can serve concurrent callers.
type Analyzer struct {
	guesser  inference.DateFieldGuesser
	resolver StatusResolver
	now      func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithGuesser replaces the heuristic date-field guesser.
func WithGuesser(g inference.DateFieldGuesser) Option {
	return func(a *Analyzer) {
		if g != nil {
			a.guesser = g
		}
	}
}

// WithResolver enables remote status-since resolution.
func WithResolver(r StatusResolver) Option {
	return func(a *Analyzer) { a.resolver = r }
}

// WithClock overrides the current time.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer using the date heuristic and the wall clock.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{guesser: inference.HeuristicGuesser{}, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Today is the current wall-clock calendar date, as midnight UTC so it
// compares directly with inference.CalendarDate values.
func (a *Analyzer) Today() time.Time {
	now := a.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Dates returns the inferred start and end dates of an issue.
func (a *Analyzer) Dates(issue jira.Issue) inference.DateFieldGuess {
	return a.guesser.Guess(issue.Fields)
}

// IssueRow is one line of a per-check listing.
type IssueRow struct {
	Key          string `json:"key"`
	Summary      string `json:"summary"`
	CreatedDate  string `json:"created_date"`
	CreatorName  string `json:"creator_name,omitempty"`
	ReporterName string `json:"reporter_name,omitempty"`
	IssueType    string `json:"issue_type,omitempty"`
	Status       string `json:"status,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	HasParent    *bool  `json:"has_parent,omitempty"`
}

// WaitingRow is an issue waiting for release. StatusSince and DaysInStatus
// are null when the transition could not be resolved.
type WaitingRow struct {
	IssueRow
	StatusSince  *string `json:"status_since"`
	DaysInStatus *int    `json:"days_in_status"`
}

func baseRow(issue jira.Issue) IssueRow {
	return IssueRow{
		Key:         issue.Key,
		Summary:     issue.Summary(),
		CreatedDate: issue.CreatedDate(),
	}
}

func issueTypeOf(issue jira.Issue) string {
	if t := issue.IssueType(); t != "" {
		return t
	}
	return unknownType
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
