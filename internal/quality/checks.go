package quality

import (
	"context"
	"sort"
	"strings"
	"time"

	"jira-quality/internal/changelog"
	"jira-quality/internal/inference"
	"jira-quality/internal/jira"
)

// WaitingForReleaseStatus is the status the release check looks for.
const WaitingForReleaseStatus = "Waiting for release"

var (
	inProgressStatuses = map[string]bool{"in progress": true, "inprogress": true}
	closedStatuses     = map[string]bool{"done": true, "closed": true, "resolved": true}
	releaseTypes       = map[string]bool{"epic": true, "initiative": true, "story": true}
)

// Metric is a count with its share of the analyzed set.
type Metric struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// NewMetric computes count/total*100; an empty set yields 0%.
func NewMetric(count, total int) Metric {
	return Metric{Count: count, Percentage: percentage(count, total)}
}

func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) * 100 / float64(total)
}

// TypeLinkStatus is the hierarchy check result for one issue type.
type TypeLinkStatus struct {
	IssueType      string  `json:"issue_type"`
	Total          int     `json:"total"`
	Unlinked       int     `json:"unlinked"`
	Percentage     float64 `json:"percentage"`
	ExpectedParent string  `json:"expected_parent,omitempty"`
}

// LinkStatusByType counts, per issue type, the issues failing the parent
// hierarchy check. Types are sorted by name.
func (a *Analyzer) LinkStatusByType(issues []jira.Issue) []TypeLinkStatus {
	byType := make(map[string]*TypeLinkStatus)
	for _, issue := range issues {
		t := issueTypeOf(issue)
		s, ok := byType[t]
		if !ok {
			s = &TypeLinkStatus{IssueType: t, ExpectedParent: inference.ExpectedParentLabel(t)}
			byType[t] = s
		}
		s.Total++
		if !inference.IsCorrectlyLinked(t, issue.Parent()) {
			s.Unlinked++
		}
	}

	out := make([]TypeLinkStatus, 0, len(byType))
	for _, s := range byType {
		s.Percentage = percentage(s.Unlinked, s.Total)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssueType < out[j].IssueType })
	return out
}

func sortNewestFirst(rows []IssueRow) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedDate > rows[j].CreatedDate })
}

// UnlinkedIssues lists issues of issueType that fail the hierarchy check,
// newest first. Types without a required parent yield an empty list.
func (a *Analyzer) UnlinkedIssues(issues []jira.Issue, issueType string) []IssueRow {
	rows := []IssueRow{}
	if !inference.RequiresParent(issueType) {
		return rows
	}
	for _, issue := range issues {
		if !strings.EqualFold(issue.IssueType(), strings.TrimSpace(issueType)) {
			continue
		}
		if inference.IsCorrectlyLinked(issue.IssueType(), issue.Parent()) {
			continue
		}
		row := baseRow(issue)
		row.CreatorName = issue.Creator().Name()
		row.ReporterName = issue.Reporter().Name()
		rows = append(rows, row)
	}
	sortNewestFirst(rows)
	return rows
}

// IssuesByType lists every issue of issueType with its link status, newest first.
func (a *Analyzer) IssuesByType(issues []jira.Issue, issueType string) []IssueRow {
	rows := []IssueRow{}
	for _, issue := range issues {
		if !strings.EqualFold(issue.IssueType(), strings.TrimSpace(issueType)) {
			continue
		}
		linked := inference.IsCorrectlyLinked(issue.IssueType(), issue.Parent())
		row := baseRow(issue)
		row.CreatorName = issue.Creator().Name()
		row.HasParent = &linked
		rows = append(rows, row)
	}
	sortNewestFirst(rows)
	return rows
}

// MissingDates counts issues lacking one or both inferred dates.
type MissingDates struct {
	Neither   Metric `json:"without_both_dates"`
	OnlyStart Metric `json:"without_end_date"`
	OnlyEnd   Metric `json:"without_start_date"`
}

// MissingDates classifies every issue by which inferred dates it has.
func (a *Analyzer) MissingDates(issues []jira.Issue) MissingDates {
	var neither, onlyStart, onlyEnd int
	for _, issue := range issues {
		g := a.Dates(issue)
		switch {
		case !g.HasStart() && !g.HasEnd():
			neither++
		case !g.HasEnd():
			onlyStart++
		case !g.HasStart():
			onlyEnd++
		}
	}
	total := len(issues)
	return MissingDates{
		Neither:   NewMetric(neither, total),
		OnlyStart: NewMetric(onlyStart, total),
		OnlyEnd:   NewMetric(onlyEnd, total),
	}
}

// PastEndDate lists issues whose end date is before today, oldest end first.
func (a *Analyzer) PastEndDate(issues []jira.Issue) []IssueRow {
	today := a.Today()
	type dated struct {
		row IssueRow
		end time.Time
	}
	var found []dated
	for _, issue := range issues {
		g := a.Dates(issue)
		end, ok := g.EndDate()
		if !ok || !end.Before(today) {
			continue
		}
		row := baseRow(issue)
		row.IssueType = issue.IssueType()
		row.Status = issue.Status()
		row.EndDate = end.Format(dayLayout)
		found = append(found, dated{row: row, end: end})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].end.Before(found[j].end) })

	rows := make([]IssueRow, 0, len(found))
	for _, d := range found {
		rows = append(rows, d.row)
	}
	return rows
}

// PastStartOpen lists issues whose status is exactly "open" and whose start
// date is before today.
func (a *Analyzer) PastStartOpen(issues []jira.Issue) []IssueRow {
	today := a.Today()
	rows := []IssueRow{}
	for _, issue := range issues {
		if normalize(issue.Status()) != "open" {
			continue
		}
		g := a.Dates(issue)
		start, ok := g.StartDate()
		if !ok || !start.Before(today) {
			continue
		}
		row := baseRow(issue)
		row.CreatorName = issue.Creator().Name()
		row.Status = issue.Status()
		row.StartDate = start.Format(dayLayout)
		rows = append(rows, row)
	}
	return rows
}

// InProgressWithoutAssignee lists in-progress issues nobody is assigned to.
func (a *Analyzer) InProgressWithoutAssignee(issues []jira.Issue) []IssueRow {
	rows := []IssueRow{}
	for _, issue := range issues {
		if !inProgressStatuses[normalize(issue.Status())] {
			continue
		}
		if _, assigned := issue.Assignee(); assigned {
			continue
		}
		row := baseRow(issue)
		row.CreatorName = issue.Creator().Name()
		row.Status = issue.Status()
		rows = append(rows, row)
	}
	return rows
}

func isWaitingForRelease(issue jira.Issue) bool {
	return releaseTypes[normalize(issue.IssueType())] &&
		normalize(issue.Status()) == normalize(WaitingForReleaseStatus)
}

// WaitingForRelease lists epics, initiatives and stories waiting for release
// with the date they entered that status. The configured resolver is asked
// first; the embedded changelog fills in whatever it could not resolve.
// Unresolved issues keep a nil StatusSince.
func (a *Analyzer) WaitingForRelease(ctx context.Context, issues []jira.Issue) []WaitingRow {
	rows := []WaitingRow{}
	embedded := make(map[string]time.Time)
	var refs []changelog.IssueRef

	for _, issue := range issues {
		if !isWaitingForRelease(issue) {
			continue
		}
		row := baseRow(issue)
		row.IssueType = issue.IssueType()
		row.Status = issue.Status()
		rows = append(rows, WaitingRow{IssueRow: row})
		refs = append(refs, changelog.IssueRef{ID: issue.ID, Key: issue.Key})

		if t, ok := changelog.EmbeddedStatusSince(issue, WaitingForReleaseStatus); ok {
			embedded[issue.Key] = t
		}
	}

	since := make(map[string]time.Time, len(rows))
	if len(refs) > 0 && a.resolver != nil {
		for key, t := range a.resolver.StatusSince(ctx, refs, WaitingForReleaseStatus) {
			since[key] = t
		}
	}
	for key, t := range embedded {
		if _, ok := since[key]; !ok {
			since[key] = t
		}
	}

	today := a.Today()
	for i := range rows {
		t, ok := since[rows[i].Key]
		if !ok {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		s := day.Format(dayLayout)
		days := int(today.Sub(day).Hours() / 24)
		rows[i].StatusSince = &s
		rows[i].DaysInStatus = &days
	}
	return rows
}

func descriptionMissing(f *jira.Fields) bool {
	v, _ := f.Get("description")
	switch d := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(d) == ""
	case map[string]any:
		content, _ := d["content"].([]any)
		return len(content) == 0
	default:
		return false
	}
}

func labelsMissing(f *jira.Fields) bool {
	v, _ := f.Get("labels")
	labels, _ := v.([]any)
	return len(labels) == 0
}
