package quality

import (
	"sort"
	"strings"

	"jira-quality/internal/jira"
)

const (
	topDuplicates     = 5
	topPastEndSamples = 10
)

// StatusCount is one entry of the status distribution.
type StatusCount struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DuplicateSummary is a summary shared by several issues.
type DuplicateSummary struct {
	Summary string `json:"summary"`
	Count   int    `json:"count"`
}

// Report aggregates every check over one snapshot. It depends only on the
// issues and the analyzer's calendar date.
type Report struct {
	Project     string `json:"project"`
	AnalyzedOn  string `json:"analyzed_on"`
	TotalIssues int    `json:"total_issues"`

	WithoutParent Metric           `json:"without_parent"`
	Unlinked      Metric           `json:"unlinked"`
	LinkStatus    []TypeLinkStatus `json:"link_status"`

	MissingDates   MissingDates `json:"missing_dates"`
	PastEndDate    Metric       `json:"past_end_date"`
	PastEndSamples []IssueRow   `json:"past_end_samples"`
	EndBeforeStart Metric       `json:"end_before_start"`

	PastStartOpen             Metric `json:"past_start_open"`
	InProgressWithoutAssignee Metric `json:"in_progress_without_assignee"`
	WaitingForRelease         Metric `json:"waiting_for_release"`

	StatusDistribution      []StatusCount      `json:"status_distribution"`
	MissingAssignee         Metric             `json:"missing_assignee"`
	MissingDescription      Metric             `json:"missing_description"`
	MissingLabels           Metric             `json:"missing_labels"`
	DuplicateSummaries      Metric             `json:"duplicate_summaries"`
	TopDuplicates           []DuplicateSummary `json:"top_duplicates"`
	ClosedWithoutResolution Metric             `json:"closed_without_resolution"`
}

// Report runs every check. Output ordering is fully determined by the input,
// so two runs over the same snapshot on the same day serialize identically.
func (a *Analyzer) Report(issues []jira.Issue) *Report {
	total := len(issues)
	r := &Report{
		Project:     ProjectName(issues),
		AnalyzedOn:  a.Today().Format(dayLayout),
		TotalIssues: total,
	}

	var (
		withoutParent, unlinked, endBeforeStart int
		noAssignee, noDescription, noLabels     int
		closedNoResolution, waiting             int
	)
	statuses := make(map[string]int)
	summaries := make(map[string]int)

	r.LinkStatus = a.LinkStatusByType(issues)
	for _, s := range r.LinkStatus {
		unlinked += s.Unlinked
	}

	for _, issue := range issues {
		f := issue.Fields
		if issue.Parent() == nil {
			withoutParent++
		}

		g := a.Dates(issue)
		if start, ok := g.StartDate(); ok {
			if end, ok := g.EndDate(); ok && end.Before(start) {
				endBeforeStart++
			}
		}

		status := issue.Status()
		if status == "" {
			status = "Unknown"
		}
		statuses[status]++

		if _, ok := issue.Assignee(); !ok {
			noAssignee++
		}
		if descriptionMissing(f) {
			noDescription++
		}
		if labelsMissing(f) {
			noLabels++
		}
		if s := normalize(issue.Summary()); s != "" {
			summaries[s]++
		}
		if closedStatuses[normalize(issue.Status())] && !f.Present("resolution") {
			closedNoResolution++
		}
		if isWaitingForRelease(issue) {
			waiting++
		}
	}

	r.WithoutParent = NewMetric(withoutParent, total)
	r.Unlinked = NewMetric(unlinked, total)
	r.MissingDates = a.MissingDates(issues)

	pastEnd := a.PastEndDate(issues)
	r.PastEndDate = NewMetric(len(pastEnd), total)
	r.PastEndSamples = pastEnd[:min(topPastEndSamples, len(pastEnd))]
	r.EndBeforeStart = NewMetric(endBeforeStart, total)

	r.PastStartOpen = NewMetric(len(a.PastStartOpen(issues)), total)
	r.InProgressWithoutAssignee = NewMetric(len(a.InProgressWithoutAssignee(issues)), total)
	r.WaitingForRelease = NewMetric(waiting, total)

	r.StatusDistribution = statusDistribution(statuses, total)
	r.MissingAssignee = NewMetric(noAssignee, total)
	r.MissingDescription = NewMetric(noDescription, total)
	r.MissingLabels = NewMetric(noLabels, total)

	dups, dupIssues := duplicateSummaries(summaries)
	r.DuplicateSummaries = NewMetric(dupIssues, total)
	r.TopDuplicates = dups[:min(topDuplicates, len(dups))]
	r.ClosedWithoutResolution = NewMetric(closedNoResolution, total)
	return r
}

func statusDistribution(counts map[string]int, total int) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n, Percentage: percentage(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out
}

func duplicateSummaries(counts map[string]int) ([]DuplicateSummary, int) {
	var (
		out    []DuplicateSummary
		issues int
	)
	for s, n := range counts {
		if n > 1 {
			out = append(out, DuplicateSummary{Summary: s, Count: n})
			issues += n
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Summary < out[j].Summary
	})
	if out == nil {
		out = []DuplicateSummary{}
	}
	return out, issues
}

// FilterByProject keeps issues whose project key or name contains key,
// case-insensitively. An empty key keeps everything.
func FilterByProject(issues []jira.Issue, key string) []jira.Issue {
	key = normalize(key)
	if key == "" {
		return issues
	}
	out := make([]jira.Issue, 0, len(issues))
	for _, issue := range issues {
		if strings.Contains(normalize(issue.ProjectKey()), key) || strings.Contains(normalize(issue.ProjectName()), key) {
			out = append(out, issue)
		}
	}
	return out
}

// ProjectName names the snapshot after its first issue's project.
func ProjectName(issues []jira.Issue) string {
	if len(issues) == 0 {
		return "No data"
	}
	if name := issues[0].ProjectName(); name != "" {
		return name
	}
	return "Unknown project"
}
