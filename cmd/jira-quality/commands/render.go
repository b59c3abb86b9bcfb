package commands

import (
	"fmt"
	"io"
	"strings"

	"jira-quality/internal/quality"

	"github.com/fatih/color"
)

var (
	headerStyle = color.New(color.Bold, color.FgCyan)
	goodStyle   = color.New(color.FgGreen)
	warnStyle   = color.New(color.FgYellow)
	badStyle    = color.New(color.FgRed, color.Bold)
	dimStyle    = color.New(color.Faint)
)

// metricStyle colours a share: green when clean, red from 20%.
func metricStyle(m quality.Metric) *color.Color {
	switch {
	case m.Count == 0:
		return goodStyle
	case m.Percentage >= 20:
		return badStyle
	default:
		return warnStyle
	}
}

func printMetric(w io.Writer, label string, m quality.Metric) {
	fmt.Fprintf(w, "  %-36s ", label)
	metricStyle(m).Fprintf(w, "%6d  (%.1f%%)\n", m.Count, m.Percentage)
}

func printSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	headerStyle.Fprintln(w, title)
}

func printReport(w io.Writer, r *quality.Report, waiting []quality.WaitingRow) {
	headerStyle.Fprintf(w, "Data quality report: %s\n", r.Project)
	dimStyle.Fprintf(w, "Analyzed on %s, %d issues\n", r.AnalyzedOn, r.TotalIssues)

	printSection(w, "Hierarchy")
	printMetric(w, "Without parent", r.WithoutParent)
	printMetric(w, "Not linked to expected parent", r.Unlinked)
	for _, s := range r.LinkStatus {
		if s.ExpectedParent == "" {
			continue
		}
		m := quality.Metric{Count: s.Unlinked, Percentage: s.Percentage}
		printMetric(w, fmt.Sprintf("  %s -> %s (of %d)", s.IssueType, s.ExpectedParent, s.Total), m)
	}

	printSection(w, "Dates")
	printMetric(w, "Without start and end date", r.MissingDates.Neither)
	printMetric(w, "Start date only", r.MissingDates.OnlyStart)
	printMetric(w, "End date only", r.MissingDates.OnlyEnd)
	printMetric(w, "End date passed, not done", r.PastEndDate)
	printMetric(w, "End before start", r.EndBeforeStart)
	for _, row := range r.PastEndSamples {
		dimStyle.Fprintf(w, "    %-12s %s  %s\n", row.Key, row.EndDate, row.Summary)
	}

	printSection(w, "Workflow")
	printMetric(w, "Start date passed, still open", r.PastStartOpen)
	printMetric(w, "In progress without assignee", r.InProgressWithoutAssignee)
	printMetric(w, "Waiting for release", r.WaitingForRelease)
	for _, row := range waiting {
		since := "unknown"
		if row.DaysInStatus != nil {
			since = fmt.Sprintf("%d days", *row.DaysInStatus)
		}
		dimStyle.Fprintf(w, "    %-12s %-10s %s\n", row.Key, since, row.Summary)
	}
	printMetric(w, "Closed without resolution", r.ClosedWithoutResolution)

	printSection(w, "Hygiene")
	printMetric(w, "Without assignee", r.MissingAssignee)
	printMetric(w, "Without description", r.MissingDescription)
	printMetric(w, "Without labels", r.MissingLabels)
	printMetric(w, "Sharing a summary", r.DuplicateSummaries)
	for _, d := range r.TopDuplicates {
		dimStyle.Fprintf(w, "    %3dx %s\n", d.Count, d.Summary)
	}

	printSection(w, "Status distribution")
	for _, s := range r.StatusDistribution {
		bar := strings.Repeat("#", int(s.Percentage/2))
		fmt.Fprintf(w, "  %-24s %6d  %5.1f%%  %s\n", s.Status, s.Count, s.Percentage, bar)
	}
}
