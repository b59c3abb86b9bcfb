package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"jira-quality/internal/inference"
	"jira-quality/internal/quality"
)

type reportArgs struct {
	Project string `json:"project,omitempty" jsonschema:"Optional project key or name filter, matched case-insensitively"`
}

type issueTypeArgs struct {
	IssueType string `json:"issue_type" jsonschema:"Issue type name such as Epic, Story or Sub-task"`
}

type checkArgs struct {
	Check string `json:"check" jsonschema:"One of past-start-open, past-end-date, in-progress-no-assignee, waiting-for-release, missing-dates"`
}

func (s *Server) registerTools(server *sdk.Server) {
	sdk.AddTool(server, &sdk.Tool{
		Name: "quality_report",
		Description: "Full data-quality report for the fetched snapshot: hierarchy linkage, date hygiene, " +
			"stale work, status distribution and duplicate summaries.\n\n" +
			"Guidance: start here. Percentages are relative to the total issue count of the (filtered) snapshot.",
	}, s.handleReport)

	sdk.AddTool(server, &sdk.Tool{
		Name: "link_status",
		Description: "Per issue type, how many issues are correctly linked to a parent of the expected type.\n\n" +
			"Guidance: types without an expected parent are always counted as linked.",
	}, s.handleLinkStatus)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "unlinked_issues",
		Description: "List issues of one type that lack a parent of the expected type, newest first.",
	}, s.handleUnlinked)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "issues_by_type",
		Description: "List every issue of one type with its parent status, newest first.",
	}, s.handleByType)

	sdk.AddTool(server, &sdk.Tool{
		Name: "quality_check",
		Description: "Run one targeted check and list the offending issues.\n\n" +
			"Guidance: date-based checks compare against today's date, so results change from day to day.",
	}, s.handleCheck)
}

func (s *Server) handleReport(_ context.Context, _ *sdk.CallToolRequest, args reportArgs) (*sdk.CallToolResult, any, error) {
	issues, err := s.issues()
	if err != nil {
		return nil, nil, err
	}
	issues = quality.FilterByProject(issues, args.Project)
	report := s.analyzer.Report(issues)

	var guidance []string
	if report.TotalIssues == 0 {
		guidance = append(guidance, "The snapshot has no matching issues. Check the project filter or re-run the fetch.")
	}
	if report.Unlinked.Count > 0 {
		guidance = append(guidance, "Use unlinked_issues with a specific issue_type to list the unlinked issues.")
	}
	return textResult(issues, report, guidance...)
}

func (s *Server) handleLinkStatus(_ context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, any, error) {
	issues, err := s.issues()
	if err != nil {
		return nil, nil, err
	}
	return textResult(issues, s.analyzer.LinkStatusByType(issues))
}

func (s *Server) handleUnlinked(_ context.Context, _ *sdk.CallToolRequest, args issueTypeArgs) (*sdk.CallToolResult, any, error) {
	if strings.TrimSpace(args.IssueType) == "" {
		return nil, nil, fmt.Errorf("issue_type is required")
	}
	issues, err := s.issues()
	if err != nil {
		return nil, nil, err
	}
	rows := s.analyzer.UnlinkedIssues(issues, args.IssueType)
	expected := inference.ExpectedParentLabel(args.IssueType)

	var guidance []string
	if !inference.RequiresParent(args.IssueType) {
		guidance = append(guidance, fmt.Sprintf("%s has no expected parent type, so it is never reported as unlinked.", args.IssueType))
	}
	return textResult(issues, map[string]any{
		"issue_type":      args.IssueType,
		"expected_parent": expected,
		"count":           len(rows),
		"issues":          rows,
	}, guidance...)
}

func (s *Server) handleByType(_ context.Context, _ *sdk.CallToolRequest, args issueTypeArgs) (*sdk.CallToolResult, any, error) {
	if strings.TrimSpace(args.IssueType) == "" {
		return nil, nil, fmt.Errorf("issue_type is required")
	}
	issues, err := s.issues()
	if err != nil {
		return nil, nil, err
	}
	rows := s.analyzer.IssuesByType(issues, args.IssueType)
	return textResult(issues, map[string]any{
		"issue_type": args.IssueType,
		"count":      len(rows),
		"issues":     rows,
	})
}

func (s *Server) handleCheck(ctx context.Context, _ *sdk.CallToolRequest, args checkArgs) (*sdk.CallToolResult, any, error) {
	issues, err := s.issues()
	if err != nil {
		return nil, nil, err
	}

	var rows any
	count := 0
	switch args.Check {
	case "past-start-open":
		out := s.analyzer.PastStartOpen(issues)
		rows, count = out, len(out)
	case "past-end-date":
		out := s.analyzer.PastEndDate(issues)
		rows, count = out, len(out)
	case "in-progress-no-assignee":
		out := s.analyzer.InProgressWithoutAssignee(issues)
		rows, count = out, len(out)
	case "waiting-for-release":
		out := s.analyzer.WaitingForRelease(ctx, issues)
		rows, count = out, len(out)
		return textResult(issues, map[string]any{"check": args.Check, "count": count, "issues": rows},
			"status_since is null when the transition into the status could not be resolved.")
	case "missing-dates":
		return textResult(issues, map[string]any{"check": args.Check, "result": s.analyzer.MissingDates(issues)})
	default:
		return nil, nil, fmt.Errorf("unknown check %q", args.Check)
	}
	return textResult(issues, map[string]any{"check": args.Check, "count": count, "issues": rows})
}
