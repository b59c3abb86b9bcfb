package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"jira-quality/internal/jira"
	"jira-quality/internal/quality"
	"jira-quality/internal/snapshot"
)

func testIssue(key, issueType, status string) jira.Issue {
	return jira.Issue{
		ID:  "id-" + key,
		Key: key,
		Fields: jira.NewFields().
			Set("summary", "Summary "+key).
			Set("created", "2023-06-01T10:00:00.000+0000").
			Set("issuetype", map[string]any{"name": issueType}).
			Set("status", map[string]any{"name": status}).
			Set("project", map[string]any{"key": "PROJ", "name": "Project"}),
	}
}

func connect(t *testing.T, issues []jira.Issue) *sdk.ClientSession {
	t.Helper()
	path := filepath.Join(t.TempDir(), "issues.json")
	if issues != nil {
		if err := snapshot.Save(path, issues); err != nil {
			t.Fatal(err)
		}
	}
	analyzer := quality.NewAnalyzer(quality.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))
	server := NewServer(snapshot.NewCache(path), analyzer, "test").MCP()

	ctx := context.Background()
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (Response, *sdk.CallToolResult) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	var resp Response
	if res.IsError || len(res.Content) == 0 {
		return resp, res
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("%s: unexpected content %T", name, res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), &resp); err != nil {
		t.Fatalf("%s: decode: %v", name, err)
	}
	return resp, res
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, []jira.Issue{testIssue("PROJ-1", "Story", "Open")})
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"quality_report", "link_status", "unlinked_issues", "issues_by_type", "quality_check"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestServer_QualityReport(t *testing.T) {
	session := connect(t, []jira.Issue{
		testIssue("PROJ-1", "Epic", "Open"),
		testIssue("PROJ-2", "Story", "Done"),
	})
	resp, _ := callTool(t, session, "quality_report", map[string]any{"project": "proj"})
	if resp.Project != "Project" {
		t.Errorf("project = %q", resp.Project)
	}
	data := resp.Data.(map[string]any)
	if data["total_issues"].(float64) != 2 {
		t.Errorf("total = %v", data["total_issues"])
	}
	if len(resp.Guidance) == 0 {
		t.Error("expected guidance for unlinked issues")
	}
}

func TestServer_UnlinkedIssues(t *testing.T) {
	session := connect(t, []jira.Issue{
		testIssue("PROJ-1", "Story", "Open"),
		testIssue("PROJ-2", "Story", "Open"),
	})
	resp, _ := callTool(t, session, "unlinked_issues", map[string]any{"issue_type": "Story"})
	data := resp.Data.(map[string]any)
	if data["count"].(float64) != 2 || data["expected_parent"] != "Epic" {
		t.Errorf("data = %v", data)
	}

	_, res := callTool(t, session, "unlinked_issues", map[string]any{"issue_type": ""})
	if !res.IsError {
		t.Error("expected an error for an empty issue type")
	}
}

func TestServer_QualityCheck(t *testing.T) {
	session := connect(t, []jira.Issue{testIssue("PROJ-1", "Story", "In Progress")})
	resp, _ := callTool(t, session, "quality_check", map[string]any{"check": "in-progress-no-assignee"})
	if data := resp.Data.(map[string]any); data["count"].(float64) != 1 {
		t.Errorf("data = %v", data)
	}

	_, res := callTool(t, session, "quality_check", map[string]any{"check": "nope"})
	if !res.IsError {
		t.Error("expected an error for an unknown check")
	}
}

func TestServer_NoSnapshot(t *testing.T) {
	session := connect(t, nil)
	_, res := callTool(t, session, "link_status", map[string]any{})
	if !res.IsError {
		t.Error("expected an error without a snapshot")
	}
}
