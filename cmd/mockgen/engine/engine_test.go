package engine

import (
	"path/filepath"
	"testing"
	"time"

	"jira-quality/internal/jira"
	"jira-quality/internal/quality"
	"jira-quality/internal/snapshot"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func analyzer() *quality.Analyzer {
	return quality.NewAnalyzer(quality.WithClock(func() time.Time { return fixedNow }))
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: "mild", Count: 120, Seed: 7, Now: fixedNow}
	a, b := Generate(cfg), Generate(cfg)
	if len(a) != 120 || len(b) != 120 {
		t.Fatalf("len = %d/%d, want 120", len(a), len(b))
	}
	for i := range a {
		if a[i].Key != b[i].Key || a[i].Created() != b[i].Created() {
			t.Fatalf("issue %d differs: %s/%s", i, a[i].Key, b[i].Key)
		}
	}
}

func TestGenerate_SortedWithHierarchy(t *testing.T) {
	issues := Generate(GeneratorConfig{Scenario: "mild", Count: 200, Seed: 3, Now: fixedNow})

	types := make(map[string]int)
	for i, issue := range issues {
		types[issue.IssueType()]++
		if i > 0 && issue.Created() < issues[i-1].Created() {
			t.Fatalf("not sorted at %d", i)
		}
		if issue.ProjectKey() != "MOCK" {
			t.Errorf("%s project = %q", issue.Key, issue.ProjectKey())
		}
	}
	if types["Initiative"] != 5 || types["Epic"] != 20 {
		t.Errorf("types = %v", types)
	}
}

func TestGenerate_ChaosIsWorse(t *testing.T) {
	mild := analyzer().Report(Generate(GeneratorConfig{Scenario: "mild", Count: 400, Seed: 11, Now: fixedNow}))
	chaos := analyzer().Report(Generate(GeneratorConfig{Scenario: "chaos", Count: 400, Seed: 11, Now: fixedNow}))

	if chaos.Unlinked.Count <= mild.Unlinked.Count {
		t.Errorf("unlinked: chaos %d <= mild %d", chaos.Unlinked.Count, mild.Unlinked.Count)
	}
	if chaos.MissingAssignee.Count <= mild.MissingAssignee.Count {
		t.Errorf("missing assignee: chaos %d <= mild %d", chaos.MissingAssignee.Count, mild.MissingAssignee.Count)
	}
}

func TestGenerate_RoundTripsThroughSnapshot(t *testing.T) {
	issues := Generate(GeneratorConfig{Scenario: "chaos", Count: 50, Seed: 5, Now: fixedNow})
	path := filepath.Join(t.TempDir(), "mock.json")
	if err := snapshot.Save(path, issues); err != nil {
		t.Fatal(err)
	}
	loaded, err := snapshot.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	before := analyzer().Report(issues)
	after := analyzer().Report(loaded)
	if before.Unlinked != after.Unlinked || before.MissingDates != after.MissingDates {
		t.Errorf("report changed after round trip: %+v vs %+v", before.Unlinked, after.Unlinked)
	}

	waiting := 0
	for _, issue := range loaded {
		if issue.Changelog != nil {
			waiting++
			if _, ok := firstStatusChange(issue); !ok {
				t.Errorf("%s changelog has no status change", issue.Key)
			}
		}
	}
	if waiting == 0 {
		t.Error("expected some issues with an embedded changelog")
	}
}

func firstStatusChange(issue jira.Issue) (string, bool) {
	for _, h := range issue.Changelog.Histories {
		for _, item := range h.Items {
			if item.Field == "status" && h.Created.Valid {
				return item.Target(), true
			}
		}
	}
	return "", false
}
