package inference

import (
	"testing"

	"jira-quality/internal/jira"
)

func parentOf(issueType string) *jira.ParentRef {
	return &jira.ParentRef{Key: "PROJ-1", IssueType: issueType}
}

func TestIsCorrectlyLinked(t *testing.T) {
	tests := []struct {
		issueType string
		parent    *jira.ParentRef
		want      bool
	}{
		{"Epic", parentOf("Initiative"), true},
		{"Epic", parentOf("Epic"), false},
		{"Epic", nil, false},
		{"Story", nil, false},
		{"Story", parentOf("Epic"), true},
		{"Task", parentOf("Initiative"), false},
		{"Bug", parentOf("Epic"), true},
		{"Spike", parentOf("Epic"), true},
		{"Documentation", parentOf("Story"), false},
		{"Sub-task", parentOf("Story"), true},
		{"Sub-task", parentOf("Task"), true},
		{"Sub-task", parentOf("Epic"), false},
		{"story", parentOf("epic"), true},
		{"Initiative", nil, true},
		{"Initiative", parentOf("Epic"), true},
		{"Custom Type", nil, true},
		{"", nil, true},
	}

	for _, tt := range tests {
		if got := IsCorrectlyLinked(tt.issueType, tt.parent); got != tt.want {
			parentType := "<none>"
			if tt.parent != nil {
				parentType = tt.parent.IssueType
			}
			t.Errorf("IsCorrectlyLinked(%q, %s) = %v, want %v", tt.issueType, parentType, got, tt.want)
		}
	}
}

func TestExpectedParentLabel(t *testing.T) {
	tests := map[string]string{
		"Epic":       "Initiative",
		"Story":      "Epic",
		"Sub-task":   "Story/Task",
		"Initiative": "",
	}
	for issueType, want := range tests {
		if got := ExpectedParentLabel(issueType); got != want {
			t.Errorf("ExpectedParentLabel(%q) = %q, want %q", issueType, got, want)
		}
	}
	if RequiresParent("Initiative") || !RequiresParent("Bug") {
		t.Error("RequiresParent disagrees with the table")
	}
}
