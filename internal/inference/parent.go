package inference

import (
	"strings"

	"jira-quality/internal/jira"
)

// parentExpectations maps a lower-cased issue type to the parent types it
// must be linked to. Types missing from the table need no parent.
var parentExpectations = map[string][]string{
	"epic":          {"Initiative"},
	"story":         {"Epic"},
	"task":          {"Epic"},
	"bug":           {"Epic"},
	"spike":         {"Epic"},
	"documentation": {"Epic"},
	"sub-task":      {"Story", "Task"},
}

// ExpectedParentTypes returns the allowed parent types, or nil when the type
// does not require a parent.
func ExpectedParentTypes(issueType string) []string {
	expected := parentExpectations[strings.ToLower(strings.TrimSpace(issueType))]
	if expected == nil {
		return nil
	}
	return append([]string(nil), expected...)
}

// ExpectedParentLabel joins the allowed parent types with "/".
func ExpectedParentLabel(issueType string) string {
	return strings.Join(ExpectedParentTypes(issueType), "/")
}

// RequiresParent reports whether the type has an entry in the table.
func RequiresParent(issueType string) bool {
	_, ok := parentExpectations[strings.ToLower(strings.TrimSpace(issueType))]
	return ok
}

// IsCorrectlyLinked reports whether an issue of issueType with the given
// parent satisfies the hierarchy. Types without a required parent are always
// correctly linked.
func IsCorrectlyLinked(issueType string, parent *jira.ParentRef) bool {
	expected, ok := parentExpectations[strings.ToLower(strings.TrimSpace(issueType))]
	if !ok {
		return true
	}
	if parent == nil {
		return false
	}
	for _, want := range expected {
		if strings.EqualFold(strings.TrimSpace(parent.IssueType), want) {
			return true
		}
	}
	return false
}
