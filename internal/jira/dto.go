package jira

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Issue is a raw Jira issue record as returned by the search API. Only the
// identity is typed; everything under `fields` stays in the field bag.
type Issue struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Self      string     `json:"self,omitempty"`
	Fields    *Fields    `json:"fields"`
	Changelog *Changelog `json:"changelog,omitempty"`
}

// SearchRequest is the body of POST /rest/api/3/search/jql.
type SearchRequest struct {
	JQL           string   `json:"jql"`
	MaxResults    int      `json:"maxResults"`
	Fields        []string `json:"fields,omitempty"`
	Expand        string   `json:"expand,omitempty"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// SearchResponse is one page of the enhanced search API.
type SearchResponse struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	Total         int     `json:"total,omitempty"`
	IsLast        bool    `json:"isLast,omitempty"`
}

// BulkChangelogRequest is the body of POST /rest/api/3/changelog/bulkfetch.
type BulkChangelogRequest struct {
	IssueIDsOrKeys []string `json:"issueIdsOrKeys"`
	FieldIDs       []string `json:"fieldIds,omitempty"`
	MaxResults     int      `json:"maxResults"`
	NextPageToken  string   `json:"nextPageToken,omitempty"`
}

// BulkChangelogResponse is one page of bulk changelog results.
type BulkChangelogResponse struct {
	IssueChangeLogs []IssueChangeLog `json:"issueChangeLogs"`
	NextPageToken   string           `json:"nextPageToken,omitempty"`
}

// IssueChangeLog groups the change histories of a single issue.
type IssueChangeLog struct {
	IssueID         string    `json:"issueId"`
	ChangeHistories []History `json:"changeHistories"`
}

// ChangelogPage is one offset-paginated page of GET /issue/{key}/changelog.
// Cloud returns `values`, older servers `histories`.
type ChangelogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	IsLast     bool      `json:"isLast,omitempty"`
	Values     []History `json:"values,omitempty"`
	Histories  []History `json:"histories,omitempty"`
}

// Entries returns whichever history list the server populated.
func (p *ChangelogPage) Entries() []History {
	if len(p.Values) > 0 {
		return p.Values
	}
	return p.Histories
}

// Changelog is the changelog embedded in an issue (expand=changelog).
type Changelog struct {
	StartAt    int       `json:"startAt,omitempty"`
	MaxResults int       `json:"maxResults,omitempty"`
	Total      int       `json:"total,omitempty"`
	Histories  []History `json:"histories"`
}

// History is a single change-history entry.
type History struct {
	ID      string        `json:"id,omitempty"`
	Created ChangeTime    `json:"created"`
	Items   []HistoryItem `json:"items"`
}

// HistoryItem is a single field change within a history entry. The target
// values are loosely typed: usually strings, occasionally objects.
type HistoryItem struct {
	Field      string `json:"field"`
	FieldID    string `json:"fieldId,omitempty"`
	From       any    `json:"from,omitempty"`
	FromString any    `json:"fromString,omitempty"`
	To         any    `json:"to,omitempty"`
	ToString   any    `json:"toString,omitempty"`
}

// Target returns the value the field changed to, preferring toString.
func (i HistoryItem) Target() string {
	if s := namedValue(i.ToString); s != "" {
		return s
	}
	return namedValue(i.To)
}

func namedValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["name"].(string); ok && s != "" {
			return s
		}
		s, _ := t["value"].(string)
		return s
	default:
		return ""
	}
}

// ChangeTime is a history timestamp that may arrive as an ISO string or as a
// Unix timestamp in seconds or milliseconds. Unparsable values leave Valid false.
type ChangeTime struct {
	Time  time.Time
	Valid bool
	raw   json.RawMessage
}

// NewChangeTime wraps an already-known instant.
func NewChangeTime(t time.Time) ChangeTime {
	return ChangeTime{Time: t, Valid: true}
}

// UnmarshalJSON never fails on malformed timestamps.
func (t *ChangeTime) UnmarshalJSON(b []byte) error {
	*t = ChangeTime{raw: append(json.RawMessage(nil), b...)}
	s := string(bytes.TrimSpace(b))
	if s == "" || s == "null" {
		t.raw = nil
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		if parsed, ok := ParseTimestamp(str); ok {
			t.Time, t.Valid = parsed, true
		}
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	t.Time, t.Valid = FromUnix(n), true
	return nil
}

// MarshalJSON writes back the received representation when there is one.
func (t ChangeTime) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(TimeLayout))
}

// FromUnix converts seconds or milliseconds since the epoch; values above 1e10
// are taken as milliseconds.
func FromUnix(n float64) time.Time {
	if n > 1e10 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// TimeLayout is the timestamp format Jira uses for created/updated.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

var timestampLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp shapes Jira emits. Date-only strings
// resolve to midnight UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
