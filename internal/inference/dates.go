package inference

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"jira-quality/internal/jira"
)

const (
	customFieldPrefix = "customfield_"
	dueDateField      = "duedate"
)

var dateTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// normalizeDate strips a trailing zone designator or numeric offset.
func normalizeDate(s string) string {
	s = strings.ReplaceAll(s, "Z", "")
	s = strings.ReplaceAll(s, "+00:00", "")
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 10 && strings.Count(s, "-") > 2 {
		parts := strings.SplitN(s, "-", 4)
		s = strings.Join(parts[:3], "-")
	}
	return s
}

// ParseDate parses a date-like value. The result carries the value's own
// wall-clock date and time in UTC, so offsets do not shift the calendar day.
func ParseDate(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	s = normalizeDate(strings.TrimSpace(s))
	if len(s) < 10 {
		return time.Time{}, false
	}
	if len(s) >= 19 {
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s[:19]); err == nil {
				return t, true
			}
		}
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsDateLike reports whether v is a string that parses as a date or date-time.
func IsDateLike(v any) bool {
	_, ok := ParseDate(v)
	return ok
}

// CalendarDate truncates a parsed value to midnight of its own calendar day.
func CalendarDate(v any) (time.Time, bool) {
	t, ok := ParseDate(v)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// DateFieldGuess is the (start, end) pair recovered from an issue. Empty
// strings mean the slot could not be filled.
type DateFieldGuess struct {
	Start      string
	End        string
	StartField string
	EndField   string
}

// HasStart reports whether a start date was found.
func (g DateFieldGuess) HasStart() bool { return g.Start != "" }

// HasEnd reports whether an end date was found.
func (g DateFieldGuess) HasEnd() bool { return g.End != "" }

// StartDate is the calendar date of Start.
func (g DateFieldGuess) StartDate() (time.Time, bool) { return CalendarDate(g.Start) }

// EndDate is the calendar date of End.
func (g DateFieldGuess) EndDate() (time.Time, bool) { return CalendarDate(g.End) }

// DateFieldGuesser recovers start and end dates from an issue's fields.
type DateFieldGuesser interface {
	Guess(fields *jira.Fields) DateFieldGuess
}

// HeuristicGuesser infers dates from date-like custom fields: with two or more
// the lowest numeric field ID is the start and the next one the end; a single
// one is the end. duedate, when set, always takes the end slot.
type HeuristicGuesser struct{}

type dateCandidate struct {
	key   string
	value string
}

// Guess implements DateFieldGuesser.
func (HeuristicGuesser) Guess(fields *jira.Fields) DateFieldGuess {
	var candidates []dateCandidate
	for _, key := range fields.Keys() {
		if !strings.HasPrefix(key, customFieldPrefix) {
			continue
		}
		v, _ := fields.Get(key)
		if s, ok := v.(string); ok && IsDateLike(s) {
			candidates = append(candidates, dateCandidate{key: key, value: s})
		}
	}

	var g DateFieldGuess
	switch {
	case len(candidates) >= 2:
		ordered := sortByFieldID(candidates)
		g.Start, g.StartField = ordered[0].value, ordered[0].key
		g.End, g.EndField = ordered[1].value, ordered[1].key
	case len(candidates) == 1:
		g.End, g.EndField = candidates[0].value, candidates[0].key
	}

	if due := fields.String(dueDateField); due != "" {
		g.End, g.EndField = due, dueDateField
	}
	return g
}

// sortByFieldID orders candidates by numeric field ID, or keeps document
// order when any ID is not an integer.
func sortByFieldID(in []dateCandidate) []dateCandidate {
	ids := make(map[string]int, len(in))
	for _, c := range in {
		n, err := strconv.Atoi(strings.TrimPrefix(c.key, customFieldPrefix))
		if err != nil {
			return in
		}
		ids[c.key] = n
	}
	out := append([]dateCandidate(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return ids[out[i].key] < ids[out[j].key]
	})
	return out
}

// MappedGuesser reads dates from explicitly configured field IDs.
type MappedGuesser struct {
	StartField string
	EndField   string
}

// Guess implements DateFieldGuesser. Values that are not date-like are
// treated as absent.
func (m MappedGuesser) Guess(fields *jira.Fields) DateFieldGuess {
	var g DateFieldGuess
	if m.StartField != "" {
		if s := fields.String(m.StartField); IsDateLike(s) {
			g.Start, g.StartField = s, m.StartField
		}
	}
	if m.EndField != "" {
		if s := fields.String(m.EndField); IsDateLike(s) {
			g.End, g.EndField = s, m.EndField
		}
	}
	return g
}
