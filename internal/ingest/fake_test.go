package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"jira-quality/internal/jira"
)

var rangePattern = regexp.MustCompile(`created >= "(\d{4}-\d{2}-\d{2})" AND created < "(\d{4}-\d{2}-\d{2})"`)

// fakeBackend answers search requests from a fixed issue set, paging with
// opaque offset tokens.
type fakeBackend struct {
	issues []jira.Issue

	mu       sync.Mutex
	failFrom map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	delay       time.Duration
}

func newFakeBackend(issues []jira.Issue) *fakeBackend {
	sorted := append([]jira.Issue(nil), issues...)
	SortByCreated(sorted)
	return &fakeBackend{issues: sorted, failFrom: map[string]error{}}
}

// failRange makes every query whose lower bound is start fail.
func (f *fakeBackend) failRange(start string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFrom[start] = err
}

func (f *fakeBackend) Search(_ context.Context, req jira.SearchRequest) (*jira.SearchResponse, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	m := rangePattern.FindStringSubmatch(req.JQL)
	if m == nil {
		return nil, fmt.Errorf("unexpected jql %q", req.JQL)
	}
	from, until := m[1], m[2]

	f.mu.Lock()
	failErr := f.failFrom[from]
	f.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}

	var matched []jira.Issue
	for _, issue := range f.issues {
		day := issue.CreatedDate()
		if day >= from && day < until {
			matched = append(matched, issue)
		}
	}

	offset := 0
	if req.NextPageToken != "" {
		v, err := strconv.Atoi(req.NextPageToken[len("tok-"):])
		if err != nil {
			return nil, errors.New("bad token")
		}
		offset = v
	}
	end := min(offset+req.MaxResults, len(matched))
	resp := &jira.SearchResponse{Issues: matched[offset:end]}
	if end < len(matched) {
		resp.NextPageToken = "tok-" + strconv.Itoa(end)
	}
	return resp, nil
}

// makeIssues creates one issue every `every` hours starting at start.
func makeIssues(start time.Time, count int, every time.Duration) []jira.Issue {
	issues := make([]jira.Issue, 0, count)
	for i := 0; i < count; i++ {
		created := start.Add(time.Duration(i) * every)
		issues = append(issues, jira.Issue{
			ID:     strconv.Itoa(10000 + i),
			Key:    fmt.Sprintf("PROJ-%d", i+1),
			Fields: jira.NewFields().Set("created", created.Format(jira.TimeLayout)),
		})
	}
	return issues
}

func issueKeys(issues []jira.Issue) []string {
	keys := make([]string, 0, len(issues))
	for _, i := range issues {
		keys = append(keys, i.Key)
	}
	sort.Strings(keys)
	return keys
}
