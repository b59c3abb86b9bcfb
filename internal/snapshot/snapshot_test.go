package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"jira-quality/internal/jira"
)

func sampleIssues() []jira.Issue {
	return []jira.Issue{
		{ID: "1", Key: "PROJ-1", Fields: jira.NewFields().Set("summary", "<b>first</b>").Set("customfield_10020", "2024-01-01").Set("created", "2024-01-01T10:00:00.000+0000")},
		{ID: "2", Key: "PROJ-2", Fields: jira.NewFields().Set("summary", "second").Set("created", "2024-01-02T10:00:00.000+0000")},
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "issues.json")
	if err := Save(path, sampleIssues()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Key != "PROJ-1" || got[1].Summary() != "second" {
		t.Fatalf("loaded %+v", got)
	}
	if keys := got[0].Fields.Keys(); len(keys) != 3 || keys[1] != "customfield_10020" {
		t.Errorf("field order lost: %v", keys)
	}
	if got[0].Summary() != "<b>first</b>" {
		t.Errorf("summary = %q", got[0].Summary())
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSave_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.json")
	if err := Save(path, nil); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]\n" {
		t.Errorf("empty snapshot = %q", data)
	}
}

type fakeSource struct {
	signal Signal
	issues []jira.Issue
	loads  atomic.Int32
}

func (f *fakeSource) cache() *Cache {
	return NewCache("",
		WithFreshness(func() (Signal, error) { return f.signal, nil }),
		WithLoader(func() ([]jira.Issue, error) {
			f.loads.Add(1)
			return f.issues, nil
		}),
	)
}

func TestCache_ReloadsOnSignalChange(t *testing.T) {
	src := &fakeSource{signal: Signal{ModTime: time.Unix(1, 0), Size: 10}, issues: sampleIssues()}
	c := src.cache()

	var computed atomic.Int32
	count := func(issues []jira.Issue) (int, error) {
		computed.Add(1)
		return len(issues), nil
	}

	for i := 0; i < 3; i++ {
		n, err := Memoize(c, "count", count)
		if err != nil || n != 2 {
			t.Fatalf("Memoize = %d, %v", n, err)
		}
	}
	if src.loads.Load() != 1 || computed.Load() != 1 {
		t.Fatalf("loads=%d computed=%d, want 1/1", src.loads.Load(), computed.Load())
	}

	src.issues = sampleIssues()[:1]
	src.signal = Signal{ModTime: time.Unix(2, 0), Size: 5}
	n, err := Memoize(c, "count", count)
	if err != nil || n != 1 {
		t.Fatalf("after change Memoize = %d, %v", n, err)
	}
	if src.loads.Load() != 2 || computed.Load() != 2 {
		t.Errorf("loads=%d computed=%d, want 2/2", src.loads.Load(), computed.Load())
	}
}

func TestCache_InvalidateClearsEverything(t *testing.T) {
	src := &fakeSource{signal: Signal{Size: 1}, issues: sampleIssues()}
	c := src.cache()

	_, _ = Memoize(c, "a", func([]jira.Issue) (string, error) { return "a", nil })
	_, _ = Memoize(c, "b", func([]jira.Issue) (string, error) { return "b", nil })

	c.Invalidate()
	c.mu.Lock()
	derived, loaded := len(c.derived), c.loaded
	c.mu.Unlock()
	if derived != 0 || loaded {
		t.Fatalf("after Invalidate derived=%d loaded=%v", derived, loaded)
	}

	if _, err := c.Issues(); err != nil {
		t.Fatal(err)
	}
	if src.loads.Load() != 2 {
		t.Errorf("loads = %d, want 2", src.loads.Load())
	}
}

func TestCache_FileSignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.json")
	c := NewCache(path)

	if _, err := c.Issues(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file err = %v", err)
	}

	if err := Save(path, sampleIssues()); err != nil {
		t.Fatal(err)
	}
	issues, err := c.Issues()
	if err != nil || len(issues) != 2 {
		t.Fatalf("Issues = %d, %v", len(issues), err)
	}

	if err := Save(path, sampleIssues()[:1]); err != nil {
		t.Fatal(err)
	}
	issues, err = c.Issues()
	if err != nil || len(issues) != 1 {
		t.Errorf("after rewrite Issues = %d, %v", len(issues), err)
	}
}

func TestMemoize_ErrorNotCached(t *testing.T) {
	src := &fakeSource{signal: Signal{Size: 1}}
	c := src.cache()
	boom := errors.New("boom")
	calls := 0
	f := func([]jira.Issue) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}
	if _, err := Memoize(c, "k", f); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if v, err := Memoize(c, "k", f); err != nil || v != 7 {
		t.Errorf("second call = %d, %v", v, err)
	}
}
