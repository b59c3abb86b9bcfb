package engine

import (
	"fmt"
	"math/rand"
	"time"

	"jira-quality/internal/ingest"
	"jira-quality/internal/jira"
)

// GeneratorConfig controls the synthetic snapshot.
type GeneratorConfig struct {
	Scenario string // "mild" or "chaos"
	Project  string
	Count    int
	Days     int // creation dates are spread over the last Days days
	Seed     int64
	Now      time.Time
}

// defectRates are the probabilities of each injected quality problem.
type defectRates struct {
	unlinked     float64
	wrongParent  float64
	missingDates float64
	noAssignee   float64
	noLabels     float64
	pastEnd      float64
	noResolution float64
}

func ratesFor(scenario string) defectRates {
	if scenario == "chaos" {
		return defectRates{
			unlinked: 0.35, wrongParent: 0.15, missingDates: 0.45, noAssignee: 0.4,
			noLabels: 0.5, pastEnd: 0.3, noResolution: 0.25,
		}
	}
	return defectRates{
		unlinked: 0.03, wrongParent: 0.01, missingDates: 0.08, noAssignee: 0.05,
		noLabels: 0.1, pastEnd: 0.05, noResolution: 0.02,
	}
}

var (
	workStatuses = []string{"Open", "In Progress", "Waiting for release", "Done", "Closed"}
	workTypes    = []string{"Story", "Story", "Story", "Task", "Bug", "Spike", "Documentation"}
	people       = []string{"Ada Lovelace", "Grace Hopper", "Alan Turing", "Barbara Liskov"}
	summaries    = []string{"Improve login flow", "Fix flaky export", "Update dependencies", "Add audit trail", "Refactor billing"}
)

type generator struct {
	cfg   GeneratorConfig
	rates defectRates
	rng   *rand.Rand
	seq   int

	initiatives []jira.Issue
	epics       []jira.Issue
	stories     []jira.Issue
}

// Generate builds a project snapshot of cfg.Count issues: initiatives, epics,
// standard work items and sub-tasks, with quality problems injected at the
// scenario's rates. The output is sorted by created and depends only on cfg.
func Generate(cfg GeneratorConfig) []jira.Issue {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Count <= 0 {
		cfg.Count = 200
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	if cfg.Project == "" {
		cfg.Project = "MOCK"
	}
	g := &generator{cfg: cfg, rates: ratesFor(cfg.Scenario), rng: rand.New(rand.NewSource(cfg.Seed))}

	nInitiatives := max(1, cfg.Count/40)
	nEpics := max(1, cfg.Count/10)

	issues := make([]jira.Issue, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		var issue jira.Issue
		switch {
		case i < nInitiatives:
			issue = g.issue("Initiative", nil)
			g.initiatives = append(g.initiatives, issue)
		case i < nInitiatives+nEpics:
			issue = g.issue("Epic", g.pick(g.initiatives))
			g.epics = append(g.epics, issue)
		case len(g.stories) > 0 && g.rng.Float64() < 0.2:
			issue = g.issue("Sub-task", g.pick(g.stories))
		default:
			t := workTypes[g.rng.Intn(len(workTypes))]
			issue = g.issue(t, g.pick(g.epics))
			if t == "Story" || t == "Task" {
				g.stories = append(g.stories, issue)
			}
		}
		issues = append(issues, issue)
	}

	ingest.SortByCreated(issues)
	return issues
}

func (g *generator) pick(from []jira.Issue) *jira.Issue {
	if len(from) == 0 {
		return nil
	}
	return &from[g.rng.Intn(len(from))]
}

func (g *generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *generator) issue(issueType string, parent *jira.Issue) jira.Issue {
	g.seq++
	key := fmt.Sprintf("%s-%d", g.cfg.Project, g.seq)
	created := g.cfg.Now.AddDate(0, 0, -g.rng.Intn(g.cfg.Days)).Add(-time.Duration(g.rng.Intn(86400)) * time.Second).UTC()
	status := workStatuses[g.rng.Intn(len(workStatuses))]

	fields := jira.NewFields().
		Set("summary", summaries[g.rng.Intn(len(summaries))]).
		Set("issuetype", map[string]any{"name": issueType}).
		Set("status", map[string]any{"name": status}).
		Set("created", created.Format(jira.TimeLayout)).
		Set("project", map[string]any{"key": g.cfg.Project, "name": "Mock " + g.cfg.Project}).
		Set("creator", person(people[g.rng.Intn(len(people))])).
		Set("reporter", person(people[g.rng.Intn(len(people))]))

	if !g.chance(g.rates.noAssignee) {
		fields.Set("assignee", person(people[g.rng.Intn(len(people))]))
	}
	if !g.chance(g.rates.noLabels) {
		fields.Set("labels", []any{"team-" + string(rune('a'+g.rng.Intn(3)))})
	} else {
		fields.Set("labels", []any{})
	}
	if (status == "Done" || status == "Closed") && !g.chance(g.rates.noResolution) {
		fields.Set("resolution", map[string]any{"name": "Done"})
	}

	g.setParent(fields, issueType, parent)
	g.setDates(fields, created, status)

	issue := jira.Issue{ID: fmt.Sprintf("%d", 10000+g.seq), Key: key, Fields: fields}
	if status == "Waiting for release" {
		entered := created.Add(time.Duration(1+g.rng.Intn(72)) * time.Hour)
		issue.Changelog = &jira.Changelog{Histories: []jira.History{{
			ID:      fmt.Sprintf("%d", 500000+g.seq),
			Created: jira.NewChangeTime(entered),
			Items: []jira.HistoryItem{{
				Field: "status", FieldID: "status", FromString: "In Progress", ToString: status,
			}},
		}}}
	}
	return issue
}

func (g *generator) setParent(fields *jira.Fields, issueType string, parent *jira.Issue) {
	if parent == nil || g.chance(g.rates.unlinked) {
		return
	}
	target := *parent
	// Link to an issue of the wrong level.
	if g.chance(g.rates.wrongParent) && len(g.initiatives) > 0 && issueType != "Epic" {
		target = g.initiatives[g.rng.Intn(len(g.initiatives))]
	}
	fields.Set("parent", map[string]any{
		"id":  target.ID,
		"key": target.Key,
		"fields": map[string]any{
			"issuetype": map[string]any{"name": target.IssueType()},
		},
	})
}

func (g *generator) setDates(fields *jira.Fields, created time.Time, status string) {
	if g.chance(g.rates.missingDates) {
		switch g.rng.Intn(3) {
		case 0:
			return
		case 1:
			fields.Set("customfield_10015", created.Format("2006-01-02"))
			return
		default:
			fields.Set("duedate", created.AddDate(0, 0, 14).Format("2006-01-02"))
			return
		}
	}

	start := created.AddDate(0, 0, g.rng.Intn(7))
	end := start.AddDate(0, 0, 7+g.rng.Intn(60))
	if status != "Done" && status != "Closed" && g.chance(g.rates.pastEnd) {
		end = g.cfg.Now.AddDate(0, 0, -1-g.rng.Intn(30))
	}
	fields.Set("customfield_10015", start.Format("2006-01-02"))
	fields.Set("duedate", end.Format("2006-01-02"))
}

func person(name string) map[string]any {
	return map[string]any{
		"accountId":   fmt.Sprintf("acc-%x", len(name)*7919),
		"displayName": name,
	}
}
