package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"jira-quality/cmd/mockgen/engine"
	"jira-quality/internal/snapshot"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos")
	project := flag.String("project", "MOCK", "Project key of the generated issues")
	out := flag.String("out", "./jira_issues_raw.json", "Snapshot file to write")
	count := flag.Int("count", 200, "Number of issues to generate")
	days := flag.Int("days", 365, "Spread creation dates over this many days")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Project:  *project,
		Count:    *count,
		Days:     *days,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d, Days: %d) to %s...\n", cfg.Scenario, cfg.Count, cfg.Days, *out)

	issues := engine.Generate(cfg)
	if err := snapshot.Save(*out, issues); err != nil {
		fmt.Printf("Failed to save mock snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
