package main

import (
	"fmt"
	"os"

	"jira-quality/cmd/jira-quality/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
