package main

import (
	"fmt"

	"github.com/fwojciec/adwatch"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	filter := adwatch.RunFilter{Limit: c.Limit}
	if c.Mode != "" && c.Mode != "all" {
		mode := adwatch.RunMode(c.Mode)
		filter.Mode = &mode
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %-11s  targets=%d failed=%d found=%d sent=%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Mode,
			r.Targets, r.Failed, r.Found, r.Delivered)
	}
	return nil
}
