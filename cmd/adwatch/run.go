package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/adwatch"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	run, err := deps.Runner.RunSubscriber(deps.Ctx, c.SubscriberID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	printRun(deps.Stdout, run)
	return nil
}

func printRun(w io.Writer, run *adwatch.Run) {
	fmt.Fprintf(w, "Run %s (%s): %d targets, %d failed, %d ads found, %d sent in %s\n",
		run.ID, run.Mode, run.Targets, run.Failed, run.Found, run.Delivered,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}
