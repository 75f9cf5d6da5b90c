package main

import (
	"fmt"

	"github.com/fwojciec/adwatch"
)

// Run executes the target add command.
func (c *TargetAddCmd) Run(deps *Dependencies) error {
	target := &adwatch.SearchTarget{
		SubscriberID: c.SubscriberID,
		Category:     c.Category,
		City:         c.City,
		Model:        c.Model,
		URL:          c.URL,
		MaxPrice:     c.MaxPrice,
	}
	if err := deps.Targets.CreateTarget(deps.Ctx, target); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Added target %d: %s\n", target.ID, target.Label())
	return nil
}

// Run executes the target list command.
func (c *TargetListCmd) Run(deps *Dependencies) error {
	targets, err := deps.Targets.FindTargets(deps.Ctx, adwatch.TargetFilter{SubscriberID: c.Subscriber})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintln(deps.Stdout, "No targets found. Use 'adwatch target add' to create one.")
		return nil
	}

	for _, t := range targets {
		fmt.Fprintf(deps.Stdout, "%d  subscriber=%d  max=%s  %s\n    %s\n",
			t.ID, t.SubscriberID, formatPrice(t.MaxPrice), t.Label(), t.URL)
	}
	return nil
}

// Run executes the target delete command.
func (c *TargetDeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Targets.DeleteTarget(deps.Ctx, c.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Deleted target %d\n", c.ID)
	return nil
}
