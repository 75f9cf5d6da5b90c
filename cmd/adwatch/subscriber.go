package main

import (
	"fmt"

	"github.com/fwojciec/adwatch"
)

// Run executes the subscriber add command.
func (c *SubscriberAddCmd) Run(deps *Dependencies) error {
	sub := &adwatch.Subscriber{
		ChatID:   c.ChatID,
		Username: c.Username,
		MaxPrice: c.MaxPrice,
		Active:   true,
	}
	if err := deps.Subscribers.CreateSubscriber(deps.Ctx, sub); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Added subscriber %d (chat %d)\n", sub.ID, sub.ChatID)
	return nil
}

// Run executes the subscriber list command.
func (c *SubscriberListCmd) Run(deps *Dependencies) error {
	var filter adwatch.SubscriberFilter
	if c.Active {
		active := true
		filter.Active = &active
	}

	subs, err := deps.Subscribers.FindSubscribers(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}

	if len(subs) == 0 {
		fmt.Fprintln(deps.Stdout, "No subscribers found. Use 'adwatch subscriber add' to register one.")
		return nil
	}

	for _, s := range subs {
		status := "active"
		if !s.Active {
			status = "paused"
		}
		fmt.Fprintf(deps.Stdout, "%d  chat=%d  %s  max=%s  %s\n",
			s.ID, s.ChatID, status, formatPrice(s.MaxPrice), s.Username)
	}
	return nil
}

// Run executes the subscriber set command.
func (c *SubscriberSetCmd) Run(deps *Dependencies) error {
	if c.Pause && c.Resume {
		err := adwatch.Errorf(adwatch.EINVALID, "--pause and --resume are mutually exclusive")
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	if c.ClearMaxPrice && c.MaxPrice != nil {
		err := adwatch.Errorf(adwatch.EINVALID, "--max-price and --clear-max-price are mutually exclusive")
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}

	upd := adwatch.SubscriberUpdate{
		MaxPrice:      c.MaxPrice,
		ClearMaxPrice: c.ClearMaxPrice,
	}
	if c.Username != "" {
		upd.Username = &c.Username
	}
	if c.Pause || c.Resume {
		active := c.Resume
		upd.Active = &active
	}

	sub, err := deps.Subscribers.UpdateSubscriber(deps.Ctx, c.ID, upd)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Updated subscriber %d (max=%s, active=%t)\n", sub.ID, formatPrice(sub.MaxPrice), sub.Active)
	return nil
}

func formatPrice(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}
