package main

import (
	"fmt"
	"log/slog"

	"github.com/fwojciec/adwatch"
	"github.com/robfig/cron/v3"
)

// Run executes the serve command. Scheduled runs never overlap: a run that
// is still going when the next one is due makes the scheduler skip it.
func (c *ServeCmd) Run(deps *Dependencies) error {
	if c.Once {
		return runAll(deps)
	}
	if c.Now {
		if err := runAll(deps); err != nil {
			return err
		}
	}

	logger := cron.PrintfLogger(slog.NewLogLogger(deps.Logger.Handler(), slog.LevelWarn))
	sched := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	spec := "@every " + deps.Config.Interval.String()
	if _, err := sched.AddFunc(spec, func() {
		if err := runAll(deps); err != nil {
			deps.Logger.Error("scheduled run failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduling %q: %w", spec, err)
	}

	deps.Logger.Info("serving", "interval", deps.Config.Interval)
	sched.Start()
	<-deps.Ctx.Done()
	<-sched.Stop().Done()
	deps.Logger.Info("stopped")
	return nil
}

func runAll(deps *Dependencies) error {
	run, err := deps.Runner.RunAll(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adwatch.ErrorMessage(err))
		return err
	}
	printRun(deps.Stdout, run)
	return nil
}
