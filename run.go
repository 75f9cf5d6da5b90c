package adwatch

import (
	"context"
	"time"
)

// RunMode identifies which entry point started a discovery run.
type RunMode string

// RunMode constants.
const (
	RunInteractive RunMode = "interactive"
	RunScheduled   RunMode = "scheduled"
)

// Run is the journal entry of one discovery run.
type Run struct {
	ID           string    `json:"id"`
	Mode         RunMode   `json:"mode"`
	SubscriberID int64     `json:"subscriberId,omitempty"`
	Targets      int       `json:"targets"`
	Failed       int       `json:"failed"`
	Found        int       `json:"found"`
	Delivered    int       `json:"delivered"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// RunService records discovery runs for operators.
type RunService interface {
	// CreateRun stores a finished run and assigns its ID.
	CreateRun(ctx context.Context, run *Run) error

	// FindRuns returns recent runs, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Mode *RunMode `json:"mode"`

	Limit int `json:"limit"`
}
