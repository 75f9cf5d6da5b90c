package mock

import (
	"context"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.RunService = (*RunService)(nil)

// RunService is a mock implementation of adwatch.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *adwatch.Run) error
	FindRunsFn  func(ctx context.Context, filter adwatch.RunFilter) ([]*adwatch.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *adwatch.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRuns(ctx context.Context, filter adwatch.RunFilter) ([]*adwatch.Run, error) {
	return s.FindRunsFn(ctx, filter)
}
