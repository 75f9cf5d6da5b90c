package mock

import (
	"context"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.TargetService = (*TargetService)(nil)

// TargetService is a mock implementation of adwatch.TargetService.
type TargetService struct {
	CreateTargetFn func(ctx context.Context, target *adwatch.SearchTarget) error
	FindTargetsFn  func(ctx context.Context, filter adwatch.TargetFilter) ([]*adwatch.SearchTarget, error)
	DeleteTargetFn func(ctx context.Context, id int64) error
}

func (s *TargetService) CreateTarget(ctx context.Context, target *adwatch.SearchTarget) error {
	return s.CreateTargetFn(ctx, target)
}

func (s *TargetService) FindTargets(ctx context.Context, filter adwatch.TargetFilter) ([]*adwatch.SearchTarget, error) {
	return s.FindTargetsFn(ctx, filter)
}

func (s *TargetService) DeleteTarget(ctx context.Context, id int64) error {
	return s.DeleteTargetFn(ctx, id)
}
