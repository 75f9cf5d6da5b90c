package mock

import "github.com/fwojciec/adwatch"

var _ adwatch.StateExtractor = (*StateExtractor)(nil)

// StateExtractor is a mock implementation of adwatch.StateExtractor.
type StateExtractor struct {
	ExtractFn func(markup string) adwatch.State
}

func (e *StateExtractor) Extract(markup string) adwatch.State {
	return e.ExtractFn(markup)
}
