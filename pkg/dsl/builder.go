package dsl

import (
	"context"
	"errors"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	actions []*ActionBuilder
	index   map[string]*ActionBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*ActionBuilder),
	}
}

// Add creates a new action in the graph.
// If the action already exists, it returns the existing builder.
func (b *Builder) Add(name string) *ActionBuilder {
	if ab, ok := b.index[name]; ok {
		return ab
	}
	ab := &ActionBuilder{
		action: &domain.Action{Name: name},
	}
	b.index[name] = ab
	b.actions = append(b.actions, ab)
	return ab
}

// Build validates every action and returns them in the order they were
// added. Misuses of the fluent API are reported here.
func (b *Builder) Build() ([]*domain.Action, error) {
	actions := make([]*domain.Action, 0, len(b.actions))
	var errs []error
	for _, ab := range b.actions {
		if len(ab.errs) > 0 {
			errs = append(errs, ab.errs...)
			continue
		}
		if err := ab.action.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		actions = append(actions, ab.action)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return actions, nil
}

// Actions implements ports.ActionSource.
func (b *Builder) Actions(_ context.Context) ([]*domain.Action, error) {
	return b.Build()
}
