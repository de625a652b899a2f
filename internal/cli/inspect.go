package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zxsted/dialogmanager"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// ValidationReport summarizes a catalog check.
type ValidationReport struct {
	Actions  int
	Entities []string
	Intents  []string
}

// Validate loads every action of the source into a fresh registry, which
// rejects duplicates, malformed actions and dependency cycles, then checks
// that every dependency and chained action exists.
func Validate(ctx context.Context, source ports.ActionSource) (*ValidationReport, error) {
	bot, err := dialogmanager.New()
	if err != nil {
		return nil, err
	}
	if err := bot.Load(ctx, source); err != nil {
		return nil, err
	}

	actions := bot.Actions()
	var errs []error
	report := &ValidationReport{Actions: len(actions)}
	for _, a := range actions {
		for _, group := range a.Dependencies {
			for _, dep := range group.Actions {
				if _, ok := bot.FindAction(dep); !ok {
					errs = append(errs, &domain.ReferentialError{Action: a.Name, Missing: dep})
				}
			}
		}
		if a.Next != "" {
			if _, ok := bot.FindAction(a.Next); !ok {
				errs = append(errs, &domain.ReferentialError{Action: a.Name, Missing: a.Next})
			}
		}
		if !slices.Contains(report.Intents, a.Intent) {
			report.Intents = append(report.Intents, a.Intent)
		}
		for _, n := range a.Notions {
			for _, ref := range n.Entities {
				if !slices.Contains(report.Entities, ref.Entity) {
					report.Entities = append(report.Entities, ref.Entity)
				}
			}
		}
	}
	slices.Sort(report.Intents)
	slices.Sort(report.Entities)

	if len(errs) > 0 {
		return report, fmt.Errorf("%d dangling reference(s): %w", len(errs), errors.Join(errs...))
	}
	return report, nil
}
