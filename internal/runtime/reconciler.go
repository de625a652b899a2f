package runtime

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// resolvedEntity is one incoming entity instance bound to its target notion.
type resolvedEntity struct {
	ref    domain.EntityRef
	entity domain.Entity
}

type settlement struct {
	target resolvedEntity
	value  any
	err    error
}

// Reconcile merges the analysis entities into the conversation memory.
//
// Each instance goes to the matching notion of current, or else to the only
// unfilled notion of the whole registry bound to its entity type; other
// instances are dropped. Validators run concurrently on a snapshot of memory
// and writes are applied once all of them have settled. When validators
// reject, the payload of the last one to settle is returned.
func (e *Engine) Reconcile(ctx context.Context, state *domain.ConversationState, analysis *domain.Analysis, current *domain.Action) (any, error) {
	targets := e.resolveTargets(state, analysis, current)
	if len(targets) == 0 {
		return nil, nil
	}

	snapshot := state.Memory.Clone()
	results := make([]settlement, len(targets))

	var (
		mu       sync.Mutex
		failures []settlement
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			value, err := validate(gctx, target, snapshot)
			s := settlement{target: target, value: value, err: err}
			results[i] = s
			if err != nil {
				mu.Lock()
				failures = append(failures, s)
				mu.Unlock()
			}
			// Rejections are folded into the reply; they must not cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, s := range results {
		if s.err == nil {
			state.Memory[s.target.ref.Alias] = s.value
		}
	}

	if len(failures) == 0 {
		return nil, nil
	}
	for _, f := range failures {
		payload := rejectionPayload(f.err)
		e.logger.Debug("entity rejected by validator",
			"conversation_id", state.ConversationID,
			"alias", f.target.ref.Alias,
			"entity", f.target.ref.Entity,
			"error", f.err)
		e.emitValidationRejected(ctx, state.ConversationID, f.target, payload)
	}
	return rejectionPayload(failures[len(failures)-1].err), nil
}

func validate(ctx context.Context, target resolvedEntity, memory domain.Memory) (any, error) {
	if target.ref.Validator == nil {
		return target.entity, nil
	}
	value, err := target.ref.Validator(ctx, target.entity, memory)
	if err != nil {
		return nil, err
	}
	if isEmpty(value) {
		return target.entity, nil
	}
	return value, nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

func rejectionPayload(err error) any {
	var rejected *domain.ValidationRejected
	if errors.As(err, &rejected) {
		return rejected.Payload
	}
	return err.Error()
}

// resolveTargets binds every entity instance to a notion. Entity types are
// visited in sorted order so resolution is stable across turns.
func (e *Engine) resolveTargets(state *domain.ConversationState, analysis *domain.Analysis, current *domain.Action) []resolvedEntity {
	var targets []resolvedEntity

	for _, entityType := range analysis.EntityTypes() {
		ref, ok := e.targetNotion(state, current, entityType)
		if !ok {
			continue
		}
		for _, instance := range analysis.Entities[entityType] {
			targets = append(targets, resolvedEntity{ref: ref, entity: instance})
		}
	}
	return targets
}

func (e *Engine) targetNotion(state *domain.ConversationState, current *domain.Action, entityType string) (domain.EntityRef, bool) {
	if current != nil {
		if ref, ok := current.NotionFor(entityType); ok {
			return ref, true
		}
	}

	var open []domain.EntityRef
	for _, ref := range e.registry.NotionsFor(entityType) {
		if !state.Memory.Has(ref.Alias) {
			open = append(open, ref)
		}
	}
	if len(open) == 1 {
		return open[0], true
	}
	return domain.EntityRef{}, false
}
