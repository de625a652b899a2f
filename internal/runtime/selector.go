package runtime

import (
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// RetrieveAction returns the action to attempt for intent, or nil when no
// registered action carries it. When several actions share the intent the
// conversation history breaks the tie.
func (e *Engine) RetrieveAction(state *domain.ConversationState, intent string) *domain.Action {
	matches := e.registry.WithIntent(intent)
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return matches[0]
	}

	if last, ok := e.registry.Action(state.LastAction); ok {
		if last.IsDone(state) {
			for _, m := range matches {
				if m.DependsOn(last.Name) {
					return m
				}
			}
		} else {
			for _, m := range matches {
				if m.Name == last.Name {
					return m
				}
			}
		}
	}

	if deepest := e.FindDeepestIncomplete(state, intent); deepest != nil {
		return deepest
	}
	return matches[0]
}

// FindDeepestIncomplete walks the graph breadth-first from the leaves along
// dependency edges and returns the not-done action matching intent found at
// the highest level. Ties go to the first action seen.
func (e *Engine) FindDeepestIncomplete(state *domain.ConversationState, intent string) *domain.Action {
	var (
		best      *domain.Action
		bestLevel = -1
	)

	queue := e.registry.Leaves()
	for level := 0; len(queue) > 0; level++ {
		var next []*domain.Action
		seen := make(map[string]bool)

		for _, a := range queue {
			if a.Intent == intent && !a.IsDone(state) && level > bestLevel {
				best, bestLevel = a, level
			}
			for _, name := range a.AllDependencies() {
				dep, ok := e.registry.Action(name)
				if !ok || seen[name] {
					continue
				}
				seen[name] = true
				next = append(next, dep)
			}
		}
		queue = next
	}
	return best
}

// SearchWithoutIntent picks an action from context when the classifier found
// no intent: the last action, or its single dependent, when the entities
// plausibly answer one of its open notions.
func (e *Engine) SearchWithoutIntent(state *domain.ConversationState, entities map[string][]domain.Entity) *domain.Action {
	last, ok := e.registry.Action(state.LastAction)
	if !ok {
		return nil
	}
	if e.ShouldChoose(last, state, entities) {
		return last
	}

	dependents := e.registry.Dependents(last.Name)
	if len(dependents) == 1 && e.ShouldChoose(dependents[0], state, entities) {
		return dependents[0]
	}
	return nil
}

// ShouldChoose reports whether some entity type arrives with exactly one
// instance and maps to a notion of action whose alias is still empty.
func (e *Engine) ShouldChoose(action *domain.Action, state *domain.ConversationState, entities map[string][]domain.Entity) bool {
	for entityType, instances := range entities {
		if len(instances) != 1 {
			continue
		}
		ref, ok := action.NotionFor(entityType)
		if ok && !state.Memory.Has(ref.Alias) {
			return true
		}
	}
	return false
}
