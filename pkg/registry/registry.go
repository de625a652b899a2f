package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Registry holds the registered actions keyed by name.
// Registration order is preserved and used to break ties.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*domain.Action
	order   []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*domain.Action),
	}
}

// Register validates and adds an action.
// The registry is left unmodified when the action is rejected.
func (r *Registry) Register(action *domain.Action) error {
	if err := action.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.Name]; exists {
		return &domain.ConfigurationError{Action: action.Name, Reason: "an action with this name is already registered"}
	}

	r.actions[action.Name] = action
	if cycle := r.findCycle(action.Name); cycle != nil {
		delete(r.actions, action.Name)
		return &domain.ConfigurationError{
			Action: action.Name,
			Reason: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
		}
	}
	r.order = append(r.order, action.Name)
	return nil
}

// RegisterAll registers actions in order and stops at the first failure.
// Actions registered before the failure are kept.
func (r *Registry) RegisterAll(actions ...*domain.Action) error {
	for _, a := range actions {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// findCycle walks dependency edges from start through registered actions and
// returns the path back to start, if any. Caller must hold the lock.
func (r *Registry) findCycle(start string) []string {
	visited := make(map[string]bool)
	var walk func(name string, path []string) []string
	walk = func(name string, path []string) []string {
		action, ok := r.actions[name]
		if !ok {
			return nil
		}
		for _, dep := range action.AllDependencies() {
			if dep == start {
				return append(slices.Clone(path), dep)
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if cycle := walk(dep, append(path, dep)); cycle != nil {
				return cycle
			}
		}
		return nil
	}
	return walk(start, []string{start})
}

// Action returns the named action.
func (r *Registry) Action(name string) (*domain.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns the actions in registration order.
func (r *Registry) All() []*domain.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Action, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name])
	}
	return out
}

// WithIntent returns the actions tagged with intent, in registration order.
func (r *Registry) WithIntent(intent string) []*domain.Action {
	return r.filter(func(a *domain.Action) bool { return a.Intent == intent })
}

// Dependents returns the actions listing name in one of their dependency groups.
func (r *Registry) Dependents(name string) []*domain.Action {
	return r.filter(func(a *domain.Action) bool { return a.DependsOn(name) })
}

// Leaves returns the actions no other action depends on.
func (r *Registry) Leaves() []*domain.Action {
	r.mu.RLock()
	referenced := make(map[string]bool)
	for _, a := range r.actions {
		for _, dep := range a.AllDependencies() {
			referenced[dep] = true
		}
	}
	r.mu.RUnlock()

	return r.filter(func(a *domain.Action) bool { return !referenced[a.Name] })
}

// NotionsFor returns every entity reference, across all actions, bound to the
// entity type. References are not deduplicated by alias.
func (r *Registry) NotionsFor(entityType string) []domain.EntityRef {
	var refs []domain.EntityRef
	for _, a := range r.All() {
		for _, ref := range a.AllNotions() {
			if ref.Entity == entityType {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func (r *Registry) filter(keep func(*domain.Action) bool) []*domain.Action {
	var out []*domain.Action
	for _, a := range r.All() {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
