package domain

import (
	"context"
	"fmt"
	"slices"
)

// Validator checks (and may transform) an entity before it is written to memory.
// Returning a nil or empty result stores the raw entity. Returning an error
// refuses the entity; use Reject to attach a reply payload to the refusal.
type Validator func(ctx context.Context, entity Entity, memory Memory) (any, error)

// EntityRef binds an entity type reported by the classifier to a memory alias.
type EntityRef struct {
	Entity    string
	Alias     string
	Validator Validator
}

// NotionGroup is satisfied when at least one of its aliases is filled in memory.
type NotionGroup struct {
	Entities []EntityRef
	// IsMissing is the reply value used to ask for this notion.
	IsMissing any
}

// Filled reports whether one of the group's aliases is present in memory.
func (g NotionGroup) Filled(memory Memory) bool {
	return slices.ContainsFunc(g.Entities, func(e EntityRef) bool {
		return memory.Has(e.Alias)
	})
}

// DependencyGroup is satisfied when at least one of its actions is done.
type DependencyGroup struct {
	Actions []string
	// IsMissing is the transition message used when the group blocks an action.
	IsMissing any
}

// Lookup resolves action names. It is implemented by the registry.
type Lookup interface {
	Action(name string) (*Action, bool)
}

// TurnContext is what a ReplyProducer sees when an action runs.
type TurnContext struct {
	State    *ConversationState
	Analysis *Analysis
	Actions  Lookup
}

// ReplyProducer is the execution strategy attached to an action.
type ReplyProducer interface {
	Reply(ctx context.Context, turn *TurnContext) (any, error)
}

// ReplyFunc adapts a function to ReplyProducer.
type ReplyFunc func(ctx context.Context, turn *TurnContext) (any, error)

// Reply calls f.
func (f ReplyFunc) Reply(ctx context.Context, turn *TurnContext) (any, error) {
	return f(ctx, turn)
}

// StaticReply always replies with the same value (typically Choices or Localized).
type StaticReply struct {
	Value any
}

// Reply returns the static value.
func (s StaticReply) Reply(context.Context, *TurnContext) (any, error) {
	return s.Value, nil
}

// Action is one dialog step. It is immutable once registered.
type Action struct {
	Name         string
	Intent       string
	Notions      []NotionGroup
	Dependencies []DependencyGroup
	// Next names an action attempted right after this one completes.
	Next string
	// EndsConversation resets the conversation once this action completes.
	EndsConversation bool
	// Producer builds the reply once the action is complete. Optional.
	Producer ReplyProducer
}

// Validate performs the structural checks run at registration.
func (a *Action) Validate() error {
	if a == nil {
		return &ConfigurationError{Reason: "action is nil"}
	}
	if a.Name == "" {
		return &ConfigurationError{Reason: "name is required"}
	}
	if a.Intent == "" {
		return &ConfigurationError{Action: a.Name, Reason: "intent is required"}
	}

	aliases := make(map[string]bool)
	for i, notion := range a.Notions {
		for j, ref := range notion.Entities {
			if ref.Entity == "" || ref.Alias == "" {
				return &ConfigurationError{
					Action: a.Name,
					Reason: fmt.Sprintf("notion %d entity %d: entity and alias are required", i, j),
				}
			}
			if aliases[ref.Alias] {
				return &ConfigurationError{
					Action: a.Name,
					Reason: fmt.Sprintf("notion %d: alias %q is declared more than once", i, ref.Alias),
				}
			}
			aliases[ref.Alias] = true
		}
	}

	for i, dep := range a.Dependencies {
		if len(dep.Actions) == 0 {
			return &ConfigurationError{
				Action: a.Name,
				Reason: fmt.Sprintf("dependency %d: at least one action is required", i),
			}
		}
		for _, name := range dep.Actions {
			if name == "" {
				return &ConfigurationError{
					Action: a.Name,
					Reason: fmt.Sprintf("dependency %d: action names must be non-empty", i),
				}
			}
			if name == a.Name {
				return &ConfigurationError{Action: a.Name, Reason: "action depends on itself"}
			}
		}
	}

	if a.Next == a.Name {
		return &ConfigurationError{Action: a.Name, Reason: "action chains to itself"}
	}
	return nil
}

// IsDone reports whether the action is marked done in the conversation.
func (a *Action) IsDone(state *ConversationState) bool {
	return state.IsDone(a.Name)
}

// DependsOn reports whether name appears in any dependency group.
func (a *Action) DependsOn(name string) bool {
	for _, dep := range a.Dependencies {
		if slices.Contains(dep.Actions, name) {
			return true
		}
	}
	return false
}

// AllDependencies returns every action name referenced by the dependency groups.
func (a *Action) AllDependencies() []string {
	var names []string
	for _, dep := range a.Dependencies {
		names = append(names, dep.Actions...)
	}
	return names
}

// AllNotions returns every entity reference of every notion group.
func (a *Action) AllNotions() []EntityRef {
	var refs []EntityRef
	for _, n := range a.Notions {
		refs = append(refs, n.Entities...)
	}
	return refs
}

// NotionFor returns the first entity reference bound to the entity type.
func (a *Action) NotionFor(entityType string) (EntityRef, bool) {
	for _, n := range a.Notions {
		for _, ref := range n.Entities {
			if ref.Entity == entityType {
				return ref, true
			}
		}
	}
	return EntityRef{}, false
}

func (a *Action) groupDone(actions Lookup, state *ConversationState, dep DependencyGroup) (bool, error) {
	done := false
	for _, name := range dep.Actions {
		required, ok := actions.Action(name)
		if !ok {
			return false, &ReferentialError{Action: a.Name, Missing: name}
		}
		if required.IsDone(state) {
			done = true
		}
	}
	return done, nil
}

// DependenciesSatisfied reports whether every dependency group has at least
// one done action (OR within a group, AND across groups).
func (a *Action) DependenciesSatisfied(actions Lookup, state *ConversationState) (bool, error) {
	for _, dep := range a.Dependencies {
		done, err := a.groupDone(actions, state, dep)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
	}
	return true, nil
}

// NotionsSatisfied reports whether every notion group has a filled alias.
func (a *Action) NotionsSatisfied(memory Memory) bool {
	for _, n := range a.Notions {
		if !n.Filled(memory) {
			return false
		}
	}
	return true
}

// IsComplete reports whether both dependencies and notions are satisfied.
func (a *Action) IsComplete(actions Lookup, state *ConversationState) (bool, error) {
	ok, err := a.DependenciesSatisfied(actions, state)
	if err != nil || !ok {
		return false, err
	}
	return a.NotionsSatisfied(state.Memory), nil
}

// MissingNotionGroups returns the notion groups with no filled alias.
func (a *Action) MissingNotionGroups(memory Memory) []NotionGroup {
	var missing []NotionGroup
	for _, n := range a.Notions {
		if !n.Filled(memory) {
			missing = append(missing, n)
		}
	}
	return missing
}

// MissingDependencyGroups returns the dependency groups where no action is done.
func (a *Action) MissingDependencyGroups(actions Lookup, state *ConversationState) ([]DependencyGroup, error) {
	var missing []DependencyGroup
	for _, dep := range a.Dependencies {
		done, err := a.groupDone(actions, state, dep)
		if err != nil {
			return nil, err
		}
		if !done {
			missing = append(missing, dep)
		}
	}
	return missing, nil
}

// Attempt runs the action for this turn. A complete action asks its producer
// for a reply; an incomplete one returns the prompt of a missing notion group
// picked with choose.
func (a *Action) Attempt(ctx context.Context, turn *TurnContext, choose Chooser) (any, error) {
	complete, err := a.IsComplete(turn.Actions, turn.State)
	if err != nil {
		return nil, err
	}
	if complete {
		if a.Producer == nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, ErrNoReplyAvailable)
		}
		reply, err := a.Producer.Reply(ctx, turn)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, err)
		}
		return reply, nil
	}

	missing := a.MissingNotionGroups(turn.State.Memory)
	if len(missing) == 0 {
		// Notions are filled but dependencies are not: nothing to ask for.
		return nil, nil
	}
	return Pick(choose, missing).IsMissing, nil
}

// ActionInfo is the serializable description of an action.
type ActionInfo struct {
	Name             string         `json:"name"`
	Intent           string         `json:"intent"`
	Notions          [][]EntityInfo `json:"notions,omitempty"`
	Dependencies     [][]string     `json:"dependencies,omitempty"`
	Next             string         `json:"next,omitempty"`
	EndsConversation bool           `json:"end_conversation,omitempty"`
	HasReply         bool           `json:"has_reply"`
}

// EntityInfo describes an entity reference.
type EntityInfo struct {
	Entity string `json:"entity"`
	Alias  string `json:"alias"`
}

// Describe returns the serializable description of the action.
func (a *Action) Describe() ActionInfo {
	info := ActionInfo{
		Name:             a.Name,
		Intent:           a.Intent,
		Next:             a.Next,
		EndsConversation: a.EndsConversation,
		HasReply:         a.Producer != nil,
	}
	for _, n := range a.Notions {
		group := make([]EntityInfo, 0, len(n.Entities))
		for _, ref := range n.Entities {
			group = append(group, EntityInfo{Entity: ref.Entity, Alias: ref.Alias})
		}
		info.Notions = append(info.Notions, group)
	}
	for _, dep := range a.Dependencies {
		info.Dependencies = append(info.Dependencies, slices.Clone(dep.Actions))
	}
	return info
}
