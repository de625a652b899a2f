package dsl

import (
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/schema"
)

// ActionBuilder provides a fluent API for configuring an action.
type ActionBuilder struct {
	action *domain.Action
	errs   []error
}

func (a *ActionBuilder) fail(reason string) *ActionBuilder {
	a.errs = append(a.errs, &domain.ConfigurationError{Action: a.action.Name, Reason: reason})
	return a
}

// On sets the intent that triggers the action.
func (a *ActionBuilder) On(intent string) *ActionBuilder {
	a.action.Intent = intent
	return a
}

// Needs starts a new notion group filled by the entity type under alias.
func (a *ActionBuilder) Needs(entity, alias string) *ActionBuilder {
	a.action.Notions = append(a.action.Notions, domain.NotionGroup{
		Entities: []domain.EntityRef{{Entity: entity, Alias: alias}},
	})
	return a
}

// Or adds an alternative entity to the last notion group.
func (a *ActionBuilder) Or(entity, alias string) *ActionBuilder {
	group := a.lastNotion()
	if group == nil {
		return a.fail("Or called before Needs")
	}
	group.Entities = append(group.Entities, domain.EntityRef{Entity: entity, Alias: alias})
	return a
}

// Ask sets the reply used to ask for the last notion group.
func (a *ActionBuilder) Ask(reply any) *ActionBuilder {
	group := a.lastNotion()
	if group == nil {
		return a.fail("Ask called before Needs")
	}
	group.IsMissing = reply
	return a
}

// As coerces the last entity to t. When it does not fit, the entity is
// rejected with invalid.
func (a *ActionBuilder) As(t schema.Type, invalid any) *ActionBuilder {
	ref := a.lastEntity()
	if ref == nil {
		return a.fail("As called before Needs")
	}
	ref.Validator = schema.Chain(schema.Validator(ref.Alias, t, invalid), ref.Validator)
	return a
}

// Validate adds a validator to the last entity. It runs after the type
// coercion of As.
func (a *ActionBuilder) Validate(v domain.Validator) *ActionBuilder {
	ref := a.lastEntity()
	if ref == nil {
		return a.fail("Validate called before Needs")
	}
	ref.Validator = schema.Chain(ref.Validator, v)
	return a
}

// After adds a dependency group. Several actions are alternatives: any of
// them satisfies the group.
func (a *ActionBuilder) After(actions ...string) *ActionBuilder {
	if len(actions) == 0 {
		return a.fail("After called without actions")
	}
	a.action.Dependencies = append(a.action.Dependencies, domain.DependencyGroup{Actions: actions})
	return a
}

// Otherwise sets the reply used when the last dependency group is missing.
func (a *ActionBuilder) Otherwise(reply any) *ActionBuilder {
	n := len(a.action.Dependencies)
	if n == 0 {
		return a.fail("Otherwise called before After")
	}
	a.action.Dependencies[n-1].IsMissing = reply
	return a
}

// Then chains the named action after this one completes.
func (a *ActionBuilder) Then(next string) *ActionBuilder {
	a.action.Next = next
	return a
}

// Ends marks the action as the end of the conversation.
func (a *ActionBuilder) Ends() *ActionBuilder {
	a.action.EndsConversation = true
	return a
}

// Reply sets a static reply: a string, domain.Choices, domain.Localized or
// any structured value.
func (a *ActionBuilder) Reply(value any) *ActionBuilder {
	a.action.Producer = domain.StaticReply{Value: value}
	return a
}

// Produce sets a computed reply.
func (a *ActionBuilder) Produce(fn domain.ReplyFunc) *ActionBuilder {
	a.action.Producer = fn
	return a
}

// Build returns the underlying action.
// This is primarily used by the Builder, but exposed for advanced usage.
func (a *ActionBuilder) Build() *domain.Action {
	return a.action
}

func (a *ActionBuilder) lastNotion() *domain.NotionGroup {
	n := len(a.action.Notions)
	if n == 0 {
		return nil
	}
	return &a.action.Notions[n-1]
}

func (a *ActionBuilder) lastEntity() *domain.EntityRef {
	group := a.lastNotion()
	if group == nil {
		return nil
	}
	return &group.Entities[len(group.Entities)-1]
}
