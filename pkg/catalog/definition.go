package catalog

import (
	"fmt"

	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/schema"
)

// EntityDefinition binds an entity type to a memory alias.
type EntityDefinition struct {
	Entity string `yaml:"entity" json:"entity" mapstructure:"entity"`
	Alias  string `yaml:"alias" json:"alias" mapstructure:"alias"`
	// Type coerces the entity (see package schema). Empty keeps it as is.
	Type string `yaml:"type" json:"type,omitempty" mapstructure:"type"`
	// Invalid is the reply used when the entity does not fit Type.
	Invalid any `yaml:"invalid" json:"invalid,omitempty" mapstructure:"invalid"`
}

// NotionDefinition declares one notion group.
type NotionDefinition struct {
	Entities  []EntityDefinition `yaml:"entities" json:"entities" mapstructure:"entities"`
	IsMissing any                `yaml:"is_missing" json:"is_missing,omitempty" mapstructure:"is_missing"`
}

// DependencyDefinition declares one dependency group.
type DependencyDefinition struct {
	Actions   []string `yaml:"actions" json:"actions" mapstructure:"actions"`
	IsMissing any      `yaml:"is_missing" json:"is_missing,omitempty" mapstructure:"is_missing"`
}

// Definition is the data-only form of an action, as written in catalog files.
type Definition struct {
	Name            string                 `yaml:"name" json:"name" mapstructure:"name"`
	Intent          string                 `yaml:"intent" json:"intent" mapstructure:"intent"`
	Notions         []NotionDefinition     `yaml:"notions" json:"notions,omitempty" mapstructure:"notions"`
	Dependencies    []DependencyDefinition `yaml:"dependencies" json:"dependencies,omitempty" mapstructure:"dependencies"`
	Next            string                 `yaml:"next" json:"next,omitempty" mapstructure:"next"`
	EndConversation bool                   `yaml:"end_conversation" json:"end_conversation,omitempty" mapstructure:"end_conversation"`
	// Replies is a reply value: a string, a list of strings, or a map of
	// language code to either.
	Replies any `yaml:"replies" json:"replies,omitempty" mapstructure:"replies"`
}

type compileConfig struct {
	validators map[string]domain.Validator
	producers  map[string]domain.ReplyProducer
}

// CompileOption customizes how definitions become actions.
type CompileOption func(*compileConfig)

// WithValidators attaches validators to notions by alias.
func WithValidators(validators map[string]domain.Validator) CompileOption {
	return func(c *compileConfig) {
		for alias, v := range validators {
			c.validators[alias] = v
		}
	}
}

// WithProducer replaces the static replies of the named action.
func WithProducer(action string, producer domain.ReplyProducer) CompileOption {
	return func(c *compileConfig) {
		c.producers[action] = producer
	}
}

func newCompileConfig(opts []CompileOption) *compileConfig {
	c := &compileConfig{
		validators: make(map[string]domain.Validator),
		producers:  make(map[string]domain.ReplyProducer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile turns the definition into a validated action.
func (d Definition) Compile(opts ...CompileOption) (*domain.Action, error) {
	return d.compile(newCompileConfig(opts))
}

func (d Definition) compile(cfg *compileConfig) (*domain.Action, error) {
	action := &domain.Action{
		Name:             d.Name,
		Intent:           d.Intent,
		Next:             d.Next,
		EndsConversation: d.EndConversation,
	}

	for _, n := range d.Notions {
		group := domain.NotionGroup{IsMissing: ReplyValue(n.IsMissing)}
		for _, e := range n.Entities {
			validator, err := e.validator(d.Name, cfg)
			if err != nil {
				return nil, err
			}
			group.Entities = append(group.Entities, domain.EntityRef{
				Entity:    e.Entity,
				Alias:     e.Alias,
				Validator: validator,
			})
		}
		action.Notions = append(action.Notions, group)
	}

	for _, dep := range d.Dependencies {
		action.Dependencies = append(action.Dependencies, domain.DependencyGroup{
			Actions:   dep.Actions,
			IsMissing: ReplyValue(dep.IsMissing),
		})
	}

	if p, ok := cfg.producers[d.Name]; ok {
		action.Producer = p
	} else if d.Replies != nil {
		action.Producer = domain.StaticReply{Value: ReplyValue(d.Replies)}
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}
	return action, nil
}

// validator runs the type coercion, if any, before the validator
// registered for the alias.
func (e EntityDefinition) validator(action string, cfg *compileConfig) (domain.Validator, error) {
	custom := cfg.validators[e.Alias]
	if e.Type == "" {
		return custom, nil
	}
	t, err := schema.ParseType(e.Type)
	if err != nil {
		return nil, &domain.ConfigurationError{Action: action, Reason: fmt.Sprintf("notion %q: %v", e.Alias, err)}
	}
	return schema.Chain(schema.Validator(e.Alias, t, ReplyValue(e.Invalid)), custom), nil
}

// CompileAll compiles definitions in order and fails on the first invalid one.
// Names must be unique across the catalog.
func CompileAll(defs []Definition, opts ...CompileOption) ([]*domain.Action, error) {
	cfg := newCompileConfig(opts)
	seen := make(map[string]bool, len(defs))
	actions := make([]*domain.Action, 0, len(defs))

	for _, d := range defs {
		if seen[d.Name] {
			return nil, &domain.ConfigurationError{Action: d.Name, Reason: "defined more than once in the catalog"}
		}
		seen[d.Name] = true

		a, err := d.compile(cfg)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// ReplyValue converts a decoded reply (YAML, JSON or frontmatter) into the
// reply kinds the engine understands: lists of strings become Choices and
// maps become Localized. Anything else is kept as a literal.
func ReplyValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, domain.Choices, domain.Localized:
		return x
	case []string:
		return domain.Choices(x)
	case []any:
		choices := make(domain.Choices, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				// Mixed lists are structured replies (e.g. cards).
				return x
			}
			choices = append(choices, s)
		}
		return choices
	case map[string]any:
		localized := make(domain.Localized, len(x))
		for lang, entry := range x {
			localized[lang] = ReplyValue(entry)
		}
		return localized
	case map[string]string:
		localized := make(domain.Localized, len(x))
		for lang, entry := range x {
			localized[lang] = entry
		}
		return localized
	default:
		return x
	}
}
