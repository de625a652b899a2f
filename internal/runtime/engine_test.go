package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/internal/runtime"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/registry"
)

func notion(entity, alias string, prompt any) domain.NotionGroup {
	return domain.NotionGroup{
		Entities:  []domain.EntityRef{{Entity: entity, Alias: alias}},
		IsMissing: prompt,
	}
}

func requires(prompt any, names ...string) domain.DependencyGroup {
	return domain.DependencyGroup{Actions: names, IsMissing: prompt}
}

func reply(v any) domain.ReplyProducer {
	return domain.StaticReply{Value: v}
}

func newEngine(t *testing.T, actions []*domain.Action, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterAll(actions...))
	opts = append([]runtime.EngineOption{runtime.WithChooser(domain.FirstChooser)}, opts...)
	return runtime.NewEngine(reg, opts...)
}

// shopGraph is the Greetings / Order / Delivery / Goodbyes graph.
func shopGraph() []*domain.Action {
	return []*domain.Action{
		{
			Name:     "Greetings",
			Intent:   "greetings",
			Notions:  []domain.NotionGroup{notion("person", "name", "What is your name?")},
			Producer: reply("Hello {{name}}!"),
		},
		{
			Name:         "Order",
			Intent:       "order",
			Dependencies: []domain.DependencyGroup{requires("Let's start with introductions.", "Greetings")},
			Notions:      []domain.NotionGroup{notion("product", "product", "What would you like?")},
			Producer:     reply("One {{product}} coming up."),
		},
		{
			Name:         "Delivery",
			Intent:       "delivery",
			Dependencies: []domain.DependencyGroup{requires("Let's start with introductions.", "Greetings")},
			Notions:      []domain.NotionGroup{notion("datetime", "delivery-date", "When should we deliver?")},
			Producer:     reply("Delivery on {{delivery-date.formatted}}."),
		},
		{
			Name:   "Goodbyes",
			Intent: "goodbyes",
			Dependencies: []domain.DependencyGroup{
				requires("You have not ordered yet.", "Order"),
				requires("You have not chosen a delivery date.", "Delivery"),
			},
			EndsConversation: true,
			Producer:         reply("Bye {{name}}"),
		},
	}
}
