package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

func confirmationGraph() []*domain.Action {
	return []*domain.Action{
		{Name: "Start", Intent: "start"},
		{Name: "YesA", Intent: "yes", Dependencies: []domain.DependencyGroup{requires(nil, "Start")}},
		{Name: "YesB", Intent: "yes", Dependencies: []domain.DependencyGroup{requires(nil, "Start")}},
		{Name: "NoA", Intent: "no", Dependencies: []domain.DependencyGroup{requires(nil, "YesA")}},
		{Name: "NoB", Intent: "no", Dependencies: []domain.DependencyGroup{requires(nil, "YesB")}},
	}
}

func TestRetrieveAction_Ambiguity(t *testing.T) {
	engine := newEngine(t, confirmationGraph())
	state := domain.NewConversationState("c")
	state.MarkDone("Start")

	got := engine.RetrieveAction(state, "yes")
	require.NotNil(t, got)
	assert.Equal(t, "YesA", got.Name, "first registered match without history")

	state.MarkDone("YesB")
	state.LastAction = "YesB"
	got = engine.RetrieveAction(state, "no")
	require.NotNil(t, got)
	assert.Equal(t, "NoB", got.Name, "dependent of the last done action")
}

func TestRetrieveAction_PrefersPendingLastAction(t *testing.T) {
	engine := newEngine(t, confirmationGraph())
	state := domain.NewConversationState("c")
	state.MarkDone("Start")
	state.LastAction = "YesB"

	got := engine.RetrieveAction(state, "yes")
	require.NotNil(t, got)
	assert.Equal(t, "YesB", got.Name)
}

func TestRetrieveAction_NoMatch(t *testing.T) {
	engine := newEngine(t, confirmationGraph())
	assert.Nil(t, engine.RetrieveAction(domain.NewConversationState("c"), "unknown"))
}

func TestFindDeepestIncomplete(t *testing.T) {
	// Leaf -> Mid -> Root: Root is the deepest from the leaf set.
	actions := []*domain.Action{
		{Name: "Root", Intent: "ask"},
		{Name: "Mid", Intent: "ask", Dependencies: []domain.DependencyGroup{requires(nil, "Root")}},
		{Name: "Leaf", Intent: "ask", Dependencies: []domain.DependencyGroup{requires(nil, "Mid")}},
		{Name: "Other", Intent: "other"},
	}
	engine := newEngine(t, actions)
	state := domain.NewConversationState("c")

	got := engine.FindDeepestIncomplete(state, "ask")
	require.NotNil(t, got)
	assert.Equal(t, "Root", got.Name)

	state.MarkDone("Root")
	got = engine.FindDeepestIncomplete(state, "ask")
	require.NotNil(t, got)
	assert.Equal(t, "Mid", got.Name)

	state.MarkDone("Mid")
	state.MarkDone("Leaf")
	assert.Nil(t, engine.FindDeepestIncomplete(state, "ask"))
}

func TestFindDeepestIncomplete_TieGoesToFirstSeen(t *testing.T) {
	actions := []*domain.Action{
		{Name: "A", Intent: "pick"},
		{Name: "B", Intent: "pick"},
		{Name: "Top", Intent: "top", Dependencies: []domain.DependencyGroup{
			requires(nil, "A"),
			requires(nil, "B"),
		}},
	}
	engine := newEngine(t, actions)

	got := engine.FindDeepestIncomplete(domain.NewConversationState("c"), "pick")
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Name)
}

func TestSearchWithoutIntent(t *testing.T) {
	engine := newEngine(t, shopGraph())
	date := map[string][]domain.Entity{"datetime": {{"raw": "tomorrow"}}}

	t.Run("no last action", func(t *testing.T) {
		assert.Nil(t, engine.SearchWithoutIntent(domain.NewConversationState("c"), date))
	})

	t.Run("last action answers its own open notion", func(t *testing.T) {
		state := domain.NewConversationState("c")
		state.LastAction = "Delivery"
		got := engine.SearchWithoutIntent(state, date)
		require.NotNil(t, got)
		assert.Equal(t, "Delivery", got.Name)
	})

	t.Run("notion already filled", func(t *testing.T) {
		state := domain.NewConversationState("c")
		state.LastAction = "Delivery"
		state.Memory["delivery-date"] = "today"
		assert.Nil(t, engine.SearchWithoutIntent(state, date))
	})

	t.Run("several instances are not a single answer", func(t *testing.T) {
		state := domain.NewConversationState("c")
		state.LastAction = "Delivery"
		two := map[string][]domain.Entity{"datetime": {{"raw": "today"}, {"raw": "tomorrow"}}}
		assert.Nil(t, engine.SearchWithoutIntent(state, two))
	})

	t.Run("single dependent", func(t *testing.T) {
		actions := []*domain.Action{
			{Name: "Ask", Intent: "ask"},
			{Name: "Follow", Intent: "follow", Dependencies: []domain.DependencyGroup{requires(nil, "Ask")},
				Notions: []domain.NotionGroup{notion("number", "count", nil)}},
		}
		engine := newEngine(t, actions)
		state := domain.NewConversationState("c")
		state.LastAction = "Ask"

		got := engine.SearchWithoutIntent(state, map[string][]domain.Entity{"number": {{"raw": "3"}}})
		require.NotNil(t, got)
		assert.Equal(t, "Follow", got.Name)
	})
}
