package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	conversationID := "contract-test-conversation-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewConversationState(conversationID)
		state.Memory["name"] = map[string]any{"raw": "Jean", "value": "jean"}
		state.Memory["city"] = "Paris"
		state.MarkDone("Greetings")
		state.LastAction = "Order"
		state.UserData["channel"] = "web"

		err := store.Save(ctx, conversationID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conversationID, loaded.ConversationID)
		assert.Equal(t, "Paris", loaded.Memory["city"])
		assert.Equal(t, map[string]any{"raw": "Jean", "value": "jean"}, loaded.Memory["name"])
		assert.Equal(t, []string{"Greetings"}, loaded.Completed())
		assert.Equal(t, "Order", loaded.LastAction)
		assert.Equal(t, "web", loaded.UserData["channel"])
	})

	t.Run("Saved state is a snapshot", func(t *testing.T) {
		state := domain.NewConversationState(conversationID)
		require.NoError(t, store.Save(ctx, conversationID, state))

		state.Memory["late"] = "write"
		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err)
		assert.NotContains(t, loaded.Memory, "late")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+conversationID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, conversationID, domain.NewConversationState(conversationID))
		require.NoError(t, err)

		err = store.Delete(ctx, conversationID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, conversationID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := conversationID + "-1"
		id2 := conversationID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversationState(id1))
		_ = store.Save(ctx, id2, domain.NewConversationState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
