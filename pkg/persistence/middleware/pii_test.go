package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/pkg/adapters/memory"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn", "^email$"})(underlying)

	ctx := context.Background()
	state := domain.NewConversationState("pii")
	state.Memory["email"] = domain.Entity{"raw": "jdoe@example.com"}
	state.Memory["city"] = domain.Entity{"raw": "Lyon", "ssn_hint": "999"}
	state.UserData["username"] = "jdoe"
	state.UserData["user_password"] = "secret123"
	state.UserData["details"] = map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}

	require.NoError(t, secure.Save(ctx, "pii", state))

	assert.Equal(t, "secret123", state.UserData["user_password"], "caller state is not modified")
	assert.Equal(t, "999", state.Memory["city"].(domain.Entity)["ssn_hint"])

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)

	assert.Equal(t, middleware.Mask, stored.Memory["email"])
	assert.Equal(t, "jdoe", stored.UserData["username"])
	assert.Equal(t, middleware.Mask, stored.UserData["user_password"])

	city := stored.Memory["city"].(domain.Entity)
	assert.Equal(t, "Lyon", city["raw"])
	assert.Equal(t, middleware.Mask, city["ssn_hint"])

	details := stored.UserData["details"].(map[string]any)
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, middleware.Mask, details["ssn_number"])
}

func TestChain(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"password"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	state := domain.NewConversationState("chained")
	state.UserData["password"] = "hunter2"
	require.NoError(t, store.Save(ctx, "chained", state))

	loaded, err := store.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.UserData["password"], "masked before sealing")

	raw, err := underlying.Load(ctx, "chained")
	require.NoError(t, err)
	assert.NotContains(t, raw.UserData, "password")
}
