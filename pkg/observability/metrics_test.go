package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics("")
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnActionSelected(ctx, &domain.ActionEvent{Action: "Greetings"})
	hooks.OnActionSelected(ctx, &domain.ActionEvent{Action: "Greetings"})
	hooks.OnActionDone(ctx, &domain.ActionEvent{Action: "Greetings"})
	hooks.OnValidationRejected(ctx, &domain.ValidationEvent{Alias: "age"})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{Outcome: "reply", Duration: 20 * time.Millisecond})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{Outcome: "error", Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsSelected.WithLabelValues("Greetings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsCompleted.WithLabelValues("Greetings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TurnDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics("bot")
	m.Hooks().OnTurnEnd(context.Background(), &domain.TurnEvent{Outcome: "fallback"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bot_turns_total{outcome="fallback"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)
	ctx := context.Background()

	hooks.OnActionSelected(ctx, &domain.ActionEvent{EventBase: domain.EventBase{ConversationID: "c1"}, Action: "Order"})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{Outcome: "error", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "msg=action_selected")
	assert.Contains(t, out, "action=Order")
	assert.Contains(t, out, "level=WARN msg=turn_end")
	assert.Contains(t, out, "err=boom")
}
