package observability

import (
	"context"
	"log/slog"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Turn ends are logged at Info,
// or at Warn when the turn failed; everything else at Debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start",
				"conversation_id", e.ConversationID,
				"intent", e.Intent,
			)
		},
		OnActionSelected: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_selected",
				"conversation_id", e.ConversationID,
				"action", e.Action,
				"blocked", e.Blocked,
				"chained", e.Chained,
			)
		},
		OnActionDone: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_done",
				"conversation_id", e.ConversationID,
				"action", e.Action,
			)
		},
		OnValidationRejected: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.DebugContext(ctx, "validation_rejected",
				"conversation_id", e.ConversationID,
				"alias", e.Alias,
				"entity", e.Entity,
			)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{
				"conversation_id", e.ConversationID,
				"intent", e.Intent,
				"outcome", e.Outcome,
				"replies", e.Replies,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_end", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "turn_end", attrs...)
		},
	}
}
