package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Turn outcomes reported to lifecycle hooks.
const (
	OutcomeReply    = "reply"
	OutcomeFallback = "fallback"
	OutcomeNoIntent = "no_intent"
	OutcomeError    = "error"
)

// TurnResult is what one turn produced.
type TurnResult struct {
	// Replies are picked and expanded, in order: transition, rejection,
	// primary reply, chained reply.
	Replies []any
	// Action is the action attempted this turn ("" when none).
	Action string
	// Blocked is the action whose OR dependency group stopped resolution.
	Blocked string
	// Chained is the action attempted right after Action completed.
	Chained string
	// Completed is true when Action was marked done.
	Completed bool
	// Ended is true when the conversation was reset by an ending action.
	Ended bool
	// Fallback is true when the fallback reply was used.
	Fallback bool
}

// Turn runs one conversational turn: select, resolve, reconcile, execute,
// persist and assemble the replies. The state is mutated in place.
func (e *Engine) Turn(ctx context.Context, state *domain.ConversationState, analysis *domain.Analysis) (*TurnResult, error) {
	if analysis == nil {
		analysis = &domain.Analysis{}
	}
	state.Normalize()

	intent := ""
	if top, ok := analysis.TopIntent(); ok {
		intent = top.Slug
	}

	start := time.Now()
	e.emitTurnStart(ctx, state.ConversationID, intent)

	result, err := e.turn(ctx, state, analysis, intent)

	ev := &domain.TurnEvent{Intent: intent, Duration: time.Since(start), Err: err}
	ev.ConversationID = state.ConversationID
	switch {
	case err == nil && result.Fallback:
		ev.Outcome = OutcomeFallback
	case err == nil:
		ev.Outcome = OutcomeReply
	case errors.Is(err, domain.ErrNoIntentMatched), errors.Is(err, domain.ErrNoActionForIntent):
		ev.Outcome = OutcomeNoIntent
	default:
		ev.Outcome = OutcomeError
	}
	if result != nil {
		ev.Replies = len(result.Replies)
	}
	e.emitTurnEnd(ctx, ev)

	if err != nil {
		e.logger.Debug("turn failed", "conversation_id", state.ConversationID, "intent", intent, "error", err)
		return nil, err
	}
	return result, nil
}

func (e *Engine) turn(ctx context.Context, state *domain.ConversationState, analysis *domain.Analysis, intent string) (*TurnResult, error) {
	language := analysis.Language

	// SELECT
	var selected *domain.Action
	if intent != "" {
		selected = e.RetrieveAction(state, intent)
		if selected == nil {
			return nil, &domain.NoActionForIntentError{Intent: intent}
		}
	} else {
		selected = e.SearchWithoutIntent(state, analysis.Entities)
		if selected == nil {
			fallback := e.FallbackReplies()
			if fallback == nil {
				return nil, domain.ErrNoIntentMatched
			}
			return &TurnResult{
				Replies:  e.assemble([]any{fallback}, language, state.Memory),
				Fallback: true,
			}, nil
		}
	}

	// RESOLVE
	res, err := e.Resolve(state, selected)
	if err != nil {
		return nil, err
	}
	result := &TurnResult{}
	if res.Action != nil {
		result.Action = res.Action.Name
		state.LastAction = res.Action.Name
	} else {
		result.Blocked = res.Blocked.Name
		state.LastAction = res.Blocked.Name
	}
	e.emitActionSelected(ctx, state.ConversationID, result.Action, result.Blocked)
	e.logger.Debug("action selected",
		"conversation_id", state.ConversationID,
		"intent", intent,
		"action", result.Action,
		"blocked", result.Blocked)

	// RECONCILE
	rejection, err := e.Reconcile(ctx, state, analysis, res.Action)
	if err != nil {
		return nil, err
	}

	// EXECUTE
	var primary, chained any
	memory := state.Memory
	if res.Action != nil {
		turn := &domain.TurnContext{State: state, Analysis: analysis, Actions: e.registry}
		primary, chained, memory, err = e.execute(ctx, turn, res.Action, result)
		if err != nil {
			return nil, err
		}
	}

	// PERSIST
	if e.store != nil {
		if err := e.store.Save(ctx, state.ConversationID, state); err != nil {
			e.logger.Error("failed to persist conversation", "conversation_id", state.ConversationID, "error", err)
			return nil, fmt.Errorf("persist conversation %q: %w", state.ConversationID, err)
		}
	}

	// REPLY
	result.Replies = e.assemble([]any{res.Transition, rejection, primary, chained}, language, memory)
	return result, nil
}

// execute attempts the action and its chained successor. It returns the
// memory replies should be expanded against, which outlives a reset.
func (e *Engine) execute(ctx context.Context, turn *domain.TurnContext, action *domain.Action, result *TurnResult) (primary, chained any, memory domain.Memory, err error) {
	state := turn.State

	primary, ready, err := e.attempt(ctx, turn, action)
	if err != nil {
		return nil, nil, nil, err
	}
	memory = state.Memory
	if !ready {
		return primary, nil, memory, nil
	}

	complete, err := action.IsComplete(e.registry, state)
	if err != nil {
		return nil, nil, nil, err
	}
	if !complete {
		return primary, nil, memory, nil
	}

	state.MarkDone(action.Name)
	result.Completed = true
	e.emitActionDone(ctx, state.ConversationID, action.Name, false)

	switch {
	case action.EndsConversation:
		memory = state.Memory.Clone()
		state.Reset()
		result.Ended = true
		e.logger.Debug("conversation ended", "conversation_id", state.ConversationID, "action", action.Name)
	case action.Next != "":
		next, ok := e.registry.Action(action.Next)
		if !ok {
			return nil, nil, nil, &domain.ReferentialError{Action: action.Name, Missing: action.Next}
		}
		chained, _, err = e.attempt(ctx, turn, next)
		if err != nil {
			return nil, nil, nil, err
		}
		result.Chained = next.Name
	}
	return primary, chained, memory, nil
}

// attempt runs one action. ErrNotReady from a producer yields no reply and
// ready=false so the action is not marked done.
func (e *Engine) attempt(ctx context.Context, turn *domain.TurnContext, action *domain.Action) (reply any, ready bool, err error) {
	reply, err = action.Attempt(ctx, turn, e.choose)
	if errors.Is(err, domain.ErrNotReady) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return reply, true, nil
}

// assemble picks one value per reply for the language, expands templates and
// drops empty entries.
func (e *Engine) assemble(values []any, language string, memory domain.Memory) []any {
	replies := make([]any, 0, len(values))
	for _, v := range values {
		picked := domain.PickReply(v, language, e.choose)
		if picked == nil {
			continue
		}
		replies = append(replies, Evaluate(picked, memory))
	}
	return replies
}
