package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// RejectExitCode is the exit status of a validator refusing an entity.
const RejectExitCode = 1

// ProducerInput is written to the stdin of a reply producer.
type ProducerInput struct {
	ConversationID string           `json:"conversation_id"`
	LastAction     string           `json:"last_action,omitempty"`
	Memory         domain.Memory    `json:"memory"`
	Analysis       *domain.Analysis `json:"analysis,omitempty"`
}

// ValidatorInput is written to the stdin of a validator.
type ValidatorInput struct {
	Entity domain.Entity `json:"entity"`
	Memory domain.Memory `json:"memory"`
}

// Producer returns a reply producer backed by the named process. Its
// output is the reply; an empty output means the action is not ready.
func (r *Runner) Producer(name string) domain.ReplyProducer {
	return domain.ReplyFunc(func(ctx context.Context, turn *domain.TurnContext) (any, error) {
		input := ProducerInput{Memory: domain.Memory{}, Analysis: turn.Analysis}
		if turn.State != nil {
			input.ConversationID = turn.State.ConversationID
			input.LastAction = turn.State.LastAction
			input.Memory = turn.State.Memory
		}

		out, err := r.Run(ctx, name, input)
		if err != nil {
			return nil, err
		}
		if out.ExitCode != 0 {
			return nil, fmt.Errorf("process %s exited with status %d: %s", name, out.ExitCode, strings.TrimSpace(out.Stderr))
		}
		if out.Value == nil {
			return nil, domain.ErrNotReady
		}
		return out.Value, nil
	})
}

// Validator returns a validator backed by the named process. Exit status 0
// accepts the entity, storing the output when there is one. RejectExitCode
// refuses it with the output, or stderr, as the reply.
func (r *Runner) Validator(name string) domain.Validator {
	return func(ctx context.Context, entity domain.Entity, memory domain.Memory) (any, error) {
		out, err := r.Run(ctx, name, ValidatorInput{Entity: entity, Memory: memory})
		if err != nil {
			return nil, err
		}
		switch out.ExitCode {
		case 0:
			return out.Value, nil
		case RejectExitCode:
			if out.Value == nil {
				return nil, domain.Reject(strings.TrimSpace(out.Stderr))
			}
			return nil, domain.Reject(out.Value)
		default:
			return nil, fmt.Errorf("process %s exited with status %d: %s", name, out.ExitCode, strings.TrimSpace(out.Stderr))
		}
	}
}
