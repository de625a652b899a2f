package runtime

import (
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// Resolution is the outcome of walking unmet dependencies.
type Resolution struct {
	// Action is the node to attempt, nil when the walk stopped on an OR group.
	Action *domain.Action
	// Blocked is the node whose OR group could not be decided (Action is nil).
	Blocked *domain.Action
	// Transition is the prompt of the last unmet dependency group visited.
	Transition any
}

// Resolve walks from start down unmet dependency groups until it reaches an
// actionable node. A missing group with several candidates stops the walk:
// the user has to pick one on the next turn.
func (e *Engine) Resolve(state *domain.ConversationState, start *domain.Action) (Resolution, error) {
	var res Resolution
	action := start

	// The registry rejects cycles, so the walk visits each action at most once.
	for steps := 0; steps <= e.registry.Len(); steps++ {
		missing, err := action.MissingDependencyGroups(e.registry, state)
		if err != nil {
			return Resolution{}, err
		}
		if len(missing) == 0 {
			res.Action = action
			return res, nil
		}

		group := domain.Pick(e.choose, missing)
		res.Transition = group.IsMissing

		if len(group.Actions) > 1 {
			res.Blocked = action
			return res, nil
		}

		next, ok := e.registry.Action(group.Actions[0])
		if !ok {
			return Resolution{}, &domain.ReferentialError{Action: action.Name, Missing: group.Actions[0]}
		}
		action = next
	}

	return Resolution{}, &domain.ConfigurationError{Action: start.Name, Reason: "dependency walk did not terminate"}
}
