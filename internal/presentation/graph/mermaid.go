package graph

import (
	"fmt"
	"strings"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// GraphOverlay contains conversation state to visualize on the graph.
type GraphOverlay struct {
	CompletedActions []string
	LastAction       string
}

// OverlayFromState builds an overlay from a conversation state.
func OverlayFromState(state *domain.ConversationState) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{
		CompletedActions: state.Completed(),
		LastAction:       state.LastAction,
	}
}

// GenerateMermaid produces a Mermaid flowchart of the action graph.
// Edges point from a dependency to the action requiring it; alternatives
// of one dependency group are labeled "or". Chained actions (Next) are
// dotted edges. Node shapes:
// - Entry action (no dependencies): ((Circle))
// - Collects notions: [/Parallelogram/]
// - Ends the conversation: ([Stadium])
// - Default: [Rectangle]
func GenerateMermaid(actions []*domain.Action, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, action := range actions {
		safeID := sanitizeMermaidID(action.Name)

		opener, closer := "[", "]"
		switch {
		case action.EndsConversation:
			opener, closer = "([", "])"
		case len(action.Dependencies) == 0:
			opener, closer = "((", "))"
		case len(action.Notions) > 0:
			opener, closer = "[/", "/]"
		}

		label := escapeLabel(action.Name)
		if action.Intent != "" {
			label = fmt.Sprintf("%s <br/> #%s", label, escapeLabel(action.Intent))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, group := range action.Dependencies {
			arrow := "-->"
			if len(group.Actions) > 1 {
				arrow = "-- \"or\" -->"
			}
			for _, dep := range group.Actions {
				fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(dep), arrow, safeID)
			}
		}

		if action.Next != "" {
			fmt.Fprintf(&sb, "    %s -. \"next\" .-> %s\n", safeID, sanitizeMermaidID(action.Next))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef last fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.CompletedActions {
			safeID := sanitizeMermaidID(name)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s done;\n", safeID)
		}

		if overlay.LastAction != "" {
			fmt.Fprintf(&sb, "    class %s last;\n", sanitizeMermaidID(overlay.LastAction))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/', '\\', ' ', ':', '"':
			return '_'
		}
		return r
	}, id)
}
