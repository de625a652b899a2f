package middleware

import (
	"context"
	"regexp"

	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// Mask replaces every value whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, on save, the memory slots
// and user data entries whose key matches one of the patterns. Nested maps
// (entities included) are masked recursively. The caller's state is never
// modified.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, conversationID string, state *domain.ConversationState) error {
	cloned := state.Clone()
	cloned.Memory = domain.Memory(m.mask(deepCopyMap(state.Memory)))
	cloned.UserData = m.mask(deepCopyMap(state.UserData))

	return m.next.Save(ctx, conversationID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		switch sub := v.(type) {
		case map[string]any:
			out[k] = deepCopyMap(sub)
		case domain.Entity:
			out[k] = domain.Entity(deepCopyMap(sub))
		default:
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) mask(values map[string]any) map[string]any {
	for k, v := range values {
		if m.sensitive(k) {
			values[k] = Mask
			continue
		}
		switch sub := v.(type) {
		case map[string]any:
			m.mask(sub)
		case domain.Entity:
			m.mask(sub)
		}
	}
	return values
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
