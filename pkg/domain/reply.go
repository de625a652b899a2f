package domain

import "math/rand/v2"

// DefaultLanguage is used when a Localized reply has no entry for the turn's language.
const DefaultLanguage = "en"

// Choices is a list of candidate replies; one is picked at random.
type Choices []string

// Localized maps a language code to a reply (a string or Choices).
type Localized map[string]any

// Chooser returns an index in [0, n). It is injected wherever the engine makes
// a random choice so tests can supply a deterministic one.
type Chooser func(n int) int

// RandomChooser picks uniformly using math/rand/v2.
func RandomChooser(n int) int {
	return rand.IntN(n)
}

// FirstChooser always picks the first candidate.
func FirstChooser(int) int { return 0 }

// Pick returns one element of items using choose. It panics on an empty slice.
func Pick[T any](choose Chooser, items []T) T {
	if choose == nil {
		choose = RandomChooser
	}
	if len(items) == 1 {
		return items[0]
	}
	return items[choose(len(items))]
}

// PickReply resolves a reply value for the given language:
//   - Choices, []string and []any pick one element at random;
//   - Localized selects the language entry (falling back to DefaultLanguage)
//     and resolves it again;
//   - anything else is returned untouched.
//
// It returns nil when nothing can be picked.
func PickReply(value any, language string, choose Chooser) any {
	switch v := value.(type) {
	case nil:
		return nil
	case Localized:
		entry, ok := v[language]
		if !ok || entry == nil {
			entry = v[DefaultLanguage]
		}
		if _, nested := entry.(Localized); nested {
			return nil
		}
		return PickReply(entry, language, choose)
	case Choices:
		if len(v) == 0 {
			return nil
		}
		return Pick(choose, []string(v))
	case []string:
		if len(v) == 0 {
			return nil
		}
		return Pick(choose, v)
	case []any:
		if len(v) == 0 {
			return nil
		}
		return Pick(choose, v)
	default:
		return v
	}
}
