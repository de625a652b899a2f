package runtime

import (
	"fmt"
	"regexp"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

var placeholder = regexp.MustCompile(`{{\s*([a-zA-Z0-9\-_]+)\.?([a-zA-Z0-9\-_]+)?\s*}}`)

// Expand replaces {{alias}} and {{alias.field}} placeholders with memory
// values. Plain strings expand to themselves; structured values expand to the
// requested field (raw by default). Unknown aliases and fields expand to "".
func Expand(text string, memory domain.Memory) string {
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholder.FindStringSubmatch(match)
		alias, field := groups[1], groups[2]

		if !memory.Has(alias) {
			return ""
		}
		value := memory[alias]
		if s, ok := value.(string); ok {
			return s
		}
		return fieldString(value, field)
	})
}

func fieldString(value any, field string) string {
	if field == "" {
		field = domain.DefaultEntityField
	}

	var v any
	switch m := value.(type) {
	case domain.Entity:
		v = m[field]
	case map[string]any:
		v = m[field]
	case map[string]string:
		s, ok := m[field]
		if !ok {
			return ""
		}
		return s
	default:
		return ""
	}

	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Evaluate expands value when it is a string and returns it untouched otherwise.
func Evaluate(value any, memory domain.Memory) any {
	if s, ok := value.(string); ok {
		return Expand(s, memory)
	}
	return value
}
