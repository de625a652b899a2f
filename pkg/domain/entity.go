package domain

import "sort"

// DefaultEntityField is the field read from an entity when none is specified.
const DefaultEntityField = "raw"

// Entity is an enriched entity value extracted by the classifier.
// Fields depend on the entity type (e.g. raw, formatted, value, lat, lng).
type Entity map[string]any

// Field returns the named field, defaulting to DefaultEntityField.
func (e Entity) Field(name string) (any, bool) {
	if name == "" {
		name = DefaultEntityField
	}
	v, ok := e[name]
	return v, ok
}

// Intent is one intent detected by the classifier.
type Intent struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
}

// Analysis is the classifier output for one user utterance.
type Analysis struct {
	// Intents are ordered by decreasing confidence.
	Intents []Intent `json:"intents"`
	// Entities maps an entity type (e.g. "datetime") to its instances in order of appearance.
	Entities map[string][]Entity `json:"entities"`
	// Language is the detected (or forced) ISO code of the utterance.
	Language string `json:"language"`
}

// TopIntent returns the most confident intent, if any.
func (a *Analysis) TopIntent() (Intent, bool) {
	if a == nil || len(a.Intents) == 0 {
		return Intent{}, false
	}
	return a.Intents[0], true
}

// EntityTypes returns the entity types present in the analysis, sorted.
func (a *Analysis) EntityTypes() []string {
	if a == nil {
		return nil
	}
	types := make([]string, 0, len(a.Entities))
	for t := range a.Entities {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
