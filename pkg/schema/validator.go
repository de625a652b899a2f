package schema

import (
	"context"
	"maps"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// ValueKey is the entity field holding the coerced value.
const ValueKey = "value"

// EntityValue returns what a type should coerce: the classifier's scalar
// when present, the raw text otherwise.
func EntityValue(e domain.Entity) any {
	if v, ok := e["scalar"]; ok && v != nil {
		return v
	}
	return e["raw"]
}

// Validator returns a validator that stores the coerced value under
// ValueKey. When the entity does not fit, it rejects with invalid, or with
// the coercion error when invalid is nil.
func Validator(alias string, t Type, invalid any) domain.Validator {
	return func(_ context.Context, entity domain.Entity, _ domain.Memory) (any, error) {
		raw := EntityValue(entity)
		v, err := t.Coerce(raw)
		if err != nil {
			if invalid != nil {
				return nil, domain.Reject(invalid)
			}
			return nil, domain.Reject((&ValidationError{Key: alias, Reason: err.Error(), Value: raw}).Error())
		}
		typed := maps.Clone(entity)
		if typed == nil {
			typed = domain.Entity{}
		}
		typed[ValueKey] = v
		return typed, nil
	}
}

// Chain runs validators in order. Each one sees the entity produced by the
// previous one, and the first error stops the chain. Nil validators are
// skipped.
func Chain(validators ...domain.Validator) domain.Validator {
	var active []domain.Validator
	for _, v := range validators {
		if v != nil {
			active = append(active, v)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}

	return func(ctx context.Context, entity domain.Entity, memory domain.Memory) (any, error) {
		var result any
		current := entity
		for _, v := range active {
			out, err := v(ctx, current, memory)
			if err != nil {
				return nil, err
			}
			if out == nil {
				continue
			}
			result = out
			if e, ok := out.(domain.Entity); ok {
				current = e
			}
		}
		return result, nil
	}
}
