package params

import "errors"

var errRequired = errors.New("required")

// Validates reports whether values satisfy every param in schema.
func Validates(schema Schema, values map[string]any) bool {
	return Validate(schema, values) == nil
}

// Validate checks values against schema.
// Returns an *AggregateError with every failure found.
func Validate(schema Schema, values map[string]any) error {
	var errs []error
	for _, p := range schema {
		value := values[p.ID]
		if err := p.validate(value); err != nil {
			errs = append(errs, &ValidationError{
				Key:    p.ID,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Changed returns the params of schema whose value differs between to and from.
func Changed(schema Schema, to, from map[string]any) []*Param {
	var changed []*Param
	for _, p := range schema {
		if !p.Type.Equals(to[p.ID], from[p.ID]) {
			changed = append(changed, p)
		}
	}
	return changed
}
