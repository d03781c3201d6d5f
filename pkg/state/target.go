package state

import (
	"encoding/json"
	"fmt"
)

// Options are the caller-supplied options of a transition request.
type Options struct {
	// Reload forces every state to be re-entered, even with unchanged params.
	Reload bool
	// ReloadState forces that state and its descendants to be re-entered.
	ReloadState *State
	// Inherit copies param values of the current location that the target does not set.
	Inherit bool
	// Custom carries free-form options for hooks.
	Custom map[string]any
}

// Merge returns o overlaid with every field set in over.
func (o Options) Merge(over Options) Options {
	out := o
	if over.Reload {
		out.Reload = true
	}
	if over.ReloadState != nil {
		out.ReloadState = over.ReloadState
	}
	if over.Inherit {
		out.Inherit = true
	}
	if len(o.Custom) > 0 || len(over.Custom) > 0 {
		out.Custom = make(map[string]any, len(o.Custom)+len(over.Custom))
		for k, v := range o.Custom {
			out.Custom[k] = v
		}
		for k, v := range over.Custom {
			out.Custom[k] = v
		}
	}
	return out
}

// TargetState is a request to go to a state with some params.
// It may be invalid, e.g. when the identifier names no registered state.
type TargetState struct {
	identifier string
	state      *State
	params     map[string]any
	options    Options
}

// NewTarget creates a target. A nil state makes the target invalid.
func NewTarget(identifier string, s *State, params map[string]any, opts Options) *TargetState {
	p := make(map[string]any, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &TargetState{identifier: identifier, state: s, params: p, options: opts}
}

// Identifier returns the name the target was requested with.
func (t *TargetState) Identifier() string { return t.identifier }

// State returns the targeted state, or nil if it does not exist.
func (t *TargetState) State() *State { return t.state }

// Name returns the state name, falling back to the identifier.
func (t *TargetState) Name() string {
	if t.state != nil {
		return t.state.Name
	}
	return t.identifier
}

// Params returns a copy of the requested param values.
func (t *TargetState) Params() map[string]any {
	p := make(map[string]any, len(t.params))
	for k, v := range t.params {
		p[k] = v
	}
	return p
}

// Options returns the transition options of the request.
func (t *TargetState) Options() Options { return t.options }

// WithOptions returns a copy of t with different options.
func (t *TargetState) WithOptions(opts Options) *TargetState {
	return NewTarget(t.identifier, t.state, t.params, opts)
}

// Valid reports whether the target can be transitioned to.
func (t *TargetState) Valid() bool {
	return t.Error() == ""
}

// Error explains why the target is invalid, or returns "".
func (t *TargetState) Error() string {
	if t.state == nil {
		return fmt.Sprintf("No such state '%s'", t.identifier)
	}
	return ""
}

func (t *TargetState) String() string {
	raw, _ := json.Marshal(t.params)
	return fmt.Sprintf("'%s'%s", t.Name(), raw)
}
