package domain

import "time"

// Location is a persisted position in the state tree: the state a router is in
// and the param values it was reached with.
type Location struct {
	State        string         `json:"state"`
	Params       map[string]any `json:"params,omitempty"`
	TransitionID int64          `json:"transition_id"`
	// Writer identifies the router that stored the location. Transition ids
	// are only ordered between locations of the same writer.
	Writer    string    `json:"writer,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLocation creates a location for state with a copy of params.
func NewLocation(state string, params map[string]any) *Location {
	return &Location{
		State:     state,
		Params:    CopyParams(params),
		UpdatedAt: time.Now(),
	}
}

// Clone returns a copy of l with its own params map.
func (l *Location) Clone() *Location {
	c := *l
	c.Params = CopyParams(l.Params)
	return &c
}

// CopyParams returns a shallow copy of params, or nil if it is empty.
func CopyParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
