package http

import (
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
)

// TransitionRequest is the body of POST /transitions.
type TransitionRequest struct {
	To      string         `json:"to"`
	Params  map[string]any `json:"params,omitempty"`
	Reload  bool           `json:"reload,omitempty"`
	Inherit bool           `json:"inherit,omitempty"`
	Custom  map[string]any `json:"custom,omitempty"`
}

// TransitionView reports the outcome of a transition.
type TransitionView struct {
	ID       int64          `json:"id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Params   map[string]any `json:"params,omitempty"`
	Status   string         `json:"status"`
	Entering []string       `json:"entering,omitempty"`
	Exiting  []string       `json:"exiting,omitempty"`
}

// ParamView describes one declared param.
type ParamView struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Default  any    `json:"default,omitempty"`
	Dynamic  bool   `json:"dynamic,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// StateView describes a registered state.
type StateView struct {
	Name     string      `json:"name"`
	Parent   string      `json:"parent"`
	Abstract bool        `json:"abstract,omitempty"`
	Params   []ParamView `json:"params,omitempty"`
	Resolves []string    `json:"resolves,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Rejection string `json:"rejection,omitempty"`
}

func newStateView(s *state.State) StateView {
	v := StateView{
		Name:     s.Name,
		Abstract: s.Abstract,
		Resolves: s.ResolveNames(),
	}
	if s.Parent != nil {
		v.Parent = s.Parent.Name
	}
	for _, p := range s.Params {
		v.Params = append(v.Params, ParamView{
			ID:       p.ID,
			Type:     p.Type.Name(),
			Default:  p.Default,
			Dynamic:  p.Dynamic,
			Optional: p.Optional,
		})
	}
	return v
}

func newTransitionView(t *transition.Transition) TransitionView {
	v := TransitionView{
		ID:       t.ID(),
		To:       t.To().Name,
		Params:   t.Params(),
		Status:   "success",
		Entering: stateNames(t.Entering()),
		Exiting:  stateNames(t.Exiting()),
	}
	if from := t.From(); from != nil {
		v.From = from.Name
	}
	if !t.Success() {
		v.Status = "ignored"
	}
	return v
}

func stateNames(states []*state.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.Name
	}
	return out
}
