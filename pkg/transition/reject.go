package transition

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/state"
)

// RejectionType classifies why a transition did not succeed.
type RejectionType int

const (
	// RejectSuperseded means a newer transition became current.
	RejectSuperseded RejectionType = iota + 2
	// RejectAborted means a hook returned false or failed synchronously.
	RejectAborted
	// RejectRedirected means a hook asked to go somewhere else.
	RejectRedirected
	// RejectIgnored means the transition would change nothing.
	RejectIgnored
	// RejectError means the target was invalid or something failed.
	RejectError
)

func (t RejectionType) String() string {
	switch t {
	case RejectSuperseded:
		return "superseded"
	case RejectAborted:
		return "aborted"
	case RejectRedirected:
		return "redirected"
	case RejectIgnored:
		return "ignored"
	case RejectError:
		return "error"
	default:
		return fmt.Sprintf("RejectionType(%d)", int(t))
	}
}

// Rejection is the error a transition's outcome is rejected with.
type Rejection struct {
	Type    RejectionType
	Message string
	// Detail is the payload: the current transition when superseded, the
	// target when redirected, the cause when aborted or failed.
	Detail any
}

func (r *Rejection) Error() string {
	msg := "transition " + r.Type.String()
	if r.Message != "" {
		msg += ": " + r.Message
	}
	switch d := r.Detail.(type) {
	case nil:
	case error:
		if d.Error() != r.Message {
			msg += ": " + d.Error()
		}
	case fmt.Stringer:
		msg += " (" + d.String() + ")"
	}
	return msg
}

// Unwrap exposes the detail when it is an error.
func (r *Rejection) Unwrap() error {
	if err, ok := r.Detail.(error); ok {
		return err
	}
	return nil
}

// Target returns the redirect target of a redirected rejection.
func (r *Rejection) Target() *state.TargetState {
	t, _ := r.Detail.(*state.TargetState)
	return t
}

// Current returns the transition that superseded this one.
func (r *Rejection) Current() *Transition {
	t, _ := r.Detail.(*Transition)
	return t
}

// NewSuperseded rejects because current took over.
func NewSuperseded(current *Transition) *Rejection {
	return &Rejection{Type: RejectSuperseded, Message: "The transition has been superseded by a different transition", Detail: current}
}

// NewAborted rejects because of an explicit abort or a synchronous hook failure.
func NewAborted(detail any) *Rejection {
	r := &Rejection{Type: RejectAborted, Message: "The transition has been aborted", Detail: detail}
	if s, ok := detail.(string); ok {
		r.Message = s
	}
	return r
}

// NewRedirected rejects because a hook redirected to target.
func NewRedirected(target *state.TargetState) *Rejection {
	return &Rejection{Type: RejectRedirected, Message: "The transition has been redirected", Detail: target}
}

// NewIgnored rejects a transition that would change nothing.
func NewIgnored() *Rejection {
	return &Rejection{Type: RejectIgnored, Message: "The transition was ignored"}
}

// NewError rejects with an underlying error.
func NewError(detail error) *Rejection {
	return &Rejection{Type: RejectError, Message: detail.Error(), Detail: detail}
}

// AsRejection classifies an outcome error. Errors that are not a *Rejection
// are reported as RejectError with the error as detail. A nil error gives nil.
func AsRejection(err error) *Rejection {
	if err == nil {
		return nil
	}
	var r *Rejection
	if errors.As(err, &r) {
		return r
	}
	return NewError(err)
}

// IsRejection reports whether err is a rejection of type t.
func IsRejection(err error, t RejectionType) bool {
	r := AsRejection(err)
	return r != nil && r.Type == t
}
