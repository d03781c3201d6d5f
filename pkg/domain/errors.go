package domain

import "errors"

// ErrStateNotFound is returned when a state name cannot be found in the registry.
var ErrStateNotFound = errors.New("state not found")

// ErrLocationNotFound is returned when a persisted location cannot be found in the store.
var ErrLocationNotFound = errors.New("location not found")

// ErrInvalidTarget is returned when a transition is requested towards an invalid target.
var ErrInvalidTarget = errors.New("invalid target state")

// ErrCircularDependency is returned when resolvables depend on each other in a cycle.
var ErrCircularDependency = errors.New("circular resolve dependency")

// ErrTooManyRedirects is returned when a transition keeps being redirected.
var ErrTooManyRedirects = errors.New("too many redirects")
