package transition

import (
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
)

// EventName names a point of the transition lifecycle hooks attach to.
type EventName string

const (
	EventBefore  EventName = "onBefore"
	EventStart   EventName = "onStart"
	EventExit    EventName = "onExit"
	EventRetain  EventName = "onRetain"
	EventEnter   EventName = "onEnter"
	EventFinish  EventName = "onFinish"
	EventSuccess EventName = "onSuccess"
	EventError   EventName = "onError"
)

// Events lists every event in lifecycle order.
var Events = []EventName{EventBefore, EventStart, EventExit, EventRetain, EventEnter, EventFinish, EventSuccess, EventError}

// Criterion matches a state by glob pattern or predicate. The zero Criterion matches anything.
type Criterion struct {
	Glob  string
	Match func(*state.State) bool
}

// Glob matches state names against pattern.
func Glob(pattern string) Criterion { return Criterion{Glob: pattern} }

// Predicate matches states fn accepts.
func Predicate(fn func(*state.State) bool) Criterion { return Criterion{Match: fn} }

// IsZero reports whether c matches anything.
func (c Criterion) IsZero() bool { return c.Glob == "" && c.Match == nil }

// Matches reports whether s satisfies c.
func (c Criterion) Matches(s *state.State) bool {
	if s == nil {
		return c.IsZero()
	}
	if c.Match != nil && !c.Match(s) {
		return false
	}
	if c.Glob != "" && !state.Match(s, c.Glob) {
		return false
	}
	return true
}

func (c Criterion) matchesAny(p resolve.Path) bool {
	if c.IsZero() {
		return true
	}
	for _, n := range p {
		if c.Matches(n.State) {
			return true
		}
	}
	return false
}

// Criteria select the transitions a hook applies to. Empty fields match anything.
type Criteria struct {
	To       Criterion
	From     Criterion
	Entering Criterion
	Exiting  Criterion
	Retained Criterion
}

// Matches reports whether a transition with tree changes tc is selected.
func (c Criteria) Matches(tc path.TreeChanges) bool {
	to, from := tc.To.Leaf(), tc.From.Leaf()
	if !c.To.IsZero() && (to == nil || !c.To.Matches(to.State)) {
		return false
	}
	if !c.From.IsZero() && (from == nil || !c.From.Matches(from.State)) {
		return false
	}
	return c.Entering.matchesAny(tc.Entering) &&
		c.Exiting.matchesAny(tc.Exiting) &&
		c.Retained.matchesAny(tc.Retained)
}

// RegisteredHook is a hook function attached to an event.
type RegisteredHook struct {
	Event    EventName
	Criteria Criteria
	Fn       inject.Injectable
	Priority int
}

// RegisterOption configures a registration.
type RegisterOption func(*RegisteredHook)

// WithPriority orders the hook. Higher priorities run first.
func WithPriority(p int) RegisterOption {
	return func(h *RegisteredHook) { h.Priority = p }
}

// HookRegistry holds hook functions per event.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[EventName][]*RegisteredHook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[EventName][]*RegisteredHook)}
}

// On registers fn for event. The returned function removes it again.
func (r *HookRegistry) On(event EventName, c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	h := &RegisteredHook{Event: event, Criteria: c, Fn: fn}
	for _, opt := range opts {
		opt(h)
	}

	r.mu.Lock()
	r.hooks[event] = append(r.hooks[event], h)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.hooks[event]
		for i, existing := range list {
			if existing == h {
				r.hooks[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (r *HookRegistry) OnBefore(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventBefore, c, fn, opts...)
}

func (r *HookRegistry) OnStart(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventStart, c, fn, opts...)
}

func (r *HookRegistry) OnExit(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventExit, c, fn, opts...)
}

func (r *HookRegistry) OnRetain(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventRetain, c, fn, opts...)
}

func (r *HookRegistry) OnEnter(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventEnter, c, fn, opts...)
}

func (r *HookRegistry) OnFinish(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventFinish, c, fn, opts...)
}

func (r *HookRegistry) OnSuccess(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventSuccess, c, fn, opts...)
}

func (r *HookRegistry) OnError(c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return r.On(EventError, c, fn, opts...)
}

// Hooks returns the hooks of event, highest priority first, then in registration order.
func (r *HookRegistry) Hooks(event EventName) []*RegisteredHook {
	r.mu.RLock()
	out := append([]*RegisteredHook(nil), r.hooks[event]...)
	r.mu.RUnlock()
	sortHooks(out)
	return out
}

func sortHooks(hooks []*RegisteredHook) {
	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority > hooks[j].Priority
	})
}
