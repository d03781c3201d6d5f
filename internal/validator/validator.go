package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
)

// ValidateTree checks a definition for problems that only show up at
// transition time: broken parent links, abstract leaves, redirects to states
// that cannot be entered, hook patterns that match nothing and injected names
// no resolve provides.
func ValidateTree(def *compiler.Definition) error {
	v := &treeValidator{
		states:   make(map[string]*compiler.StateDef),
		parents:  make(map[string]string),
		children: make(map[string]int),
	}
	for i := range def.States {
		v.addState(&def.States[i])
	}
	for i := range def.States {
		v.checkState(&def.States[i])
	}
	for i, h := range def.Hooks {
		v.checkHook(i, h)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(v.errors), strings.Join(v.errors, "\n- "))
	}
	return nil
}

type treeValidator struct {
	states   map[string]*compiler.StateDef
	order    []string
	parents  map[string]string
	children map[string]int
	errors   []string
}

func (v *treeValidator) fail(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func parentOf(sd *compiler.StateDef) string {
	if sd.Parent != "" {
		return sd.Parent
	}
	if i := strings.LastIndex(sd.Name, "."); i >= 0 {
		return sd.Name[:i]
	}
	return ""
}

func (v *treeValidator) addState(sd *compiler.StateDef) {
	if _, dup := v.states[sd.Name]; dup {
		v.fail("state '%s' is declared twice", sd.Name)
		return
	}
	parent := parentOf(sd)
	if parent != "" {
		if _, ok := v.states[parent]; !ok {
			v.fail("state '%s': parent '%s' must be declared before it", sd.Name, parent)
		}
	}
	v.states[sd.Name] = sd
	v.order = append(v.order, sd.Name)
	v.parents[sd.Name] = parent
	v.children[parent]++
}

// visible returns the resolve names injectable into name: its own resolves,
// those of its ancestors and the reserved ones.
func (v *treeValidator) visible(name string) map[string]bool {
	out := map[string]bool{
		resolve.TransitionToken:  true,
		resolve.StateParamsToken: true,
	}
	seen := map[string]bool{}
	for n := name; n != "" && !seen[n]; n = v.parents[n] {
		seen[n] = true
		sd, ok := v.states[n]
		if !ok {
			break
		}
		for _, r := range sd.Resolve {
			out[r.Name] = true
		}
	}
	return out
}

func (v *treeValidator) checkState(sd *compiler.StateDef) {
	if sd.Abstract && v.children[sd.Name] == 0 {
		v.fail("state '%s' is abstract but has no children to enter", sd.Name)
	}

	names := v.visible(sd.Name)
	for _, r := range sd.Resolve {
		for _, dep := range r.Deps {
			if dep == r.Name {
				v.fail("state '%s': resolve '%s' depends on itself", sd.Name, r.Name)
			} else if !names[dep] {
				v.fail("state '%s': resolve '%s' depends on unknown '%s'", sd.Name, r.Name, dep)
			}
		}
	}

	names[transition.LocalState] = true
	callbacks := []struct {
		label string
		call  *compiler.CallDef
	}{{"on_enter", sd.OnEnter}, {"on_retain", sd.OnRetain}, {"on_exit", sd.OnExit}}
	for _, cb := range callbacks {
		if cb.call == nil {
			continue
		}
		for _, dep := range cb.call.Deps {
			if !names[dep] {
				v.fail("state '%s': %s depends on unknown '%s'", sd.Name, cb.label, dep)
			}
		}
	}
}

func (v *treeValidator) checkHook(i int, h compiler.HookDef) {
	patterns := [][2]string{{"to", h.To}, {"from", h.From}, {"entering", h.Entering}, {"exiting", h.Exiting}, {"retained", h.Retained}}
	for _, p := range patterns {
		if p[1] != "" && !v.matchesAny(p[1]) {
			v.fail("hook #%d: %s pattern '%s' matches no state", i, p[0], p[1])
		}
	}

	if h.Redirect != "" {
		target, ok := v.states[h.Redirect]
		switch {
		case !ok:
			v.fail("hook #%d: redirect target '%s' is not declared", i, h.Redirect)
		case target.Abstract:
			v.fail("hook #%d: redirect target '%s' is abstract", i, h.Redirect)
		}
	}

	all := v.allResolves()
	for _, dep := range h.Deps {
		switch dep {
		case transition.LocalTransition, resolve.StateParamsToken:
			continue
		case transition.LocalError:
			if h.On != string(transition.EventError) {
				v.fail("hook #%d: %s is only available to onError hooks", i, dep)
			}
			continue
		case transition.LocalState:
			if !isNodeEvent(h.On) {
				v.fail("hook #%d: %s is only available to onEnter, onRetain and onExit hooks", i, dep)
			}
			continue
		case transition.LocalPrevious:
			if !isNodeEvent(h.On) && h.On != string(transition.EventStart) && h.On != string(transition.EventFinish) {
				v.fail("hook #%d: %s is only available to onStart, onExit, onRetain, onEnter and onFinish hooks", i, dep)
			}
			continue
		}
		if !all[dep] {
			v.fail("hook #%d: depends on '%s', which no state resolves", i, dep)
		}
	}
}

func isNodeEvent(on string) bool {
	switch transition.EventName(on) {
	case transition.EventEnter, transition.EventRetain, transition.EventExit:
		return true
	}
	return false
}

func (v *treeValidator) matchesAny(pattern string) bool {
	if state.MatchName("", pattern) {
		return true
	}
	for _, name := range v.order {
		if state.MatchName(name, pattern) {
			return true
		}
	}
	return false
}

func (v *treeValidator) allResolves() map[string]bool {
	out := map[string]bool{}
	for _, sd := range v.states {
		for _, r := range sd.Resolve {
			out[r.Name] = true
		}
	}
	return out
}
