package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Definition is a declarative state tree as written in a YAML file.
//
//	states:
//	  - name: users.detail
//	    params:
//	      - {id: id, type: int}
//	      - {id: tab, type: string, default: info, dynamic: true}
//	    resolve:
//	      - {name: user, fn: loadUser, deps: [$stateParams], policy: eager}
//	hooks:
//	  - on: onBefore
//	    to: "admin.**"
//	    when: 'deps.session == nil'
//	    redirect: login
//	    deps: [session]
type Definition struct {
	States []StateDef `mapstructure:"states"`
	Hooks  []HookDef  `mapstructure:"hooks"`
}

// StateDef declares one state.
type StateDef struct {
	Name          string         `mapstructure:"name"`
	Parent        string         `mapstructure:"parent"`
	Abstract      bool           `mapstructure:"abstract"`
	Params        []ParamDef     `mapstructure:"params"`
	Resolve       []ResolveDef   `mapstructure:"resolve"`
	ResolvePolicy string         `mapstructure:"resolve_policy"`
	Views         []any          `mapstructure:"views"`
	Data          map[string]any `mapstructure:"data"`
	OnEnter       *CallDef       `mapstructure:"on_enter"`
	OnRetain      *CallDef       `mapstructure:"on_retain"`
	OnExit        *CallDef       `mapstructure:"on_exit"`
}

// ParamDef declares a state param.
type ParamDef struct {
	ID       string `mapstructure:"id"`
	Type     string `mapstructure:"type"`
	Default  any    `mapstructure:"default"`
	Dynamic  bool   `mapstructure:"dynamic"`
	Optional bool   `mapstructure:"optional"`
}

// ResolveDef declares a resolve: either a constant Value or a registered Fn.
type ResolveDef struct {
	Name   string   `mapstructure:"name"`
	Value  any      `mapstructure:"value"`
	Fn     string   `mapstructure:"fn"`
	Deps   []string `mapstructure:"deps"`
	Policy string   `mapstructure:"policy"`
}

// CallDef references a registered function and the dependencies it receives.
type CallDef struct {
	Fn   string   `mapstructure:"fn"`
	Deps []string `mapstructure:"deps"`
}

// HookDef declares a transition hook.
// Exactly one of Abort, Redirect and Fn must be set.
type HookDef struct {
	On       string         `mapstructure:"on"`
	To       string         `mapstructure:"to"`
	From     string         `mapstructure:"from"`
	Entering string         `mapstructure:"entering"`
	Exiting  string         `mapstructure:"exiting"`
	Retained string         `mapstructure:"retained"`
	Priority int            `mapstructure:"priority"`
	When     string         `mapstructure:"when"`
	Abort    bool           `mapstructure:"abort"`
	Redirect string         `mapstructure:"redirect"`
	Params   map[string]any `mapstructure:"params"`
	Fn       string         `mapstructure:"fn"`
	Deps     []string       `mapstructure:"deps"`
}

// Parse decodes a YAML state tree. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &def, nil
}
