package domain

import (
	"fmt"
	"strings"
)

// Policy controls how early a resolvable is computed during a transition.
// Higher values are resolved earlier.
type Policy int

const (
	// PolicyJIT resolvables are only computed when something injects them.
	PolicyJIT Policy = iota
	// PolicyLazy resolvables are computed when their state is entered.
	PolicyLazy
	// PolicyEager resolvables are computed before any state is entered.
	PolicyEager
)

// DefaultPolicy is used when neither the resolve nor its state declares one.
const DefaultPolicy = PolicyLazy

func (p Policy) String() string {
	switch p {
	case PolicyJIT:
		return "JIT"
	case PolicyLazy:
		return "LAZY"
	case PolicyEager:
		return "EAGER"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name (case-insensitive) into a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "JIT":
		return PolicyJIT, nil
	case "LAZY":
		return PolicyLazy, nil
	case "EAGER":
		return PolicyEager, nil
	default:
		return 0, fmt.Errorf("unknown resolve policy: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
