package params

// Param describes one parameter accepted by a state.
type Param struct {
	ID   string
	Type Type
	// Default is used when no value is supplied.
	Default any
	// Optional params validate when no value (and no default) is supplied.
	Optional bool
	// Dynamic params can change without the owning state being exited and re-entered.
	Dynamic bool
}

// New creates a required param of the given type. A nil type accepts anything.
func New(id string, t Type) *Param {
	if t == nil {
		t = Any()
	}
	return &Param{ID: id, Type: t}
}

// WithDefault sets the default value and returns p.
func (p *Param) WithDefault(v any) *Param {
	p.Default = v
	return p
}

// AsDynamic marks p dynamic and returns it.
func (p *Param) AsDynamic() *Param {
	p.Dynamic = true
	return p
}

// AsOptional marks p optional and returns it.
func (p *Param) AsOptional() *Param {
	p.Optional = true
	return p
}

// Value returns v, or the default when v is nil.
func (p *Param) Value(v any) any {
	if v == nil {
		return p.Default
	}
	return v
}

// Validates reports whether v is an acceptable value for p.
func (p *Param) Validates(v any) bool {
	return p.validate(v) == nil
}

func (p *Param) validate(v any) error {
	val := p.Value(v)
	if val == nil {
		if p.Optional {
			return nil
		}
		return errRequired
	}
	return p.Type.Validate(val)
}

// Schema is the ordered list of params declared by a state.
type Schema []*Param

// Get returns the param with the given id.
func (s Schema) Get(id string) (*Param, bool) {
	for _, p := range s {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// IDs returns the param ids in declaration order.
func (s Schema) IDs() []string {
	ids := make([]string, len(s))
	for i, p := range s {
		ids[i] = p.ID
	}
	return ids
}

// Values picks the values of this schema's params from raw, applying defaults.
// Ids without a value or default are left out.
func (s Schema) Values(raw map[string]any) map[string]any {
	out := make(map[string]any, len(s))
	for _, p := range s {
		if v := p.Value(raw[p.ID]); v != nil {
			out[p.ID] = v
		}
	}
	return out
}

// Equal reports whether a and b hold the same value for every param in s.
// When nonDynamicOnly is set, dynamic params are skipped.
func (s Schema) Equal(a, b map[string]any, nonDynamicOnly bool) bool {
	for _, p := range s {
		if nonDynamicOnly && p.Dynamic {
			continue
		}
		if !p.Type.Equals(a[p.ID], b[p.ID]) {
			return false
		}
	}
	return true
}
