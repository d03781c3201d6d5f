package domain

import "testing"

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "jit", want: PolicyJIT},
		{in: "LAZY", want: PolicyLazy},
		{in: " Eager ", want: PolicyEager},
		{in: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePolicy(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePolicy(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPolicyOrdering(t *testing.T) {
	if !(PolicyEager > PolicyLazy && PolicyLazy > PolicyJIT) {
		t.Errorf("expected EAGER > LAZY > JIT, got %d %d %d", PolicyEager, PolicyLazy, PolicyJIT)
	}
	if DefaultPolicy != PolicyLazy {
		t.Errorf("DefaultPolicy = %v, want LAZY", DefaultPolicy)
	}
}

func TestPolicyText(t *testing.T) {
	var p Policy
	if err := p.UnmarshalText([]byte("eager")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, _ := p.MarshalText()
	if string(text) != "EAGER" {
		t.Errorf("MarshalText() = %s, want EAGER", text)
	}
}
