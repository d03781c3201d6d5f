package params

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "string", want: "string"},
		{in: "int", want: "int"},
		{in: "float", want: "float"},
		{in: "bool", want: "bool"},
		{in: "", want: "any"},
		{in: "[int]", want: "[int]"},
		{in: "[[string]]", want: "[[string]]"},
		{in: "uuid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseType(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseType(%q) error: %v", tt.in, err)
			}
			if got.Name() != tt.want {
				t.Errorf("ParseType(%q).Name() = %s, want %s", tt.in, got.Name(), tt.want)
			}
		})
	}
}

func TestIntType(t *testing.T) {
	it := Int()
	for _, ok := range []any{1, int64(2), float64(3)} {
		if err := it.Validate(ok); err != nil {
			t.Errorf("Validate(%v) = %v", ok, err)
		}
	}
	if err := it.Validate(3.5); err == nil {
		t.Error("Validate(3.5) should fail")
	}
	if !it.Equals(int32(4), 4.0) {
		t.Error("Equals should normalise numeric kinds")
	}
}

func TestCustomType(t *testing.T) {
	even := Custom("even", func(v any) error {
		n, ok := v.(int)
		if !ok || n%2 != 0 {
			return errors.New("not even")
		}
		return nil
	}, nil)

	if err := even.Validate(2); err != nil {
		t.Errorf("Validate(2) = %v", err)
	}
	if err := even.Validate(3); err == nil {
		t.Error("Validate(3) should fail")
	}
	if !even.Equals([]int{}, []int(nil)) {
		t.Error("default Equals should treat empty and nil slices as equal")
	}
	if even.Equals(2, 4) {
		t.Error("Equals(2, 4) should be false")
	}
}
