package version

import (
	"slices"
	"testing"

	"github.com/matzehuels/depresolve/pkg/errors"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		spec string
		in   []string
		out  []string
	}{
		{"[1.0,2.0)", []string{"1.0", "1.5", "1.9.9"}, []string{"0.9", "2.0", "2.1"}},
		{"(1.0,2.0]", []string{"1.0.1", "2.0"}, []string{"1.0", "2.0.1"}},
		{"[1.0,)", []string{"1.0", "99"}, []string{"0.9"}},
		{"(,1.0]", []string{"0.1", "1.0"}, []string{"1.0.1"}},
		{"[1.5]", []string{"1.5", "1.5.0"}, []string{"1.4", "1.6"}},
		{"(,1.0],[1.2,)", []string{"0.5", "1.2", "3"}, []string{"1.1"}},
		{"1.0", []string{"1.0"}, []string{"1.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			r, err := ParseRange(tt.spec)
			if err != nil {
				t.Fatalf("ParseRange(%q): %v", tt.spec, err)
			}
			for _, v := range tt.in {
				if !r.Contains(v) {
					t.Errorf("%s should contain %s", tt.spec, v)
				}
			}
			for _, v := range tt.out {
				if r.Contains(v) {
					t.Errorf("%s should not contain %s", tt.spec, v)
				}
			}
			if got := r.String(); got != tt.spec {
				t.Errorf("String() = %q, want %q", got, tt.spec)
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, spec := range []string{"", "[1.0", "[2.0,1.0]", "(1.0)", "[1.0,2.0]x", "[1.0,2.0],", "[1,2,3]"} {
		t.Run(spec, func(t *testing.T) {
			_, err := ParseRange(spec)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ParseRange(%q) error = %v, want INVALID_INPUT", spec, err)
			}
		})
	}
}

func TestRange_Highest(t *testing.T) {
	r, err := ParseRange("[1.0,2.0)")
	if err != nil {
		t.Fatal(err)
	}
	candidates := []string{"2.0", "1.1", "0.9", "1.9", "1.10"}

	if got := r.Filter(candidates); !slices.Equal(got, []string{"1.1", "1.9", "1.10"}) {
		t.Errorf("Filter() = %v", got)
	}
	if got, ok := r.Highest(candidates); !ok || got != "1.10" {
		t.Errorf("Highest() = %q, %v", got, ok)
	}
	if got, ok := r.Highest([]string{"1.9-sp1", "1.9"}); !ok || got != "1.9-sp1" {
		t.Errorf("Highest() = %q, %v; service pack should win", got, ok)
	}
	if _, ok := r.Highest([]string{"3.0"}); ok {
		t.Error("Highest() should fail without candidates in range")
	}
}
