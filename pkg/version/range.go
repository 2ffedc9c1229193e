package version

import (
	"strings"

	"github.com/matzehuels/depresolve/pkg/errors"
)

// Bound is one end of an interval. An empty Version means unbounded.
type Bound struct {
	Version   string
	Inclusive bool
}

// Interval is a contiguous set of versions.
type Interval struct {
	Lower Bound
	Upper Bound
}

// Contains reports whether v lies within the interval.
func (i Interval) Contains(v string) bool {
	if i.Lower.Version != "" {
		c := Compare(v, i.Lower.Version)
		if c < 0 || (c == 0 && !i.Lower.Inclusive) {
			return false
		}
	}
	if i.Upper.Version != "" {
		c := Compare(v, i.Upper.Version)
		if c > 0 || (c == 0 && !i.Upper.Inclusive) {
			return false
		}
	}
	return true
}

func (i Interval) String() string {
	var b strings.Builder
	if i.Lower.Inclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if i.Lower.Version == i.Upper.Version && i.Lower.Inclusive && i.Upper.Inclusive {
		b.WriteString(i.Lower.Version)
	} else {
		b.WriteString(i.Lower.Version)
		b.WriteByte(',')
		b.WriteString(i.Upper.Version)
	}
	if i.Upper.Inclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}

// Range is a Maven version specification: either a soft requirement
// ("1.0", Recommended set, no intervals) or a union of intervals
// ("[1.0,2.0),[3.0,)").
type Range struct {
	Recommended string
	Intervals   []Interval
}

// IsSoft reports whether the range is a plain version rather than a set of
// intervals.
func (r Range) IsSoft() bool { return len(r.Intervals) == 0 }

// Contains reports whether v satisfies the range. A soft requirement only
// contains the recommended version itself.
func (r Range) Contains(v string) bool {
	if r.IsSoft() {
		return Compare(v, r.Recommended) == 0
	}
	for _, i := range r.Intervals {
		if i.Contains(v) {
			return true
		}
	}
	return false
}

// Filter returns the candidates contained in r, sorted ascending.
func (r Range) Filter(candidates []string) []string {
	var out []string
	for _, v := range candidates {
		if r.Contains(v) {
			out = append(out, v)
		}
	}
	Sort(out)
	return out
}

// Highest returns the highest candidate contained in r.
func (r Range) Highest(candidates []string) (string, bool) {
	matched := r.Filter(candidates)
	if len(matched) == 0 {
		return "", false
	}
	return matched[len(matched)-1], true
}

func (r Range) String() string {
	if r.IsSoft() {
		return r.Recommended
	}
	parts := make([]string, len(r.Intervals))
	for i, iv := range r.Intervals {
		parts[i] = iv.String()
	}
	return strings.Join(parts, ",")
}

// IsRange reports whether spec uses interval syntax.
func IsRange(spec string) bool {
	return strings.ContainsAny(spec, "[(")
}

// ParseRange parses a Maven version specification.
func ParseRange(spec string) (Range, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return Range{}, errors.New(errors.ErrCodeInvalidInput, "empty version range")
	}
	if !IsRange(s) {
		if err := errors.ValidateVersion(s); err != nil {
			return Range{}, err
		}
		return Range{Recommended: s}, nil
	}

	var r Range
	for s != "" {
		if s[0] != '[' && s[0] != '(' {
			return Range{}, invalidRange(spec, "expected '[' or '('")
		}
		end := strings.IndexAny(s, "])")
		if end < 0 {
			return Range{}, invalidRange(spec, "unterminated interval")
		}
		iv, err := parseInterval(s[:end+1])
		if err != nil {
			return Range{}, invalidRange(spec, err.Error())
		}
		r.Intervals = append(r.Intervals, iv)

		s = strings.TrimSpace(s[end+1:])
		if s == "" {
			break
		}
		if s[0] != ',' {
			return Range{}, invalidRange(spec, "expected ',' between intervals")
		}
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return Range{}, invalidRange(spec, "trailing ','")
		}
	}
	return r, nil
}

func parseInterval(s string) (Interval, error) {
	lowerInc, upperInc := s[0] == '[', s[len(s)-1] == ']'
	body := strings.TrimSpace(s[1 : len(s)-1])

	lower, upper, hasComma := strings.Cut(body, ",")
	if !hasComma {
		if !lowerInc || !upperInc || body == "" {
			return Interval{}, errors.New(errors.ErrCodeInvalidInput, "single version %q must be enclosed in brackets", body)
		}
		b := Bound{Version: body, Inclusive: true}
		return Interval{Lower: b, Upper: b}, nil
	}
	if strings.Contains(upper, ",") {
		return Interval{}, errors.New(errors.ErrCodeInvalidInput, "too many bounds in %q", s)
	}
	lower, upper = strings.TrimSpace(lower), strings.TrimSpace(upper)
	if lower != "" && upper != "" && Compare(lower, upper) > 0 {
		return Interval{}, errors.New(errors.ErrCodeInvalidInput, "lower bound %s is greater than upper bound %s", lower, upper)
	}
	return Interval{
		Lower: Bound{Version: lower, Inclusive: lowerInc && lower != ""},
		Upper: Bound{Version: upper, Inclusive: upperInc && upper != ""},
	}, nil
}

func invalidRange(spec, reason string) error {
	return errors.New(errors.ErrCodeInvalidInput, "invalid version range %q: %s", spec, reason)
}
