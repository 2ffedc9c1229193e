// Package version orders Maven version strings and evaluates Maven version
// ranges such as "[1.0,2.0)".
//
// Versions are normalized into semantic versions and compared with
// golang.org/x/mod/semver. The numeric core (major, minor, patch) is compared
// first, then any additional numeric components, then the qualifier.
// Release qualifiers ("final", "ga", "release") are equivalent to no
// qualifier, service packs ("sp") sort after the release they qualify and
// any other qualifier sorts before it.
package version

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// parsed is a normalized Maven version.
type parsed struct {
	core  string // "vX.Y.Z"
	extra []int  // numeric components beyond the patch
	pre   string // semver prerelease without the leading '-'
	post  string // post-release qualifier in the same form ("sp.1")
	ok    bool
	raw   string
}

var releaseQualifiers = map[string]bool{"": true, "final": true, "ga": true, "release": true}

var postQualifiers = map[string]bool{"sp": true}

var qualifierAliases = map[string]string{
	"a":  "alpha",
	"b":  "beta",
	"m":  "milestone",
	"cr": "rc",
}

func parse(v string) parsed {
	p := parsed{raw: v}
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "v")
	if s == "" {
		return p
	}

	// Split the leading dotted numbers from the qualifier.
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	numeric, qualifier := strings.Trim(s[:end], "."), strings.TrimLeft(s[end:], "-.")
	if numeric == "" {
		return p
	}

	nums := make([]int, 0, 3)
	for _, part := range strings.Split(numeric, ".") {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return p
		}
		nums = append(nums, n)
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}
	p.core = fmt.Sprintf("v%d.%d.%d", nums[0], nums[1], nums[2])
	p.extra = nums[3:]
	for len(p.extra) > 0 && p.extra[len(p.extra)-1] == 0 {
		p.extra = p.extra[:len(p.extra)-1]
	}

	if !releaseQualifiers[qualifier] {
		q := normalizeQualifier(qualifier)
		if first, _, _ := strings.Cut(q, "."); postQualifiers[first] {
			p.post = q
		} else {
			p.pre = q
		}
	}
	p.ok = semver.IsValid(p.core+p.preSuffix()) && (p.post == "" || semver.IsValid("v0.0.0-"+p.post))
	return p
}

// rank orders pre-releases, releases and post-releases of the same number.
func (p parsed) rank() int {
	switch {
	case p.pre != "":
		return -1
	case p.post != "":
		return 1
	}
	return 0
}

func (p parsed) preSuffix() string {
	if p.pre == "" {
		return ""
	}
	return "-" + p.pre
}

// normalizeQualifier turns "beta-2", "Beta2" or "M1" into dot-separated
// semver prerelease identifiers ("beta.2", "milestone.1").
func normalizeQualifier(q string) string {
	var ids []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		id := cur.String()
		cur.Reset()
		if alias, ok := qualifierAliases[id]; ok {
			id = alias
		}
		if n, err := strconv.Atoi(id); err == nil {
			id = strconv.Itoa(n)
		}
		ids = append(ids, id)
	}
	prevDigit := false
	for i, r := range q {
		switch {
		case r == '-' || r == '.' || r == '_':
			flush()
			continue
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			continue
		}
		isDigit := unicode.IsDigit(r)
		if i > 0 && isDigit != prevDigit {
			flush()
		}
		cur.WriteRune(r)
		prevDigit = isDigit
	}
	flush()
	return strings.Join(ids, ".")
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b. Versions that cannot be normalized sort before all others and
// are ordered lexically among themselves.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)
	switch {
	case !pa.ok && !pb.ok:
		return strings.Compare(a, b)
	case !pa.ok:
		return -1
	case !pb.ok:
		return 1
	}
	if c := semver.Compare(pa.core, pb.core); c != 0 {
		return c
	}
	if c := slices.Compare(pa.extra, pb.extra); c != 0 {
		return c
	}
	if c := cmp.Compare(pa.rank(), pb.rank()); c != 0 {
		return c
	}
	if pa.post != "" {
		return semver.Compare("v0.0.0-"+pa.post, "v0.0.0-"+pb.post)
	}
	return semver.Compare("v0.0.0"+pa.preSuffix(), "v0.0.0"+pb.preSuffix())
}

// Canonical returns the normalized semver form of v, or "" if v cannot be
// normalized. Extra numeric components and service-pack qualifiers are
// dropped.
func Canonical(v string) string {
	p := parse(v)
	if !p.ok {
		return ""
	}
	return semver.Canonical(p.core + p.preSuffix())
}

// IsRelease reports whether v carries no pre-release qualifier.
// SNAPSHOT and milestone builds are not releases.
func IsRelease(v string) bool {
	p := parse(v)
	return p.ok && p.pre == ""
}

// Sort sorts versions in ascending order.
func Sort(versions []string) {
	slices.SortStableFunc(versions, Compare)
}
