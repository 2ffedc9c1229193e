// Package filter decides which nodes of a dependency tree take part in
// artifact resolution.
//
// A Filter is a pure predicate over a node and its ancestors. Nodes rejected
// by a filter stay in the tree but are not resolved. By default the whole
// subtree of a rejected node is skipped as well; wrap a filter with [Shallow]
// to reject only the node itself.
package filter

import (
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/graph"
)

// Filter selects tree nodes. parents lists the ancestors of id from the root
// downward. Implementations must not retain or modify parents.
type Filter interface {
	Accept(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool
}

// Func adapts a function to a Filter.
type Func func(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool

// Accept implements Filter.
func (f Func) Accept(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool {
	return f(t, id, parents)
}

// All accepts every node.
var All Filter = Func(func(*graph.Tree, graph.NodeID, []graph.NodeID) bool { return true })

// dependencyFilter evaluates a predicate over the node's dependency only.
type dependencyFilter func(artifact.Dependency) bool

func (f dependencyFilter) Accept(t *graph.Tree, id graph.NodeID, _ []graph.NodeID) bool {
	n := t.Node(id)
	if n == nil {
		return false
	}
	return f(n.Dependency)
}

// Scope accepts nodes whose effective scope is in included (or any scope
// when included is empty) and not in excluded.
func Scope(included, excluded []string) Filter {
	return dependencyFilter(func(d artifact.Dependency) bool {
		s := d.EffectiveScope()
		if slices.Contains(excluded, s) {
			return false
		}
		return len(included) == 0 || slices.Contains(included, s)
	})
}

// Optional accepts optional dependencies only when include is true.
// Non-optional dependencies are always accepted.
func Optional(include bool) Filter {
	return dependencyFilter(func(d artifact.Dependency) bool {
		return include || !d.Optional
	})
}

// Pattern accepts nodes matching at least one pattern.
//
// Patterns have the form groupId[:artifactId[:extension[:version]]] or
// groupId:artifactId:extension:classifier:version. Each segment is a shell
// glob as understood by [path.Match], so "org.apache.*:*" matches every
// artifact below org.apache. An empty pattern list accepts everything.
func Pattern(patterns ...string) Filter {
	if len(patterns) == 0 {
		return All
	}
	return dependencyFilter(func(d artifact.Dependency) bool {
		return slices.ContainsFunc(patterns, func(p string) bool { return matchPattern(p, d.Artifact) })
	})
}

// Exclude rejects nodes matching any of the patterns. See [Pattern] for the
// syntax.
func Exclude(patterns ...string) Filter {
	return dependencyFilter(func(d artifact.Dependency) bool {
		return !slices.ContainsFunc(patterns, func(p string) bool { return matchPattern(p, d.Artifact) })
	})
}

func matchPattern(pattern string, c artifact.Coordinate) bool {
	segs := strings.Split(strings.TrimSpace(pattern), ":")
	var fields []string
	switch len(segs) {
	case 1, 2, 3:
		fields = []string{c.GroupID, c.ArtifactID, c.Ext()}
	case 4:
		fields = []string{c.GroupID, c.ArtifactID, c.Ext(), c.Version}
	case 5:
		fields = []string{c.GroupID, c.ArtifactID, c.Ext(), c.Classifier, c.Version}
	default:
		return false
	}
	for i, seg := range segs {
		if seg == "" || seg == "*" {
			continue
		}
		ok, err := path.Match(seg, fields[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// And accepts nodes accepted by every filter. Nil filters are ignored.
// The result is shallow when every non-nil filter is.
func And(filters ...Filter) Filter {
	return keepShallow(filters, func(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool {
		for _, f := range filters {
			if f != nil && !f.Accept(t, id, parents) {
				return false
			}
		}
		return true
	})
}

// Or accepts nodes accepted by at least one filter. Nil filters are ignored;
// an Or without any non-nil filter accepts everything. The result is
// shallow when every non-nil filter is.
func Or(filters ...Filter) Filter {
	return keepShallow(filters, func(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool {
		seen := false
		for _, f := range filters {
			if f == nil {
				continue
			}
			seen = true
			if f.Accept(t, id, parents) {
				return true
			}
		}
		return !seen
	})
}

// Not inverts f. The result is shallow when f is.
func Not(f Filter) Filter {
	return keepShallow([]Filter{f}, func(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool {
		return !f.Accept(t, id, parents)
	})
}

type shallow struct{ Filter }

// keepShallow adapts fn and marks it shallow when all non-nil operands are.
func keepShallow(operands []Filter, fn Func) Filter {
	seen := false
	for _, f := range operands {
		if f == nil {
			continue
		}
		if PrunesSubtree(f) {
			return fn
		}
		seen = true
	}
	if !seen {
		return fn
	}
	return shallow{fn}
}

// Shallow marks f so that rejecting a node does not skip its children.
//
// The mark survives [And], [Or] and [Not] only when every operand carries
// it: And(Shallow(f), g) still prunes, since a node rejected by g must hide
// its subtree.
func Shallow(f Filter) Filter {
	if f == nil {
		return nil
	}
	return shallow{f}
}

// PrunesSubtree reports whether a node rejected by f also hides its
// descendants. This is true for every filter not wrapped in [Shallow].
func PrunesSubtree(f Filter) bool {
	_, ok := f.(shallow)
	return !ok
}

// Select combines the usual command-line selections: nodes whose scope is
// in scopes (any scope when empty) and that match none of the exclude
// patterns. It returns nil when nothing is selected.
func Select(scopes, excludes []string) Filter {
	var fs []Filter
	if len(scopes) > 0 {
		fs = append(fs, Scope(scopes, nil))
	}
	if len(excludes) > 0 {
		fs = append(fs, Exclude(excludes...))
	}
	switch len(fs) {
	case 0:
		return nil
	case 1:
		return fs[0]
	}
	return And(fs...)
}
