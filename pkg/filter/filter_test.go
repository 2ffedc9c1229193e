package filter

import (
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/graph"
)

func single(t *testing.T, coord, scope string, optional bool) (*graph.Tree, graph.NodeID) {
	t.Helper()
	tr := graph.NewVirtual()
	d := artifact.NewDependency(artifact.MustParse(coord))
	d.Scope = scope
	d.Optional = optional
	id, err := tr.AddChild(tr.Root(), d)
	if err != nil {
		t.Fatal(err)
	}
	return tr, id
}

func TestScope(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		included []string
		excluded []string
		want     bool
	}{
		{"no constraints", "test", nil, nil, true},
		{"included", "runtime", []string{"compile", "runtime"}, nil, true},
		{"not included", "test", []string{"compile", "runtime"}, nil, false},
		{"excluded", "test", nil, []string{"test"}, false},
		{"excluded wins", "compile", []string{"compile"}, []string{"compile"}, false},
		{"empty scope is compile", "", []string{"compile"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, id := single(t, "g:a:1", tt.scope, false)
			if got := Scope(tt.included, tt.excluded).Accept(tr, id, nil); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPattern(t *testing.T) {
	tests := []struct {
		pattern string
		coord   string
		want    bool
	}{
		{"org.example", "org.example:lib:1.0", true},
		{"org.example:lib", "org.example:lib:1.0", true},
		{"org.example:other", "org.example:lib:1.0", false},
		{"org.*:*", "org.example:lib:1.0", true},
		{"com.*", "org.example:lib:1.0", false},
		{"org.example:lib:jar", "org.example:lib:1.0", true},
		{"org.example:lib:pom", "org.example:lib:1.0", false},
		{"org.example:lib:jar:1.*", "org.example:lib:1.0", true},
		{"org.example:lib:jar:2.*", "org.example:lib:1.0", false},
		{"*:*:jar:tests:*", "org.example:lib:jar:tests:1.0", true},
		{"*:*:jar:sources:*", "org.example:lib:jar:tests:1.0", false},
		{"a:b:c:d:e:f", "org.example:lib:1.0", false},
		{"[:lib", "org.example:lib:1.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tr, id := single(t, tt.coord, "", false)
			if got := Pattern(tt.pattern).Accept(tr, id, nil); got != tt.want {
				t.Errorf("Pattern(%q) on %s = %v, want %v", tt.pattern, tt.coord, got, tt.want)
			}
			if got := Exclude(tt.pattern).Accept(tr, id, nil); got == tt.want {
				t.Errorf("Exclude(%q) on %s = %v, want %v", tt.pattern, tt.coord, got, !tt.want)
			}
		})
	}

	tr, id := single(t, "g:a:1", "", false)
	if !Pattern().Accept(tr, id, nil) {
		t.Error("Pattern() without patterns should accept")
	}
}

func TestOptional(t *testing.T) {
	tr, opt := single(t, "g:a:1", "", true)
	if Optional(false).Accept(tr, opt, nil) {
		t.Error("Optional(false) accepted an optional dependency")
	}
	if !Optional(true).Accept(tr, opt, nil) {
		t.Error("Optional(true) rejected an optional dependency")
	}
	tr, req := single(t, "g:a:1", "", false)
	if !Optional(false).Accept(tr, req, nil) {
		t.Error("Optional(false) rejected a required dependency")
	}
}

func TestCombinators(t *testing.T) {
	tr, id := single(t, "g:a:1", "test", false)
	yes, no := All, Not(All)

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"and all true", And(yes, yes), true},
		{"and one false", And(yes, no), false},
		{"and ignores nil", And(nil, yes), true},
		{"or one true", Or(no, yes), true},
		{"or all false", Or(no, no), false},
		{"or empty", Or(), true},
		{"not", Not(no), true},
		{"scope and pattern", And(Scope(nil, []string{"test"}), Pattern("g")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Accept(tr, id, nil); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShallow(t *testing.T) {
	f := Pattern("g")
	if !PrunesSubtree(f) {
		t.Error("plain filter should prune subtrees")
	}
	s := Shallow(f)
	if PrunesSubtree(s) {
		t.Error("Shallow filter should not prune subtrees")
	}
	tr, id := single(t, "g:a:1", "", false)
	if !s.Accept(tr, id, nil) {
		t.Error("Shallow must keep the wrapped predicate")
	}
	if Shallow(nil) != nil {
		t.Error("Shallow(nil) should be nil")
	}
}

func TestShallowComposition(t *testing.T) {
	a, b := Shallow(Pattern("g")), Shallow(Optional(false))
	plain := Scope([]string{"compile"}, nil)
	tests := []struct {
		name  string
		f     Filter
		prune bool
	}{
		{"and of shallow", And(a, b), false},
		{"and with nil", And(a, nil), false},
		{"and mixed", And(a, plain), true},
		{"or of shallow", Or(a, b), false},
		{"or mixed", Or(plain, b), true},
		{"not shallow", Not(a), false},
		{"not plain", Not(plain), true},
		{"nested", Not(And(a, Or(b, a))), false},
		{"empty and", And(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PrunesSubtree(tt.f); got != tt.prune {
				t.Errorf("PrunesSubtree() = %v, want %v", got, tt.prune)
			}
		})
	}

	tr, id := single(t, "h:a:1", "", false)
	if !Not(a).Accept(tr, id, nil) || And(a, b).Accept(tr, id, nil) {
		t.Error("composition must keep the wrapped predicates")
	}
}

func TestSelect(t *testing.T) {
	if Select(nil, nil) != nil {
		t.Error("empty selection should be nil")
	}
	tests := []struct {
		name     string
		scopes   []string
		excludes []string
		coord    string
		scope    string
		want     bool
	}{
		{"scope match", []string{"compile", "runtime"}, nil, "g:a:1", "runtime", true},
		{"scope miss", []string{"compile"}, nil, "g:a:1", "test", false},
		{"excluded", nil, []string{"g:a"}, "g:a:1", "", false},
		{"not excluded", nil, []string{"g:b"}, "g:a:1", "", true},
		{"both", []string{"compile"}, []string{"org.*"}, "g:a:1", "compile", true},
		{"both excluded", []string{"compile"}, []string{"g:*"}, "g:a:1", "compile", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, id := single(t, tt.coord, tt.scope, false)
			if got := Select(tt.scopes, tt.excludes).Accept(tr, id, nil); got != tt.want {
				t.Errorf("Accept = %v, want %v", got, tt.want)
			}
		})
	}
}
