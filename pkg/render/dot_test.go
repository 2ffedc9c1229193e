package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/graph"
)

func dep(s string) artifact.Dependency {
	return artifact.NewDependency(artifact.MustParse(s))
}

func sampleTree() *graph.Tree {
	t := graph.New(dep("org.example:app:1.0"))
	a, _ := t.AddChild(t.Root(), dep("org.example:lib:2.0"))
	b, _ := t.AddChild(a, dep("org.example:util:3.0"))
	_ = t.AddCycle([]graph.NodeID{a, b})
	t.RootNode().Resolved = artifact.New(t.RootNode().Coordinate()).WithFile("/repo/app-1.0.jar")
	return t
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{})

	for _, want := range []string{
		"digraph G",
		`n0 [label="app\n1.0"]`,
		"n0 -> n1;",
		"n1 -> n2;",
		"n2 -> n1 [color=red, style=dashed, constraint=false];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
	if !strings.Contains(dot, `n1 [label="lib\n2.0", style="rounded,filled,dashed", fillcolor=lightgrey`) {
		t.Errorf("unresolved node not dashed:\n%s", dot)
	}
}

func TestToDOTOptions(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{Detailed: true, HideCycles: true})
	if strings.Contains(dot, "color=red") {
		t.Error("HideCycles should drop back-edges")
	}
	if !strings.Contains(dot, `app\n1.0\norg.example\nscope: compile\nfile: /repo/app-1.0.jar`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestToDOTVirtualRoot(t *testing.T) {
	tree := graph.NewVirtual()
	_, _ = tree.AddChild(tree.Root(), dep("g:a:1"))
	dot := ToDOT(tree, Options{})
	if !strings.Contains(dot, `n0 [label="dependencies", shape=plaintext`) {
		t.Errorf("virtual root:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.40 200.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.40 200.00" width="100" height="200">`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg/>")); string(got) != "<svg/>" {
		t.Errorf("no viewBox should be unchanged, got %s", got)
	}
}
