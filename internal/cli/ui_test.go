package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/collect"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/report"
	"github.com/matzehuels/depresolve/pkg/system"
)

func dep(coord string) artifact.Dependency {
	return artifact.NewDependency(artifact.MustParse(coord))
}

// resolvedTree returns root -> a -> b with a cycle b -> a, a test-scoped c
// below the root, and every node but b resolved.
func resolvedTree(t *testing.T) *graph.Tree {
	t.Helper()
	tree := graph.New(dep("g:root:1"))
	a, _ := tree.AddChild(tree.Root(), dep("g:a:1"))
	b, _ := tree.AddChild(a, dep("g:b:1"))
	test := dep("g:c:1")
	test.Scope = "test"
	c, _ := tree.AddChild(tree.Root(), test)
	if err := tree.AddCycle([]graph.NodeID{a, b}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []graph.NodeID{tree.Root(), a, c} {
		n := tree.Node(id)
		n.Resolved = artifact.New(n.Coordinate()).WithFile("/m2/" + n.Coordinate().ArtifactID + ".jar")
	}
	return tree
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	printTree(&buf, resolvedTree(t), true)
	want := []string{
		"g:root:1 " + iconSuccess,
		"  g:a:1 " + iconSuccess,
		"    g:b:1 " + iconError,
		"  g:c:1 (test) " + iconSuccess,
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestPrintTreeVirtualRoot(t *testing.T) {
	tree := graph.NewVirtual()
	_, _ = tree.AddChild(tree.Root(), dep("g:a:1"))

	var buf bytes.Buffer
	printTree(&buf, tree, false)
	if got := buf.String(); got != "(dependencies)\n  g:a:1\n" {
		t.Errorf("printTree = %q", got)
	}
}

func TestWriteResult(t *testing.T) {
	tree := resolvedTree(t)
	res := &system.DependencyResult{
		Tree:       tree,
		Cycles:     tree.Cycles(),
		ResolveErr: errors.New("1 artifact failed"),
	}
	rep := report.Build(res)

	tests := []struct {
		format string
		want   []string
	}{
		{formatText, []string{"g:root:1", iconCycle + " g:a:1 " + iconArrow + " g:b:1 " + iconArrow + " g:a:1", "4 components", "1 cycles", iconError + " g:b:1"}},
		{formatJSON, []string{`"root": "g:root:1"`, `"cycles": [`}},
		{formatYAML, []string{"root: g:root:1", "- ref: g:c:1"}},
		{formatDOT, []string{"digraph G {", "color=red"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeResult(context.Background(), &buf, outputFlags{format: tt.format}, rep, tree, true)
			if err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}

	var buf bytes.Buffer
	if err := writeResult(context.Background(), &buf, outputFlags{format: formatDOT}, rep, nil, true); err == nil {
		t.Error("dot without a tree should fail")
	}
}

func TestOutputFlagsValidate(t *testing.T) {
	for _, f := range formats {
		if err := (&outputFlags{format: f}).validate(); err != nil {
			t.Errorf("validate(%q) = %v", f, err)
		}
	}
	if err := (&outputFlags{format: "png"}).validate(); err == nil {
		t.Error("validate(png) should fail")
	}
}

func TestPartialCollect(t *testing.T) {
	partial := &collect.Result{Tree: graph.New(dep("g:a:1"))}
	cause := errors.New("boom")

	tests := []struct {
		name    string
		res     *collect.Result
		err     error
		wantRes *collect.Result
	}{
		{"success", partial, nil, partial},
		{"result and error", partial, cause, partial},
		{"result in error", nil, &collect.CollectionError{Cause: cause, Result: partial}, partial},
		{"no result", nil, cause, nil},
		{"empty collection error", nil, &collect.CollectionError{Cause: cause}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := partialCollect(tt.res, tt.err)
			if res != tt.wantRes {
				t.Errorf("result = %p, want %p", res, tt.wantRes)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
		})
	}
}
