package graph_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/graph"
)

func Example() {
	tree := graph.New(artifact.NewDependency(artifact.MustParse("org.example:app:1.0")))
	lib, _ := tree.AddChild(tree.Root(), artifact.NewDependency(artifact.MustParse("org.example:lib:2.0")))
	_, _ = tree.AddChild(lib, artifact.NewDependency(artifact.MustParse("org.example:util:3.0")))

	tree.Walk(func(n *graph.Node, parents []graph.NodeID) bool {
		fmt.Println(strings.Repeat("  ", len(parents)) + n.Coordinate().String())
		return true
	})
	// Output:
	// org.example:app:1.0
	//   org.example:lib:2.0
	//     org.example:util:3.0
}
