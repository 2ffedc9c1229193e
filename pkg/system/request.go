package system

import (
	"errors"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/collect"
	"github.com/matzehuels/depresolve/pkg/filter"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// DependencyRequest asks to resolve a dependency tree. Exactly one of Root
// and CollectRequest is used; Root wins when both are set.
type DependencyRequest struct {
	// Root is a pre-collected tree. It is used as is and resolved artifacts
	// are written into its nodes.
	Root *graph.Tree

	// CollectRequest collects the tree first.
	CollectRequest *collect.Request

	// Filter selects the nodes to resolve. Nil resolves every node.
	Filter filter.Filter

	Trace *trace.RequestTrace
}

func (r DependencyRequest) String() string {
	switch {
	case r.Root != nil:
		if n := r.Root.RootNode(); n != nil && !n.Virtual {
			return n.Coordinate().String()
		}
		return "dependency tree"
	case r.CollectRequest != nil:
		return r.CollectRequest.String()
	}
	return "empty request"
}

// DependencyResult is the outcome of ResolveDependencies.
type DependencyResult struct {
	Request DependencyRequest

	// Tree is the resolved tree, possibly partial. Nil when collection
	// produced no tree.
	Tree   *graph.Tree
	Cycles []graph.Cycle

	// CollectExceptions lists the collection problems, followed by the
	// collection failure itself when there was one.
	CollectExceptions []error

	// ArtifactResults holds one result per projected request in traversal
	// order. It is shorter than the request list only when the resolver
	// failed without producing every result.
	ArtifactResults []*resolve.ArtifactResult

	// CollectErr and ResolveErr are the stage failures. They do not make
	// ResolveDependencies fail.
	CollectErr error
	ResolveErr error
}

// Root returns the root node, or nil.
func (r *DependencyResult) Root() *graph.Node {
	return r.Tree.RootNode()
}

// Err joins the stage failures.
func (r *DependencyResult) Err() error {
	return errors.Join(r.CollectErr, r.ResolveErr)
}

// Failed reports whether any stage failed.
func (r *DependencyResult) Failed() bool {
	return r.CollectErr != nil || r.ResolveErr != nil
}

// Unresolved returns the artifact results that did not resolve.
func (r *DependencyResult) Unresolved() []*resolve.ArtifactResult {
	var out []*resolve.ArtifactResult
	for _, res := range r.ArtifactResults {
		if res != nil && !res.Resolved() {
			out = append(out, res)
		}
	}
	return out
}

// Artifacts returns the resolved artifacts in traversal order.
func (r *DependencyResult) Artifacts() []*artifact.Artifact {
	var out []*artifact.Artifact
	for _, res := range r.ArtifactResults {
		if res != nil && res.Resolved() {
			out = append(out, res.Artifact)
		}
	}
	return out
}
