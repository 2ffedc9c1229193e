// Package collect builds dependency trees.
//
// A [Collector] turns a [Request] (a root artifact plus direct and managed
// dependencies) into a [Result] holding a [graph.Tree]. Collection that runs
// into problems still produces a tree: the collector returns the partial
// result together with a [*CollectionError] that carries the same result.
//
//	res, err := collector.CollectDependencies(ctx, sess, req)
//	var cerr *collect.CollectionError
//	if errors.As(err, &cerr) {
//	    res = cerr.Result // partial tree, cycles and exceptions
//	}
//
// [Crawler] is the default collector. It reads artifact descriptors
// breadth-first and applies Maven's mediation rules.
package collect

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/depresolve/pkg/artifact"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// Request describes the tree to collect.
//
// If Root is set its descriptor is read and its dependencies become the
// direct dependencies, merged with Dependencies. If only RootArtifact is
// set the root is that artifact and Dependencies are its direct
// dependencies; its descriptor is not read. If neither is set the tree has a
// virtual root whose children are Dependencies.
type Request struct {
	Root         *artifact.Dependency          `json:"root,omitempty"`
	RootArtifact *artifact.Coordinate          `json:"rootArtifact,omitempty"`
	Dependencies []artifact.Dependency         `json:"dependencies,omitempty"`
	Managed      []artifact.Dependency         `json:"managedDependencies,omitempty"`
	Repositories []repository.RemoteRepository `json:"repositories,omitempty"`
	Context      string                        `json:"context,omitempty"`
	Trace        *trace.RequestTrace           `json:"-"`
}

// RootCoordinate returns the coordinate of the requested root, if any.
func (r Request) RootCoordinate() (artifact.Coordinate, bool) {
	switch {
	case r.Root != nil:
		return r.Root.Artifact, true
	case r.RootArtifact != nil:
		return *r.RootArtifact, true
	}
	return artifact.Coordinate{}, false
}

func (r Request) String() string {
	if c, ok := r.RootCoordinate(); ok {
		return fmt.Sprintf("%s -> %d dependencies", c, len(r.Dependencies))
	}
	return fmt.Sprintf("%d dependencies", len(r.Dependencies))
}

// Result is the outcome of collection.
type Result struct {
	Request Request

	// Tree is nil only when collection failed before a root existed.
	Tree *graph.Tree

	// Exceptions lists every problem met while collecting, in the order
	// they were encountered.
	Exceptions []error
}

// Root returns the root node, or nil.
func (r *Result) Root() *graph.Node {
	if r == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// Clone returns a copy of r with its own tree.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		Request:    r.Request,
		Tree:       r.Tree.Clone(),
		Exceptions: slices.Clone(r.Exceptions),
	}
}

// Cycles returns the cycles recorded in the tree.
func (r *Result) Cycles() []graph.Cycle {
	if r == nil {
		return nil
	}
	return r.Tree.Cycles()
}

// CollectionError reports that collection met problems. Result holds the
// partial tree, which may still be used.
type CollectionError struct {
	Cause  error
	Result *Result
}

func (e *CollectionError) Error() string {
	if e.Cause == nil {
		return "collect dependencies: failed"
	}
	return "collect dependencies: " + e.Cause.Error()
}

func (e *CollectionError) Unwrap() error { return e.Cause }

// Collector collects dependency trees.
//
// On failure implementations return a *CollectionError whose Result is the
// partial outcome (and return that same result as the first value).
type Collector interface {
	CollectDependencies(ctx context.Context, sess *session.Session, req Request) (*Result, error)
}

// CollectorFunc adapts a function to a Collector.
type CollectorFunc func(ctx context.Context, sess *session.Session, req Request) (*Result, error)

// CollectDependencies implements Collector.
func (f CollectorFunc) CollectDependencies(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	return f(ctx, sess, req)
}

// ParseRequest builds a request from artifact coordinates. A single
// coordinate becomes the root whose descriptor is read; several become the
// direct dependencies of a virtual root.
func ParseRequest(coords ...string) (Request, error) {
	deps := make([]artifact.Dependency, 0, len(coords))
	for _, s := range coords {
		c, err := artifact.Parse(s)
		if err != nil {
			return Request{}, err
		}
		deps = append(deps, artifact.NewDependency(c))
	}
	switch len(deps) {
	case 0:
		return Request{}, errs.New(errs.ErrCodeInvalidRequest, "no coordinates given")
	case 1:
		return Request{Root: &deps[0]}, nil
	}
	return Request{Dependencies: deps}, nil
}
