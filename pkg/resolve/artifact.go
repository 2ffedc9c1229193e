package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// ArtifactRequest asks for one artifact.
type ArtifactRequest struct {
	Artifact artifact.Coordinate

	// Repositories are tried in order. Empty means the session's remotes.
	Repositories []repository.RemoteRepository

	// Context names the purpose of the request (e.g. "project").
	Context string
	Trace   *trace.RequestTrace

	// Node is the tree node the request was derived from, or graph.NoNode.
	Node graph.NodeID
}

// NewArtifactRequest creates a request that is not tied to a tree node.
func NewArtifactRequest(c artifact.Coordinate) ArtifactRequest {
	return ArtifactRequest{Artifact: c, Node: graph.NoNode}
}

// ArtifactResult is the outcome of one ArtifactRequest.
type ArtifactResult struct {
	Request ArtifactRequest

	// Artifact is nil unless the request resolved.
	Artifact *artifact.Artifact

	// Repository is the ID of the repository that provided the artifact,
	// or "local" when it was already present locally.
	Repository string

	Exceptions []error
}

// LocalRepositoryID marks artifacts found in the local repository.
const LocalRepositoryID = "local"

// Resolved reports whether the result carries an artifact bound to a file.
func (r *ArtifactResult) Resolved() bool {
	return r != nil && r.Artifact != nil && r.Artifact.File != ""
}

// Err joins the result's exceptions.
func (r *ArtifactResult) Err() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Exceptions...)
}

// ResolutionError reports that at least one request of a batch failed.
// Results holds the outcome of every request, in request order.
type ResolutionError struct {
	Cause   error
	Results []*ArtifactResult
}

func (e *ResolutionError) Error() string {
	failed := len(e.Failed())
	msg := fmt.Sprintf("resolve artifacts: %d of %d failed", failed, len(e.Results))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// Failed returns the unresolved results.
func (e *ResolutionError) Failed() []*ArtifactResult {
	var out []*ArtifactResult
	for _, r := range e.Results {
		if !r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// Resolver resolves artifacts in bulk.
//
// Implementations return exactly one result per request in request order.
// If any request fails they return those results together with a
// *ResolutionError; the error's Results may be shorter than the request
// list only when resolution was aborted.
type Resolver interface {
	ResolveArtifacts(ctx context.Context, sess *session.Session, reqs []ArtifactRequest) ([]*ArtifactResult, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(ctx context.Context, sess *session.Session, reqs []ArtifactRequest) ([]*ArtifactResult, error)

// ResolveArtifacts implements Resolver.
func (f ResolverFunc) ResolveArtifacts(ctx context.Context, sess *session.Session, reqs []ArtifactRequest) ([]*ArtifactResult, error) {
	return f(ctx, sess, reqs)
}
