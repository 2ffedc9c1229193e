package system

import (
	"context"
	"errors"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/filter"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/telemetry"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// Orchestrate collects (unless req.Root is set), projects, resolves and
// merges. The returned error is non-nil only for a malformed request; stage
// failures are reported on the result.
func Orchestrate(ctx context.Context, sess *session.Session, req DependencyRequest,
	collector collect.Collector, resolver resolve.Resolver) (*DependencyResult, error) {
	if req.Root == nil && req.CollectRequest == nil {
		return nil, errs.New(errs.ErrCodeInvalidRequest, "dependency request needs a root tree or a collect request")
	}

	logger := sess.Logger()
	ctx, span := telemetry.StartSpan(ctx, "ResolveDependencies", attribute.String("request", req.String()))
	defer span.End()

	tr := trace.NewChild(req.Trace, req)
	ctx = trace.WithContext(ctx, tr)
	res := &DependencyResult{Request: req}

	var repos []repository.RemoteRepository
	var reqContext string
	if req.Root != nil {
		res.Tree = req.Root
		res.Cycles = req.Root.Cycles()
	} else {
		creq := *req.CollectRequest
		creq.Trace = tr
		repos, reqContext = creq.Repositories, creq.Context
		collectStage(ctx, sess, creq, collector, res)
	}

	var requests []resolve.ArtifactRequest
	if res.Tree.RootNode() != nil {
		requests = project(res.Tree, req.Filter, tr, repos, reqContext)
	}

	results := resolveStage(ctx, sess, requests, resolver, res)
	merged := merge(ctx, res.Tree, requests, results)
	res.ArtifactResults = results

	span.SetAttributes(
		attribute.Int("requests", len(requests)),
		attribute.Int("results", len(results)),
		attribute.Int("merged", merged),
		attribute.Int("cycles", len(res.Cycles)),
	)
	if err := res.Err(); err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetSpanOK(span)
	}
	logger.Info("resolved dependencies", "request", req.String(), "artifacts", merged,
		"unresolved", len(requests)-merged, "cycles", len(res.Cycles))
	return res, nil
}

// collectStage runs the collector and records its outcome on res, keeping
// the partial result carried by a CollectionError.
func collectStage(ctx context.Context, sess *session.Session, creq collect.Request, collector collect.Collector, res *DependencyResult) {
	ctx, span := telemetry.StartSpan(ctx, "collect", attribute.String("root", creq.String()))
	defer span.End()

	var (
		cres *collect.Result
		err  error
	)
	if collector == nil {
		err = errs.New(errs.ErrCodeUnsupported, "no collector")
	} else {
		cres, err = collector.CollectDependencies(ctx, sess, creq)
	}
	if err != nil {
		var cerr *collect.CollectionError
		if errors.As(err, &cerr) && cerr.Result != nil {
			cres = cerr.Result
		}
		res.CollectErr = err
		telemetry.RecordError(span, err)
		sess.Logger().Warn("collection failed, continuing with partial tree", "request", creq.String(), "error", err)
	} else {
		telemetry.SetSpanOK(span)
	}

	if cres != nil {
		res.Tree = cres.Tree
		res.Cycles = cres.Cycles()
		res.CollectExceptions = slices.Clone(cres.Exceptions)
	}
	if err != nil && !slices.ContainsFunc(res.CollectExceptions, func(e error) bool { return errors.Is(e, err) }) {
		res.CollectExceptions = append(res.CollectExceptions, err)
	}
	span.SetAttributes(attribute.Int("nodes", res.Tree.Len()), attribute.Int("exceptions", len(res.CollectExceptions)))
}

// resolveStage submits requests as one batch. On failure it returns the
// partial results carried by a ResolutionError.
func resolveStage(ctx context.Context, sess *session.Session, requests []resolve.ArtifactRequest,
	resolver resolve.Resolver, res *DependencyResult) []*resolve.ArtifactResult {
	ctx, span := telemetry.StartSpan(ctx, "resolve", attribute.Int("requests", len(requests)))
	defer span.End()

	var (
		results []*resolve.ArtifactResult
		err     error
	)
	if resolver == nil {
		err = errs.New(errs.ErrCodeUnsupported, "no resolver")
	} else {
		results, err = resolver.ResolveArtifacts(ctx, sess, requests)
	}
	if err != nil {
		var rerr *resolve.ResolutionError
		if errors.As(err, &rerr) && rerr.Results != nil {
			results = rerr.Results
		}
		res.ResolveErr = err
		telemetry.RecordError(span, err, attribute.Int("results", len(results)))
		sess.Logger().Warn("resolution failed, merging partial results", "requests", len(requests),
			"results", len(results), "error", err)
		return results
	}
	telemetry.SetSpanOK(span)
	return results
}

// merge binds results[i] to the node of requests[i]. Results beyond the
// request list and requests beyond the result list are ignored. It returns
// the number of nodes that received an artifact.
func merge(ctx context.Context, t *graph.Tree, requests []resolve.ArtifactRequest, results []*resolve.ArtifactResult) int {
	_, span := telemetry.StartSpan(ctx, "merge")
	defer span.End()

	merged := 0
	for i := range min(len(requests), len(results)) {
		r := results[i]
		if r == nil || !r.Resolved() {
			continue
		}
		if n := t.Node(requests[i].Node); n != nil {
			n.Resolved = r.Artifact
			merged++
		}
	}
	span.SetAttributes(attribute.Int("merged", merged))
	return merged
}

// requestBuilder is the visitor deriving artifact requests from a tree.
type requestBuilder struct {
	filter   filter.Filter
	prune    bool
	trace    *trace.RequestTrace
	repos    []repository.RemoteRepository
	context  string
	requests []resolve.ArtifactRequest
}

// Enter appends a request for every accepted node. Virtual roots have no
// artifact and are only traversed. A rejected node's subtree is skipped
// unless the filter is shallow.
func (b *requestBuilder) Enter(t *graph.Tree, id graph.NodeID, parents []graph.NodeID) bool {
	n := t.Node(id)
	if n.Virtual {
		return true
	}
	if b.filter != nil && !b.filter.Accept(t, id, parents) {
		return !b.prune
	}
	r := resolve.NewArtifactRequest(n.Coordinate())
	r.Node = id
	r.Trace = b.trace
	r.Repositories = b.repos
	r.Context = b.context
	b.requests = append(b.requests, r)
	return true
}

// Leave implements graph.Visitor.
func (b *requestBuilder) Leave(*graph.Tree, graph.NodeID, []graph.NodeID) bool { return true }

// project returns one request per accepted node in depth-first pre-order.
func project(t *graph.Tree, f filter.Filter, tr *trace.RequestTrace, repos []repository.RemoteRepository, reqContext string) []resolve.ArtifactRequest {
	b := &requestBuilder{
		filter:  f,
		prune:   f != nil && filter.PrunesSubtree(f),
		trace:   tr,
		repos:   repos,
		context: reqContext,
	}
	t.Accept(b)
	return b.requests
}
