// Package system resolves dependency trees end to end.
//
// # Architecture
//
// [ResolveDependencies] (and [Orchestrate], which it calls) runs four
// stages in order:
//
//  1. Collect: obtain a tree, either the request's pre-collected tree or one
//     built by a [collect.Collector]
//  2. Project: walk the tree depth-first and derive one
//     [resolve.ArtifactRequest] per accepted node, in traversal order
//  3. Resolve: submit all requests as one batch to a [resolve.Resolver]
//  4. Merge: bind result i to the node that produced request i
//
// Stage failures do not abort the run. A failed collection continues with
// the partial tree carried by its [*collect.CollectionError]; a failed
// resolution merges the partial results carried by its
// [*resolve.ResolutionError]. Both errors are kept on the
// [DependencyResult] ([DependencyResult.CollectErr],
// [DependencyResult.ResolveErr]) and ResolveDependencies still returns a
// nil error. Only a request with neither a tree nor a collect request is
// rejected with an INVALID_REQUEST error.
//
// # Usage
//
//	sys := system.NewMaven(client, collect.Options{}, resolve.Options{})
//	res, err := sys.ResolveDependencies(ctx, sess, system.DependencyRequest{
//	    CollectRequest: &collect.Request{Root: &root},
//	    Filter:         filter.Scope([]string{"compile", "runtime"}, nil),
//	})
//	if err != nil {
//	    return err // malformed request
//	}
//	if res.Failed() {
//	    log.Warn("partial result", "error", res.Err())
//	}
//
// [Tracking] wraps any [RepositorySystem] and remembers the most recent
// collection result for out-of-band inspection.
package system
