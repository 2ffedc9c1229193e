// Package resolve turns artifact coordinates into files.
//
// The central type is [Resolver], which resolves a batch of
// [ArtifactRequest] values in one call and returns one [ArtifactResult] per
// request in request order. When some requests fail the resolver returns
// the complete result list together with a [*ResolutionError] that carries
// the same list, so callers never lose the artifacts that did resolve:
//
//	results, err := resolver.ResolveArtifacts(ctx, sess, requests)
//	var rerr *resolve.ResolutionError
//	if errors.As(err, &rerr) {
//	    results = rerr.Results
//	}
//
// [Bulk] is the default implementation. It consults the local repository
// first, downloads the remaining artifacts concurrently through a
// [Fetcher], and fetches duplicate coordinates of one batch only once.
//
// The package also defines the request and result types of the
// descriptor, metadata and version queries that the repository system
// forwards to its collaborators.
package resolve
