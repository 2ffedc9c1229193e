// Package pkg holds the depresolve libraries.
//
// # Overview
//
// depresolve answers "which files does this artifact need?" for Maven
// artifacts: it collects the transitive dependency tree, resolves every
// selected node to a file in the local repository and reports what could not
// be resolved. Failures in either stage are recorded, never fatal, so a
// caller always gets the partial tree back.
//
// # Architecture
//
//	coordinates or pom.xml
//	         ↓
//	    [collect] (descriptor reads, version ranges, mediation, cycles)
//	         ↓
//	    [graph] tree  ──[filter]──→  artifact requests
//	         ↓
//	    [resolve] (bulk download into the local repository)
//	         ↓
//	    merge by position → [system] DependencyResult
//	         ↓
//	    [report] / [render] / [store]
//
// # Quick Start
//
//	client := maven.NewClient(maven.Options{})
//	sys := system.NewTracking(system.NewMaven(client, collect.Options{}, resolve.Options{}))
//
//	sess := session.New(session.Options{Remotes: []repository.RemoteRepository{repository.Central()}})
//	req, _ := collect.ParseRequest("org.slf4j:slf4j-api:2.0.13")
//	res, _ := sys.ResolveDependencies(ctx, sess, system.DependencyRequest{
//	    CollectRequest: &req,
//	    Filter:         filter.Scope([]string{"compile", "runtime"}, nil),
//	})
//	for _, a := range res.Artifacts() {
//	    fmt.Println(a.File)
//	}
//
// # Packages
//
// Domain:
//
//   - [artifact]: coordinates, artifacts, dependencies, exclusions
//   - [graph]: the arena-backed dependency tree and its visitors
//   - [filter]: node selection for resolution
//   - [collect]: dependency collection
//   - [resolve]: artifact requests, results and bulk resolution
//   - [system]: the orchestrating repository system and its tracking shell
//   - [repository], [repository/maven]: local and remote repositories and
//     the Maven implementation of every stage
//   - [version]: Maven version ordering and ranges
//
// Infrastructure:
//
//   - [session]: per-request settings and the TOML configuration
//   - [cache]: file, Redis and null caches for descriptors and metadata
//   - [errors]: coded errors
//   - [observability], [telemetry], [trace]: hooks, spans and request traces
//   - [report], [render], [store]: output documents, DOT/SVG and persistence
//   - [buildinfo]: version stamping
package pkg
