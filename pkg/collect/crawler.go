package collect

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depresolve/pkg/artifact"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/observability"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/trace"
	"github.com/matzehuels/depresolve/pkg/version"
)

// Defaults for crawl limits.
const (
	DefaultMaxDepth    = 50
	DefaultMaxNodes    = 5000
	DefaultConcurrency = 8
)

// Keys of the annotations the crawler stores in graph.Node.Data.
const (
	DataPremanagedVersion = "premanaged.version"
	DataPremanagedScope   = "premanaged.scope"
	DataRelocations       = "relocations"
	DataVersionRange      = "version.range"
	DataRepository        = "repository"
)

// Options configures a Crawler.
type Options struct {
	MaxDepth    int // children deeper than this are added but not expanded
	MaxNodes    int // upper bound on tree size
	Concurrency int // parallel descriptor reads

	// Ranges expands version ranges such as "[1.0,2.0)". Without it a
	// ranged dependency is kept as a leaf and reported as an exception.
	Ranges resolve.VersionRangeResolver
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Crawler collects trees by reading descriptors level by level.
//
// Siblings are processed in declaration order and levels in depth order, so
// the first occurrence of an artifact (by groupId:artifactId:extension:classifier)
// is the nearest one and wins; later occurrences are dropped. A dependency
// on an ancestor is recorded as a cycle instead of being expanded again.
// Descriptors of one level are fetched concurrently; the resulting tree does
// not depend on fetch order.
type Crawler struct {
	reader resolve.DescriptorReader
	opts   Options
}

// NewCrawler returns a crawler reading descriptors from r.
func NewCrawler(r resolve.DescriptorReader, opts Options) *Crawler {
	return &Crawler{reader: r, opts: opts.WithDefaults()}
}

// CollectDependencies implements Collector.
func (c *Crawler) CollectDependencies(ctx context.Context, sess *session.Session, req Request) (*Result, error) {
	rootName := req.String()
	start := time.Now()
	hooks := observability.System()
	hooks.OnCollectStart(ctx, rootName)

	run := &crawl{
		Crawler: c,
		ctx:     ctx,
		sess:    sess,
		req:     req,
		res:     &Result{Request: req},
		visited: make(map[string]graph.NodeID),
	}
	err := run.run()

	nodes := 0
	if run.res.Tree != nil {
		nodes = run.res.Tree.Len()
	}
	hooks.OnCollectComplete(ctx, rootName, nodes, time.Since(start), err)
	sess.Logger().Debug("collected", "root", rootName, "nodes", nodes,
		"cycles", len(run.res.Cycles()), "exceptions", len(run.res.Exceptions))
	return run.res, err
}

type crawl struct {
	*Crawler
	ctx  context.Context
	sess *session.Session
	req  Request
	res  *Result

	managed   map[string]artifact.Dependency
	visited   map[string]graph.NodeID
	truncated bool
}

// pending is a node whose descriptor still has to be read.
type pending struct {
	id         graph.NodeID
	repos      []repository.RemoteRepository
	exclusions []artifact.Exclusion
	trace      *trace.RequestTrace
	desc       *resolve.DescriptorResult
}

func (r *crawl) fail(err error) {
	r.res.Exceptions = append(r.res.Exceptions, err)
}

func (r *crawl) run() error {
	if err := r.validate(); err != nil {
		r.fail(err)
		return r.finish()
	}

	root, direct, ok := r.root()
	if !ok {
		return r.finish()
	}
	r.expand([]*pending{root}, [][]artifact.Dependency{direct})
	return r.finish()
}

func (r *crawl) validate() error {
	if r.req.Root != nil {
		if err := r.req.Root.Artifact.Validate(); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidRequest, err, "root %s", r.req.Root.Artifact)
		}
	}
	if r.req.RootArtifact != nil {
		if err := r.req.RootArtifact.Validate(); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidRequest, err, "root artifact %s", r.req.RootArtifact)
		}
	}
	return nil
}

// root creates the tree and returns the root's pending entry together with
// its direct dependencies.
func (r *crawl) root() (*pending, []artifact.Dependency, bool) {
	req := r.req
	p := &pending{
		repos: slices.Clone(req.Repositories),
		trace: trace.NewChild(req.Trace, req),
	}
	direct := slices.Clone(req.Dependencies)
	managed := slices.Clone(req.Managed)

	switch {
	case req.Root != nil:
		r.res.Tree = graph.New(*req.Root)
		p.exclusions = req.Root.Exclusions

		desc, err := r.read(p.trace, req.Root.Artifact, p.repos)
		if err != nil {
			r.fail(err)
			return nil, nil, false
		}
		r.relocate(r.res.Tree.Root(), desc)
		direct = mergeDependencies(direct, desc.Dependencies)
		managed = append(managed, desc.Managed...)
		p.repos = mergeRepositories(p.repos, desc.Repositories)
	case req.RootArtifact != nil:
		r.res.Tree = graph.New(artifact.Dependency{Artifact: *req.RootArtifact})
	default:
		r.res.Tree = graph.NewVirtual()
	}

	p.id = r.res.Tree.Root()
	if n := r.res.Tree.RootNode(); !n.Virtual {
		r.visited[n.Coordinate().Key()] = p.id
	}
	r.managed = make(map[string]artifact.Dependency, len(managed))
	for _, m := range managed {
		if _, ok := r.managed[m.Artifact.Key()]; !ok {
			r.managed[m.Artifact.Key()] = m
		}
	}
	return p, direct, true
}

// expand adds the dependencies of one level and descends until no node is
// left to expand.
func (r *crawl) expand(level []*pending, deps [][]artifact.Dependency) {
	for len(level) > 0 {
		if err := r.ctx.Err(); err != nil {
			r.fail(err)
			return
		}

		var next []*pending
		for i, parent := range level {
			for _, dep := range deps[i] {
				if p := r.addChild(parent, dep); p != nil {
					next = append(next, p)
				}
			}
		}

		r.fetch(next)
		level, deps = level[:0], deps[:0]
		for _, p := range next {
			if p.desc == nil {
				continue
			}
			r.relocate(p.id, p.desc)
			p.repos = mergeRepositories(p.repos, p.desc.Repositories)
			level = append(level, p)
			deps = append(deps, p.desc.Dependencies)
		}
	}
}

// addChild applies mediation to dep and adds it below parent. It returns the
// new node's pending entry if the node should be expanded.
func (r *crawl) addChild(parent *pending, dep artifact.Dependency) *pending {
	tree := r.res.Tree
	pnode := tree.Node(parent.id)
	transitive := parent.id != tree.Root()
	if transitive {
		if dep.Optional {
			return nil
		}
		switch dep.EffectiveScope() {
		case artifact.ScopeTest, artifact.ScopeProvided:
			return nil
		}
	}

	dep, premanaged := r.manage(dep, transitive)
	if slices.ContainsFunc(parent.exclusions, func(e artifact.Exclusion) bool { return e.Matches(dep.Artifact) }) {
		return nil
	}
	if transitive {
		dep.Scope = artifact.DeriveScope(pnode.Dependency.Scope, dep.Scope)
	}

	key := dep.Artifact.Key()
	path := tree.Path(parent.id)
	for i, id := range path {
		if n := tree.Node(id); !n.Virtual && n.Coordinate().Key() == key {
			_ = tree.AddCycle(path[i:])
			return nil
		}
	}
	if _, seen := r.visited[key]; seen {
		return nil
	}
	if tree.Len() >= r.opts.MaxNodes {
		if !r.truncated {
			r.truncated = true
			r.fail(errs.New(errs.ErrCodeCollection, "tree truncated at %d nodes", r.opts.MaxNodes))
		}
		return nil
	}

	ranged := ""
	if version.IsRange(dep.Artifact.Version) {
		ranged = dep.Artifact.Version
		v, err := r.expandRange(parent.trace, dep.Artifact, parent.repos)
		if err != nil {
			r.fail(err)
		} else {
			dep.Artifact = dep.Artifact.WithVersion(v)
		}
	}

	id, err := tree.AddChild(parent.id, dep)
	if err != nil {
		r.fail(errs.Wrap(errs.ErrCodeInternal, err, "add %s", dep.Artifact))
		return nil
	}
	r.visited[key] = id
	node := tree.Node(id)
	for k, v := range premanaged {
		node.Data[k] = v
	}
	if ranged != "" {
		node.Data[DataVersionRange] = ranged
	}

	if node.Depth >= r.opts.MaxDepth || !dep.Transitive() || version.IsRange(dep.Artifact.Version) {
		return nil
	}
	return &pending{
		id:         id,
		repos:      parent.repos,
		exclusions: append(slices.Clone(parent.exclusions), dep.Exclusions...),
		trace:      trace.NewChild(parent.trace, dep),
	}
}

// manage applies dependency management. Direct dependencies only take
// missing values from management; transitive ones are overridden.
func (r *crawl) manage(dep artifact.Dependency, transitive bool) (artifact.Dependency, map[string]any) {
	m, ok := r.managed[dep.Artifact.Key()]
	if !ok {
		return dep, nil
	}
	data := make(map[string]any)
	if v := m.Artifact.Version; v != "" && v != dep.Artifact.Version && (transitive || dep.Artifact.Version == "") {
		data[DataPremanagedVersion] = dep.Artifact.Version
		dep.Artifact = dep.Artifact.WithVersion(v)
	}
	if m.Scope != "" && m.Scope != dep.Scope && (transitive || dep.Scope == "") {
		data[DataPremanagedScope] = dep.Scope
		dep.Scope = m.Scope
	}
	if transitive && len(m.Exclusions) > 0 {
		dep.Exclusions = append(slices.Clone(dep.Exclusions), m.Exclusions...)
	}
	return dep, data
}

func (r *crawl) expandRange(tr *trace.RequestTrace, c artifact.Coordinate, repos []repository.RemoteRepository) (string, error) {
	if r.opts.Ranges == nil {
		return "", errs.New(errs.ErrCodeUnsupported, "version range %s: no range resolver", c)
	}
	res, err := r.opts.Ranges.ResolveVersionRange(r.ctx, r.sess, resolve.VersionRangeRequest{
		Artifact:     c,
		Repositories: repos,
		Trace:        trace.NewChild(tr, c),
	})
	if err != nil {
		return "", err
	}
	v, ok := res.Highest()
	if !ok {
		return "", errs.Wrap(errs.ErrCodeCollection, res.Err(), "no version of %s:%s matches %s",
			c.GroupID, c.ArtifactID, c.Version)
	}
	return v, nil
}

// fetch reads the descriptors of all entries concurrently. Failures are
// recorded in entry order so the exception list is deterministic.
func (r *crawl) fetch(entries []*pending) {
	if len(entries) == 0 {
		return
	}
	failures := make([]error, len(entries))

	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, p := range entries {
		c := r.res.Tree.Node(p.id).Coordinate()
		g.Go(func() error {
			desc, err := r.readCtx(ctx, p.trace, c, p.repos)
			if err != nil {
				failures[i] = err
				return nil
			}
			p.desc = desc
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range failures {
		if err != nil {
			r.fail(err)
		}
	}
}

func (r *crawl) read(tr *trace.RequestTrace, c artifact.Coordinate, repos []repository.RemoteRepository) (*resolve.DescriptorResult, error) {
	return r.readCtx(r.ctx, tr, c, repos)
}

func (r *crawl) readCtx(ctx context.Context, tr *trace.RequestTrace, c artifact.Coordinate, repos []repository.RemoteRepository) (*resolve.DescriptorResult, error) {
	if r.reader == nil {
		return nil, errs.New(errs.ErrCodeInternal, "no descriptor reader")
	}
	desc, err := r.reader.ReadArtifactDescriptor(ctx, r.sess, resolve.DescriptorRequest{
		Artifact:     c,
		Repositories: repos,
		Context:      r.req.Context,
		Trace:        tr,
	})
	if err != nil {
		return nil, fmt.Errorf("read descriptor of %s: %w", c, err)
	}
	if desc == nil {
		return nil, errs.New(errs.ErrCodeArtifactNotFound, "read descriptor of %s: empty result", c)
	}
	return desc, nil
}

// relocate records where a descriptor came from and follows relocations.
func (r *crawl) relocate(id graph.NodeID, desc *resolve.DescriptorResult) {
	node := r.res.Tree.Node(id)
	if desc.Repository != "" {
		node.Data[DataRepository] = desc.Repository
	}
	if len(desc.Relocations) == 0 || desc.Artifact.GroupID == "" {
		return
	}
	node.Data[DataRelocations] = slices.Clone(desc.Relocations)
	node.Dependency.Artifact = desc.Artifact
	r.visited[desc.Artifact.Key()] = id
}

func (r *crawl) finish() error {
	if len(r.res.Exceptions) == 0 {
		return nil
	}
	cause := errs.Wrap(errs.ErrCodeCollection, errors.Join(r.res.Exceptions...),
		"%d problem(s) collecting %s", len(r.res.Exceptions), r.req)
	return &CollectionError{Cause: cause, Result: r.res}
}

// mergeDependencies appends extra to deps, skipping entries whose key is
// already present. deps wins.
func mergeDependencies(deps, extra []artifact.Dependency) []artifact.Dependency {
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		seen[d.Artifact.Key()] = true
	}
	for _, d := range extra {
		if !seen[d.Artifact.Key()] {
			seen[d.Artifact.Key()] = true
			deps = append(deps, d)
		}
	}
	return deps
}

func mergeRepositories(repos, extra []repository.RemoteRepository) []repository.RemoteRepository {
	out := slices.Clone(repos)
	for _, e := range extra {
		if !slices.ContainsFunc(out, func(r repository.RemoteRepository) bool { return r.ID == e.ID }) {
			out = append(out, e)
		}
	}
	return out
}
