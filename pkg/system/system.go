package system

import (
	"context"
	"errors"
	"slices"

	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/repository/maven"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
)

// RepositorySystem is the full set of repository operations.
type RepositorySystem interface {
	CollectDependencies(ctx context.Context, sess *session.Session, req collect.Request) (*collect.Result, error)
	ResolveDependencies(ctx context.Context, sess *session.Session, req DependencyRequest) (*DependencyResult, error)

	ResolveArtifact(ctx context.Context, sess *session.Session, req resolve.ArtifactRequest) (*resolve.ArtifactResult, error)
	ResolveArtifacts(ctx context.Context, sess *session.Session, reqs []resolve.ArtifactRequest) ([]*resolve.ArtifactResult, error)

	ReadArtifactDescriptor(ctx context.Context, sess *session.Session, req resolve.DescriptorRequest) (*resolve.DescriptorResult, error)
	ResolveMetadata(ctx context.Context, sess *session.Session, reqs []resolve.MetadataRequest) []*resolve.MetadataResult
	ResolveVersion(ctx context.Context, sess *session.Session, req resolve.VersionRequest) (*resolve.VersionResult, error)
	ResolveVersionRange(ctx context.Context, sess *session.Session, req resolve.VersionRangeRequest) (*resolve.VersionRangeResult, error)

	Install(ctx context.Context, sess *session.Session, req repository.InstallRequest) (*repository.InstallResult, error)
	Deploy(ctx context.Context, sess *session.Session, req repository.DeployRequest) (*repository.DeployResult, error)

	NewLocalRepositoryManager(ctx context.Context, sess *session.Session, repo repository.LocalRepository) (*repository.LocalManager, error)
	NewSyncContext(ctx context.Context, sess *session.Session, shared bool) *repository.SyncContext
	NewDeploymentRepository(ctx context.Context, sess *session.Session, repo repository.RemoteRepository) (repository.RemoteRepository, error)
	NewResolutionRepositories(ctx context.Context, sess *session.Session, repos []repository.RemoteRepository) []repository.RemoteRepository
}

// Options lists the collaborators of a System. Operations whose
// collaborator is nil fail with an UNSUPPORTED error.
type Options struct {
	Collector   collect.Collector
	Resolver    resolve.Resolver
	Descriptors resolve.DescriptorReader
	Metadata    resolve.MetadataResolver
	Versions    resolve.VersionResolver
	Ranges      resolve.VersionRangeResolver
	Deployer    *repository.Deployer
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.Deployer == nil {
		o.Deployer = repository.NewDeployer(nil)
	}
	return o
}

// System is the default RepositorySystem.
type System struct {
	opts Options
}

var _ RepositorySystem = (*System)(nil)

// New composes a System from its collaborators.
func New(opts Options) *System {
	return &System{opts: opts.WithDefaults()}
}

// NewMaven returns a System backed by a Maven repository client: a Crawler
// reading descriptors through c and a Bulk resolver downloading through c.
func NewMaven(c *maven.Client, copts collect.Options, ropts resolve.Options) *System {
	if copts.Ranges == nil {
		copts.Ranges = c
	}
	return New(Options{
		Collector:   collect.NewCrawler(c, copts),
		Resolver:    resolve.NewBulk(c, ropts),
		Descriptors: c,
		Metadata:    c,
		Versions:    c,
		Ranges:      c,
	})
}

func unsupported(op string) error {
	return errs.New(errs.ErrCodeUnsupported, "%s: not configured", op)
}

// CollectDependencies implements RepositorySystem.
func (s *System) CollectDependencies(ctx context.Context, sess *session.Session, req collect.Request) (*collect.Result, error) {
	if s.opts.Collector == nil {
		return nil, unsupported("collect dependencies")
	}
	return s.opts.Collector.CollectDependencies(ctx, sess, req)
}

// ResolveDependencies implements RepositorySystem by running Orchestrate
// with s as collector and resolver.
func (s *System) ResolveDependencies(ctx context.Context, sess *session.Session, req DependencyRequest) (*DependencyResult, error) {
	return Orchestrate(ctx, sess, req, s, s)
}

// ResolveArtifacts implements RepositorySystem.
func (s *System) ResolveArtifacts(ctx context.Context, sess *session.Session, reqs []resolve.ArtifactRequest) ([]*resolve.ArtifactResult, error) {
	if s.opts.Resolver == nil {
		return nil, unsupported("resolve artifacts")
	}
	return s.opts.Resolver.ResolveArtifacts(ctx, sess, reqs)
}

// ResolveArtifact resolves a single artifact through ResolveArtifacts.
func (s *System) ResolveArtifact(ctx context.Context, sess *session.Session, req resolve.ArtifactRequest) (*resolve.ArtifactResult, error) {
	results, err := s.ResolveArtifacts(ctx, sess, []resolve.ArtifactRequest{req})
	var rerr *resolve.ResolutionError
	if errors.As(err, &rerr) {
		results = rerr.Results
	}
	if len(results) == 0 {
		if err == nil {
			err = errs.New(errs.ErrCodeInternal, "resolve %s: no result", req.Artifact)
		}
		return nil, err
	}
	return results[0], err
}

// ReadArtifactDescriptor implements RepositorySystem.
func (s *System) ReadArtifactDescriptor(ctx context.Context, sess *session.Session, req resolve.DescriptorRequest) (*resolve.DescriptorResult, error) {
	if s.opts.Descriptors == nil {
		return nil, unsupported("read artifact descriptor")
	}
	return s.opts.Descriptors.ReadArtifactDescriptor(ctx, sess, req)
}

// ResolveMetadata implements RepositorySystem.
func (s *System) ResolveMetadata(ctx context.Context, sess *session.Session, reqs []resolve.MetadataRequest) []*resolve.MetadataResult {
	if s.opts.Metadata == nil {
		results := make([]*resolve.MetadataResult, len(reqs))
		for i, req := range reqs {
			results[i] = &resolve.MetadataResult{Request: req, Exception: unsupported("resolve metadata")}
		}
		return results
	}
	return s.opts.Metadata.ResolveMetadata(ctx, sess, reqs)
}

// ResolveVersion implements RepositorySystem.
func (s *System) ResolveVersion(ctx context.Context, sess *session.Session, req resolve.VersionRequest) (*resolve.VersionResult, error) {
	if s.opts.Versions == nil {
		return nil, unsupported("resolve version")
	}
	return s.opts.Versions.ResolveVersion(ctx, sess, req)
}

// ResolveVersionRange implements RepositorySystem.
func (s *System) ResolveVersionRange(ctx context.Context, sess *session.Session, req resolve.VersionRangeRequest) (*resolve.VersionRangeResult, error) {
	if s.opts.Ranges == nil {
		return nil, unsupported("resolve version range")
	}
	return s.opts.Ranges.ResolveVersionRange(ctx, sess, req)
}

// Install implements RepositorySystem, installing into the session's local
// repository.
func (s *System) Install(ctx context.Context, sess *session.Session, req repository.InstallRequest) (*repository.InstallResult, error) {
	m, err := s.NewLocalRepositoryManager(ctx, sess, sess.LocalRepository())
	if err != nil {
		return nil, err
	}
	return repository.Install(ctx, m, req)
}

// Deploy implements RepositorySystem.
func (s *System) Deploy(ctx context.Context, sess *session.Session, req repository.DeployRequest) (*repository.DeployResult, error) {
	if sess.Offline() {
		return nil, errs.Wrap(errs.ErrCodeOffline, repository.ErrOffline, "deploy to %s", req.Repository)
	}
	return s.opts.Deployer.Deploy(ctx, req)
}

// NewLocalRepositoryManager implements RepositorySystem.
func (s *System) NewLocalRepositoryManager(_ context.Context, _ *session.Session, repo repository.LocalRepository) (*repository.LocalManager, error) {
	return repository.NewLocalManager(repo)
}

// NewSyncContext implements RepositorySystem.
func (s *System) NewSyncContext(_ context.Context, _ *session.Session, shared bool) *repository.SyncContext {
	return repository.NewSyncContext(shared)
}

// NewDeploymentRepository implements RepositorySystem. It validates repo
// and normalizes its URL.
func (s *System) NewDeploymentRepository(_ context.Context, _ *session.Session, repo repository.RemoteRepository) (repository.RemoteRepository, error) {
	if err := repo.Validate(); err != nil {
		return repository.RemoteRepository{}, err
	}
	repo.URL = repo.BaseURL()
	return repo, nil
}

// NewResolutionRepositories implements RepositorySystem. It drops invalid
// repositories and repeated IDs, keeping the first occurrence.
func (s *System) NewResolutionRepositories(_ context.Context, sess *session.Session, repos []repository.RemoteRepository) []repository.RemoteRepository {
	out := make([]repository.RemoteRepository, 0, len(repos))
	for _, r := range repos {
		if err := r.Validate(); err != nil {
			sess.Logger().Debug("skipping repository", "repository", r.String(), "error", err)
			continue
		}
		if slices.ContainsFunc(out, func(o repository.RemoteRepository) bool { return o.ID == r.ID }) {
			continue
		}
		r.URL = r.BaseURL()
		out = append(out, r)
	}
	return out
}
