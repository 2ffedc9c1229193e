package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/observability"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
)

// DefaultConcurrency bounds parallel downloads when Options.Concurrency is
// not set.
const DefaultConcurrency = 8

// ErrNotFound is returned when no repository provides an artifact.
var ErrNotFound = errors.New("artifact not found")

// Fetcher downloads one artifact from one remote repository into the local
// repository. It returns an error wrapping cache.ErrNotFound when the
// repository does not have the artifact.
type Fetcher interface {
	Download(ctx context.Context, sess *session.Session, repo repository.RemoteRepository,
		c artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error)
}

// Options configures Bulk.
type Options struct {
	Concurrency int
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return opts
}

// Bulk resolves batches of artifacts against the session's local
// repository and, unless the session is offline, remote repositories.
type Bulk struct {
	fetcher Fetcher
	opts    Options
}

// NewBulk creates a bulk resolver. A nil fetcher restricts resolution to
// the local repository.
func NewBulk(f Fetcher, opts Options) *Bulk {
	return &Bulk{fetcher: f, opts: opts.WithDefaults()}
}

// download is one distinct coordinate of a batch and the requests sharing it.
type download struct {
	coord    artifact.Coordinate
	repos    []repository.RemoteRepository
	indices  []int
	artifact *artifact.Artifact
	repo     string
	errs     []error
}

// ResolveArtifacts implements Resolver.
func (b *Bulk) ResolveArtifacts(ctx context.Context, sess *session.Session, reqs []ArtifactRequest) ([]*ArtifactResult, error) {
	start := time.Now()
	hooks := observability.System()
	hooks.OnResolveStart(ctx, len(reqs))
	logger := sess.Logger()

	results := make([]*ArtifactResult, len(reqs))
	for i, r := range reqs {
		results[i] = &ArtifactResult{Request: r}
	}
	if len(reqs) == 0 {
		hooks.OnResolveComplete(ctx, 0, 0, time.Since(start), nil)
		return results, nil
	}

	local, err := repository.NewLocalManager(sess.LocalRepository())
	if err != nil {
		for _, r := range results {
			r.Exceptions = append(r.Exceptions, err)
		}
		return b.finish(ctx, results, start, err)
	}

	downloads, order := b.group(reqs, results)
	var pending []*download
	for _, key := range order {
		d := downloads[key]
		if a, ok := local.Find(d.coord); ok {
			d.artifact, d.repo = a, LocalRepositoryID
			continue
		}
		switch {
		case sess.Offline():
			d.errs = append(d.errs, errs.Wrap(errs.ErrCodeOffline, repository.ErrOffline,
				"%s is not in the local repository", d.coord))
		case b.fetcher == nil:
			d.errs = append(d.errs, errs.Wrap(errs.ErrCodeArtifactNotFound, ErrNotFound,
				"%s is not in the local repository", d.coord))
		default:
			pending = append(pending, d)
		}
	}

	if len(pending) > 0 {
		logger.Debug("downloading artifacts", "count", len(pending), "concurrency", b.opts.Concurrency)
		var g errgroup.Group
		g.SetLimit(b.opts.Concurrency)
		for _, d := range pending {
			g.Go(func() error {
				b.fetch(ctx, sess, local, d)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, d := range downloads {
		for _, i := range d.indices {
			r := results[i]
			if r.Exceptions != nil {
				continue
			}
			if d.artifact != nil {
				r.Artifact = d.artifact.WithFile(d.artifact.File)
				r.Repository = d.repo
			} else {
				r.Exceptions = append(r.Exceptions, d.errs...)
			}
		}
	}
	return b.finish(ctx, results, start, nil)
}

// group merges requests for the same coordinate so that each artifact is
// fetched once. Invalid coordinates fail immediately and are not grouped.
func (b *Bulk) group(reqs []ArtifactRequest, results []*ArtifactResult) (map[string]*download, []string) {
	downloads := make(map[string]*download)
	var order []string
	for i, r := range reqs {
		if err := r.Artifact.Validate(); err != nil {
			results[i].Exceptions = []error{err}
			continue
		}
		key := r.Artifact.Key() + ":" + r.Artifact.Version
		d, ok := downloads[key]
		if !ok {
			d = &download{coord: r.Artifact}
			downloads[key] = d
			order = append(order, key)
		}
		d.repos = appendRepos(d.repos, r.Repositories)
		d.indices = append(d.indices, i)
	}
	return downloads, order
}

func appendRepos(dst, src []repository.RemoteRepository) []repository.RemoteRepository {
	for _, r := range src {
		dup := false
		for _, have := range dst {
			if have.ID == r.ID {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, r)
		}
	}
	return dst
}

func (b *Bulk) fetch(ctx context.Context, sess *session.Session, local *repository.LocalManager, d *download) {
	sc := repository.NewSyncContext(false)
	defer sc.Close()
	if err := sc.Acquire(ctx, d.coord); err != nil {
		d.errs = append(d.errs, err)
		return
	}
	// Another batch may have downloaded the file while we waited.
	if a, ok := local.Find(d.coord); ok {
		d.artifact, d.repo = a, LocalRepositoryID
		return
	}

	repos := d.repos
	if len(repos) == 0 {
		repos = sess.Remotes()
	}
	notFound := 0
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			d.errs = append(d.errs, err)
			return
		}
		a, err := b.fetcher.Download(ctx, sess, repo, d.coord, local)
		if err == nil {
			d.artifact, d.repo = a, repo.ID
			d.errs = nil
			return
		}
		if errors.Is(err, cache.ErrNotFound) {
			notFound++
			continue
		}
		d.errs = append(d.errs, fmt.Errorf("%s: %w", repo.ID, err))
	}
	if notFound > 0 || len(repos) == 0 {
		d.errs = append(d.errs, errs.Wrap(errs.ErrCodeArtifactNotFound, ErrNotFound,
			"%s not found in %d repositories", d.coord, len(repos)))
	}
}

func (b *Bulk) finish(ctx context.Context, results []*ArtifactResult, start time.Time, cause error) ([]*ArtifactResult, error) {
	resolved := 0
	for _, r := range results {
		if r.Resolved() {
			resolved++
		}
	}
	var err error
	if resolved < len(results) {
		if cause == nil {
			cause = errs.New(errs.ErrCodeResolution, "%d artifacts could not be resolved", len(results)-resolved)
		}
		err = &ResolutionError{Cause: cause, Results: results}
	}
	observability.System().OnResolveComplete(ctx, len(results), resolved, time.Since(start), err)
	return results, err
}
