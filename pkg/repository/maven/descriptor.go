package maven

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
)

// ReadArtifactDescriptor implements resolve.DescriptorReader. Problems that
// do not prevent building the model (a dependency with an unresolved
// property, an unreachable BOM) are reported in the result's Exceptions.
func (c *Client) ReadArtifactDescriptor(ctx context.Context, sess *session.Session, req resolve.DescriptorRequest) (*resolve.DescriptorResult, error) {
	if err := req.Artifact.Validate(); err != nil {
		return nil, err
	}
	repos := repositories(sess, req.Repositories)
	b := c.builder(ctx, sess, repos)
	res := &resolve.DescriptorResult{Request: req}

	cur := req.Artifact
	for {
		p, repoID, err := c.loadPOM(ctx, sess, repos, cur)
		if err != nil {
			return nil, err
		}
		m, err := b.build(p, repoID, "", 0)
		if err != nil {
			return nil, err
		}
		if m.Relocation == nil {
			res.Artifact = cur
			res.Dependencies = m.Dependencies
			res.Managed = m.Managed
			res.Repositories = m.Repositories
			res.Properties = m.Properties
			res.Repository = m.Repository
			res.Exceptions = m.Problems
			return res, nil
		}
		if len(res.Relocations) >= c.opts.MaxRelocations {
			return nil, errs.New(errs.ErrCodeInvalidInput, "%s: more than %d relocations", req.Artifact, c.opts.MaxRelocations)
		}
		cur.GroupID, cur.ArtifactID, cur.Version = m.Relocation.GroupID, m.Relocation.ArtifactID, m.Relocation.Version
		res.Relocations = append(res.Relocations, cur)
		sess.Logger().Debug("relocated", "from", req.Artifact, "to", cur)
	}
}

// loadPOM reads the POM of c from the local repository or the first remote
// repository serving it.
func (c *Client) loadPOM(ctx context.Context, sess *session.Session, repos []repository.RemoteRepository,
	coord artifact.Coordinate) (*pomProject, string, error) {
	coord = coord.WithExtension("pom")
	if err := coord.Validate(); err != nil {
		return nil, "", err
	}

	if local, err := repository.NewLocalManager(sess.LocalRepository()); err == nil {
		if a, ok := local.Find(coord); ok {
			if data, err := os.ReadFile(a.File); err == nil {
				p, err := parsePOM(data)
				if err != nil {
					return nil, "", wrapf(err, "%s", a.File)
				}
				return p, localRepositoryID, nil
			}
		}
	}

	ttl := cache.DescriptorTTL
	if coord.IsSnapshot() {
		ttl = cache.SnapshotTTL
	}
	var failures []error
	for _, repo := range repos {
		key := sess.Keyer().DescriptorKey(repo.BaseURL(), coord)
		data, err := c.cached(ctx, sess, repo, coord.Path(), key, ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			failures = append(failures, err)
			continue
		}
		p, err := parsePOM(data)
		if err != nil {
			_ = sess.Cache().Delete(ctx, key)
			return nil, "", wrapf(err, "%s from %s", coord, repo.ID)
		}
		return p, repo.ID, nil
	}
	return nil, "", lookupError(failures, "pom %s", coord)
}

// LoadProject reads the pom.xml at path (a file or a directory holding one)
// and returns a request collecting its dependencies. Parents are looked up
// next to the project first, then in the repositories.
func (c *Client) LoadProject(ctx context.Context, sess *session.Session, path string) (*collect.Request, error) {
	if err := errs.ValidateDir(path); err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "pom.xml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
	}
	p, err := parsePOM(data)
	if err != nil {
		return nil, wrapf(err, "%s", path)
	}

	m, err := c.builder(ctx, sess, sess.Remotes()).build(p, localRepositoryID, filepath.Dir(path), 0)
	if err != nil {
		return nil, err
	}
	for _, problem := range m.Problems {
		sess.Logger().Warn("project model", "path", path, "problem", problem)
	}

	root := m.Coordinate
	root.Extension = ""
	if m.Packaging != "jar" {
		root.Extension = m.Packaging
	}
	if err := root.Validate(); err != nil {
		return nil, wrapf(err, "%s", path)
	}
	return &collect.Request{
		RootArtifact: &root,
		Dependencies: m.Dependencies,
		Managed:      m.Managed,
		Repositories: append(sess.Remotes(), m.Repositories...),
		Context:      "project",
	}, nil
}
