package maven

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
)

// localRepositoryID names POMs read from disk.
const localRepositoryID = "local"

// model is the effective model of a POM: inheritance, interpolation,
// imports and management applied.
type model struct {
	Coordinate   artifact.Coordinate
	Packaging    string
	Properties   map[string]string
	Dependencies []artifact.Dependency
	Managed      []artifact.Dependency
	Repositories []repository.RemoteRepository
	Relocation   *artifact.Coordinate

	// Repository is the ID of the repository that served the POM.
	Repository string

	// Problems are non-fatal issues such as dependencies with unresolved
	// properties, which are dropped.
	Problems []error
}

// builder computes effective models. Parents and imported BOMs are loaded
// through the client.
type builder struct {
	client *Client
	ctx    context.Context
	sess   *session.Session
	repos  []repository.RemoteRepository
}

func (c *Client) builder(ctx context.Context, sess *session.Session, repos []repository.RemoteRepository) *builder {
	return &builder{client: c, ctx: ctx, sess: sess, repos: repos}
}

// build computes the effective model of p. dir is the directory p was read
// from for on-disk projects and empty otherwise.
func (b *builder) build(p *pomProject, repoID, dir string, depth int) (*model, error) {
	coord := p.coordinate()
	if depth > b.client.opts.MaxParentDepth {
		return nil, errs.New(errs.ErrCodeInvalidInput, "parent chain of %s is deeper than %d", coord, b.client.opts.MaxParentDepth)
	}

	var parent *model
	if p.Parent != nil {
		pp, pid, pdir, err := b.parent(p.Parent, dir)
		if err != nil {
			return nil, wrapf(err, "parent of %s", coord)
		}
		if parent, err = b.build(pp, pid, pdir, depth+1); err != nil {
			return nil, err
		}
	}

	m := &model{
		Coordinate: coord,
		Packaging:  p.Packaging,
		Repository: repoID,
		Properties: make(map[string]string),
	}
	if m.Packaging == "" {
		m.Packaging = "jar"
	}
	if parent != nil {
		maps.Copy(m.Properties, parent.Properties)
		m.Problems = append(m.Problems, parent.Problems...)
	}
	maps.Copy(m.Properties, p.Properties)
	in := newInterpolator(m.Properties, builtins(m, p), b.sess.Properties())

	m.Managed = b.managed(m, p, parent, in, depth)

	index := managedIndex(m.Managed)
	seen := make(map[string]bool)
	add := func(d artifact.Dependency) {
		if seen[d.Artifact.Key()] {
			return
		}
		seen[d.Artifact.Key()] = true
		if md, ok := index[d.Artifact.Key()]; ok {
			if d.Artifact.Version == "" {
				d.Artifact.Version = md.Artifact.Version
			}
			if d.Scope == "" {
				d.Scope = md.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = md.Exclusions
			}
		}
		if d.Artifact.Version == "" {
			m.Problems = append(m.Problems, errs.New(errs.ErrCodeInvalidInput,
				"%s: dependency %s has no version", coord, d.Artifact.Module()))
			return
		}
		m.Dependencies = append(m.Dependencies, d)
	}
	for _, pd := range p.Dependencies {
		d, err := in.dependency(pd)
		if err != nil {
			m.Problems = append(m.Problems, wrapf(err, "%s", coord))
			continue
		}
		add(d)
	}
	if parent != nil {
		for _, d := range parent.Dependencies {
			add(d)
		}
	}

	for _, r := range p.Repositories {
		repo := repository.RemoteRepository{ID: in.expand(strings.TrimSpace(r.ID)), URL: in.expand(strings.TrimSpace(r.URL))}
		if err := repo.Validate(); err != nil {
			m.Problems = append(m.Problems, wrapf(err, "%s: repository", coord))
			continue
		}
		m.Repositories = append(m.Repositories, repo)
	}
	if parent != nil {
		m.Repositories = append(m.Repositories, parent.Repositories...)
	}

	if rel := p.DistributionManagement.Relocation; rel != nil {
		to := rel.target(coord, in)
		if to != coord {
			m.Relocation = &to
		}
	}
	return m, nil
}

// managed returns the dependency management of p: own entries first, then
// entries of imported BOMs, then the parent's. The first entry per key wins.
func (b *builder) managed(m *model, p *pomProject, parent *model, in interpolator, depth int) []artifact.Dependency {
	var own, imported []artifact.Dependency
	for _, pd := range p.DependencyManagement.Dependencies {
		d, err := in.dependency(pd)
		if err != nil {
			m.Problems = append(m.Problems, wrapf(err, "%s: managed", m.Coordinate))
			continue
		}
		if !isImport(d) {
			own = append(own, d)
			continue
		}
		bom, err := b.importBOM(d.Artifact, depth)
		if err != nil {
			m.Problems = append(m.Problems, err)
			continue
		}
		imported = append(imported, bom.Managed...)
		m.Problems = append(m.Problems, bom.Problems...)
	}

	out := append(own, imported...)
	if parent != nil {
		out = append(out, parent.Managed...)
	}
	return dedupe(out)
}

func (b *builder) importBOM(c artifact.Coordinate, depth int) (*model, error) {
	p, repoID, err := b.client.loadPOM(b.ctx, b.sess, b.repos, c)
	if err != nil {
		return nil, wrapf(err, "import %s", c)
	}
	return b.build(p, repoID, "", depth+1)
}

// parent loads the parent POM, preferring the relative path of on-disk
// projects when it holds the declared parent.
func (b *builder) parent(decl *pomParent, dir string) (*pomProject, string, string, error) {
	if dir != "" {
		rel := "../pom.xml"
		if decl.RelativePath != nil {
			rel = strings.TrimSpace(*decl.RelativePath)
		}
		if rel != "" {
			if p, pdir, ok := readRelative(filepath.Join(dir, filepath.FromSlash(rel)), decl); ok {
				return p, localRepositoryID, pdir, nil
			}
		}
	}
	p, repoID, err := b.client.loadPOM(b.ctx, b.sess, b.repos, decl.coordinate())
	return p, repoID, "", err
}

func readRelative(path string, decl *pomParent) (*pomProject, string, bool) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "pom.xml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", false
	}
	p, err := parsePOM(data)
	if err != nil {
		return nil, "", false
	}
	if c := p.coordinate(); c.GroupID != decl.GroupID || c.ArtifactID != decl.ArtifactID || c.Version != decl.Version {
		return nil, "", false
	}
	return p, filepath.Dir(path), true
}

// builtins are the project.* properties of m.
func builtins(m *model, p *pomProject) map[string]string {
	c := m.Coordinate
	props := map[string]string{
		"project.groupId":    c.GroupID,
		"project.artifactId": c.ArtifactID,
		"project.version":    c.Version,
		"project.packaging":  m.Packaging,
		"pom.groupId":        c.GroupID,
		"pom.artifactId":     c.ArtifactID,
		"pom.version":        c.Version,
		"groupId":            c.GroupID,
		"artifactId":         c.ArtifactID,
		"version":            c.Version,
	}
	if p.Name != "" {
		props["project.name"] = p.Name
	}
	if p.Parent != nil {
		props["project.parent.groupId"] = p.Parent.GroupID
		props["project.parent.artifactId"] = p.Parent.ArtifactID
		props["project.parent.version"] = p.Parent.Version
	}
	return props
}

func managedIndex(managed []artifact.Dependency) map[string]artifact.Dependency {
	idx := make(map[string]artifact.Dependency, len(managed))
	for _, d := range managed {
		if _, ok := idx[d.Artifact.Key()]; !ok {
			idx[d.Artifact.Key()] = d
		}
	}
	return idx
}

func dedupe(deps []artifact.Dependency) []artifact.Dependency {
	seen := make(map[string]bool, len(deps))
	out := deps[:0:0]
	for _, d := range deps {
		if !seen[d.Artifact.Key()] {
			seen[d.Artifact.Key()] = true
			out = append(out, d)
		}
	}
	return out
}
