package repository

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depresolve/pkg/artifact"
	errs "github.com/matzehuels/depresolve/pkg/errors"
)

// LocalManager reads and writes artifacts in a local repository.
// It is safe for concurrent use; concurrent writers of the same artifact
// should hold a SyncContext.
type LocalManager struct {
	repo LocalRepository
}

// NewLocalManager validates the repository directory and creates it if
// needed.
func NewLocalManager(repo LocalRepository) (*LocalManager, error) {
	if err := errs.ValidateDir(repo.Basedir); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repo.Basedir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "local repository %s", repo.Basedir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "create local repository %s", abs)
	}
	return &LocalManager{repo: LocalRepository{Basedir: abs}}, nil
}

// Repository returns the managed repository.
func (m *LocalManager) Repository() LocalRepository { return m.repo }

// PathOf returns the absolute path of c inside the repository.
func (m *LocalManager) PathOf(c artifact.Coordinate) string {
	return filepath.Join(m.repo.Basedir, filepath.FromSlash(c.Path()))
}

// MetadataPath returns the path of the cached maven-metadata.xml for
// groupID:artifactID downloaded from repoID.
func (m *LocalManager) MetadataPath(groupID, artifactID, repoID string) string {
	return filepath.Join(m.repo.Basedir, filepath.FromSlash(strings.ReplaceAll(groupID, ".", "/")),
		artifactID, "maven-metadata-"+repoID+".xml")
}

// Find returns the artifact bound to its local file, if present.
func (m *LocalManager) Find(c artifact.Coordinate) (*artifact.Artifact, bool) {
	path := m.PathOf(c)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return artifact.New(c).WithFile(path), true
}

// Add writes r into the repository at the location of c. The file is written
// to a temporary name and renamed into place so readers never see a partial
// artifact.
func (m *LocalManager) Add(c artifact.Coordinate, r io.Reader) (*artifact.Artifact, error) {
	path := m.PathOf(c)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.part")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	return artifact.New(c).WithFile(path), nil
}

// AddFile copies the file at src into the repository at the location of c.
func (m *LocalManager) AddFile(c artifact.Coordinate, src string) (*artifact.Artifact, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return m.Add(c, f)
}
