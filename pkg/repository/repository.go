// Package repository manages artifact repositories: the local repository on
// disk (Maven layout), remote repositories, installation, deployment and
// process-wide synchronization of artifact access.
package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/depresolve/pkg/errors"
)

// CentralURL is the Maven Central repository.
const CentralURL = "https://repo.maven.apache.org/maven2"

// ErrOffline is returned when a remote operation is attempted in an offline
// session.
var ErrOffline = errors.New("offline")

// LocalRepository is a directory holding artifacts in Maven layout.
type LocalRepository struct {
	Basedir string `json:"basedir" toml:"basedir"`
}

// DefaultLocalRepository returns ~/.m2/repository.
func DefaultLocalRepository() (LocalRepository, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return LocalRepository{}, err
	}
	return LocalRepository{Basedir: filepath.Join(home, ".m2", "repository")}, nil
}

// RemoteRepository is an HTTP(S) or file repository.
type RemoteRepository struct {
	ID       string `json:"id" toml:"id" yaml:"id"`
	URL      string `json:"url" toml:"url" yaml:"url"`
	Username string `json:"-" toml:"username" yaml:"-"`
	Password string `json:"-" toml:"password" yaml:"-"`
}

// Central returns the Maven Central repository.
func Central() RemoteRepository {
	return RemoteRepository{ID: "central", URL: CentralURL}
}

// Validate checks the repository URL and ID.
func (r RemoteRepository) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errs.New(errs.ErrCodeInvalidInput, "repository %s has no id", r.URL)
	}
	return errs.ValidateURL(r.URL)
}

// BaseURL returns the URL without a trailing slash.
func (r RemoteRepository) BaseURL() string {
	return strings.TrimRight(r.URL, "/")
}

func (r RemoteRepository) String() string {
	return r.ID + " (" + r.URL + ")"
}
