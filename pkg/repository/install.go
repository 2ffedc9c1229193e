package repository

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/observability"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// InstallRequest asks to copy artifacts into the local repository.
// Every artifact must be bound to a file.
type InstallRequest struct {
	Artifacts []*artifact.Artifact
	Trace     *trace.RequestTrace
}

// InstallResult lists the installed artifacts bound to their new location.
type InstallResult struct {
	Request   InstallRequest
	Artifacts []*artifact.Artifact
}

// Install copies the request's artifacts into the repository managed by m.
// Artifacts are locked exclusively for the duration of the copy.
func Install(ctx context.Context, m *LocalManager, req InstallRequest) (*InstallResult, error) {
	sc := NewSyncContext(false)
	defer sc.Close()
	if err := sc.Acquire(ctx, coordinates(req.Artifacts)...); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInstall, err, "lock artifacts")
	}

	res := &InstallResult{Request: req}
	for _, a := range req.Artifacts {
		if a.File == "" {
			return res, errs.New(errs.ErrCodeInstall, "artifact %s has no file", a.Coordinate)
		}
		if filepath.Clean(a.File) == m.PathOf(a.Coordinate) {
			res.Artifacts = append(res.Artifacts, a)
			continue
		}
		installed, err := m.AddFile(a.Coordinate, a.File)
		if err != nil {
			return res, errs.Wrap(errs.ErrCodeInstall, err, "install %s", a.Coordinate)
		}
		res.Artifacts = append(res.Artifacts, installed)
	}
	return res, nil
}

func coordinates(as []*artifact.Artifact) []artifact.Coordinate {
	out := make([]artifact.Coordinate, len(as))
	for i, a := range as {
		out[i] = a.Coordinate
	}
	return out
}

// DeployRequest asks to upload artifacts to a remote repository.
type DeployRequest struct {
	Repository RemoteRepository
	Artifacts  []*artifact.Artifact
	Trace      *trace.RequestTrace
}

// DeployResult lists the uploaded artifacts.
type DeployResult struct {
	Request   DeployRequest
	Artifacts []*artifact.Artifact
}

// Deployer uploads artifacts with HTTP PUT, or copies them for file://
// repositories. Each artifact is followed by a .sha1 checksum.
type Deployer struct {
	client *http.Client
}

// NewDeployer creates a deployer. A nil client uses a client with a
// 60 second timeout.
func NewDeployer(client *http.Client) *Deployer {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Deployer{client: client}
}

// Deploy uploads every artifact of req. It stops at the first failure and
// returns the artifacts deployed so far together with the error.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	if err := req.Repository.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(req.Repository.BaseURL())
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "repository url")
	}

	res := &DeployResult{Request: req}
	for _, a := range req.Artifacts {
		if a.File == "" {
			return res, errs.New(errs.ErrCodeDeploy, "artifact %s has no file", a.Coordinate)
		}
		data, err := os.ReadFile(a.File)
		if err != nil {
			return res, errs.Wrap(errs.ErrCodeDeploy, err, "read %s", a.File)
		}
		path := a.Coordinate.Path()
		sum := []byte(checksumSHA1(data))

		if u.Scheme == "file" {
			err = d.copyTo(u.Path, path, data, sum)
		} else {
			err = d.put(ctx, req.Repository, path, data)
			if err == nil {
				err = d.put(ctx, req.Repository, path+".sha1", sum)
			}
		}
		if err != nil {
			return res, errs.Wrap(errs.ErrCodeDeploy, err, "deploy %s to %s", a.Coordinate, req.Repository.ID)
		}
		res.Artifacts = append(res.Artifacts, a)
	}
	return res, nil
}

func (d *Deployer) copyTo(basedir, path string, data, sum []byte) error {
	dst := filepath.Join(basedir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(dst+".sha1", sum, 0o644)
}

func (d *Deployer) put(ctx context.Context, repo RemoteRepository, path string, body []byte) error {
	target := repo.BaseURL() + "/" + path
	return cache.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if repo.Username != "" {
			req.SetBasicAuth(repo.Username, repo.Password)
		}

		hooks := observability.HTTP()
		hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
		start := time.Now()
		resp, err := d.client.Do(req)
		if err != nil {
			hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
			return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
		}
		resp.Body.Close()
		hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, resp.StatusCode))
		default:
			return fmt.Errorf("%w: status %d", cache.ErrNetwork, resp.StatusCode)
		}
	})
}
