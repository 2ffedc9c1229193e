package maven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/observability"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "depresolve"

	// maxBody bounds any single response.
	maxBody = 512 << 20
)

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	UserAgent  string

	// MaxParentDepth bounds parent and BOM import chains.
	MaxParentDepth int

	// MaxRelocations bounds relocation chains.
	MaxRelocations int
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.MaxParentDepth <= 0 {
		o.MaxParentDepth = 16
	}
	if o.MaxRelocations <= 0 {
		o.MaxRelocations = 5
	}
	return o
}

// Client accesses Maven repositories. It is safe for concurrent use.
type Client struct {
	opts Options
}

// NewClient creates a client.
func NewClient(opts Options) *Client {
	return &Client{opts: opts.WithDefaults()}
}

// cached returns the body at path in repo, consulting the session cache
// under key first. A ttl of zero disables caching.
func (c *Client) cached(ctx context.Context, sess *session.Session, repo repository.RemoteRepository,
	path, key string, ttl time.Duration) ([]byte, error) {
	store := sess.Cache()
	hooks := observability.Cache()
	if ttl > 0 {
		if data, ok, err := store.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, key)
			return data, nil
		}
		hooks.OnCacheMiss(ctx, key)
	}

	data, err := c.get(ctx, sess, repo, path)
	if err != nil {
		return nil, err
	}
	if ttl > 0 {
		if err := store.Set(ctx, key, data, ttl); err != nil {
			sess.Logger().Debug("cache write failed", "key", key, "error", err)
		} else {
			hooks.OnCacheSet(ctx, key, len(data))
		}
	}
	return data, nil
}

// get fetches path relative to the repository root. Missing resources wrap
// cache.ErrNotFound; transport failures wrap cache.ErrNetwork.
func (c *Client) get(ctx context.Context, sess *session.Session, repo repository.RemoteRepository, path string) ([]byte, error) {
	u, err := url.Parse(repo.BaseURL())
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "repository %s", repo.ID)
	}
	if u.Scheme == "file" {
		return readFile(filepath.Join(u.Path, filepath.FromSlash(path)))
	}
	if sess.Offline() {
		return nil, errs.Wrap(errs.ErrCodeOffline, repository.ErrOffline, "cannot access %s", repo)
	}

	target := repo.BaseURL() + "/" + path
	var body []byte
	if err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		body, err = c.do(ctx, repo, target)
		return err
	}); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, repo repository.RemoteRepository, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if repo.Username != "" {
		req.SetBasicAuth(repo.Username, repo.Password)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, target); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, cache.Retryable(fmt.Errorf("%w: read %s: %v", cache.ErrNetwork, target, err))
	}
	return data, nil
}

func checkStatus(code int, target string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("%w: %s", cache.ErrNotFound, target)
	case code == http.StatusTooManyRequests || code >= 500:
		return cache.Retryable(fmt.Errorf("%w: %s: status %d", cache.ErrNetwork, target, code))
	default:
		return fmt.Errorf("%w: %s: status %d", cache.ErrNetwork, target, code)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, path)
	}
	return data, err
}

// repositories returns the request's repositories, or the session's remotes.
func repositories(sess *session.Session, repos []repository.RemoteRepository) []repository.RemoteRepository {
	if len(repos) > 0 {
		return repos
	}
	return sess.Remotes()
}

// notFound reports whether every error in failures is a not-found error.
func notFound(failures []error) bool {
	for _, err := range failures {
		if !errors.Is(err, cache.ErrNotFound) {
			return false
		}
	}
	return true
}

// lookupError turns per-repository failures into a single coded error.
func lookupError(failures []error, format string, args ...any) error {
	cause := errors.Join(failures...)
	switch {
	case len(failures) == 0:
		return errs.New(errs.ErrCodeArtifactNotFound, format+": no repositories", args...)
	case notFound(failures):
		return errs.Wrap(errs.ErrCodeArtifactNotFound, cause, format, args...)
	default:
		for _, err := range failures {
			if errs.Is(err, errs.ErrCodeOffline) {
				return errs.Wrap(errs.ErrCodeOffline, cause, format, args...)
			}
		}
		return errs.Wrap(errs.ErrCodeNetwork, cause, format, args...)
	}
}

// wrapf adds context to err while keeping its code.
func wrapf(err error, format string, args ...any) error {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	return errs.Wrap(code, err, format, args...)
}
