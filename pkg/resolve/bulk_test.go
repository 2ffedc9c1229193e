package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
)

// fakeFetcher serves artifacts whose artifactId is listed in available.
type fakeFetcher struct {
	mu        sync.Mutex
	available map[string]bool
	fail      map[string]error
	calls     map[string]int
}

func newFakeFetcher(available ...string) *fakeFetcher {
	f := &fakeFetcher{available: map[string]bool{}, fail: map[string]error{}, calls: map[string]int{}}
	for _, a := range available {
		f.available[a] = true
	}
	return f
}

func (f *fakeFetcher) Download(_ context.Context, _ *session.Session, repo repository.RemoteRepository,
	c artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error) {
	f.mu.Lock()
	f.calls[c.String()]++
	f.mu.Unlock()
	if err := f.fail[c.ArtifactID]; err != nil {
		return nil, err
	}
	if !f.available[c.ArtifactID] {
		return nil, fmt.Errorf("%w: %s in %s", cache.ErrNotFound, c, repo.ID)
	}
	return local.Add(c, strings.NewReader(c.String()))
}

func newSession(t *testing.T, offline bool) *session.Session {
	t.Helper()
	return session.New(session.Options{
		LocalRepository: repository.LocalRepository{Basedir: t.TempDir()},
		Offline:         offline,
	})
}

func requests(coords ...string) []ArtifactRequest {
	reqs := make([]ArtifactRequest, len(coords))
	for i, c := range coords {
		reqs[i] = NewArtifactRequest(artifact.MustParse(c))
	}
	return reqs
}

func TestBulkAllResolved(t *testing.T) {
	f := newFakeFetcher("a", "b", "c")
	results, err := NewBulk(f, Options{Concurrency: 2}).ResolveArtifacts(context.Background(), newSession(t, false),
		requests("g:a:1", "g:b:1", "g:c:1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, id := range []string{"a", "b", "c"} {
		r := results[i]
		if !r.Resolved() || r.Artifact.ArtifactID != id || r.Repository != "central" {
			t.Errorf("results[%d] = %+v", i, r)
		}
		if r.Request.Artifact.ArtifactID != id {
			t.Errorf("results[%d] is out of request order", i)
		}
	}
}

func TestBulkPartialFailure(t *testing.T) {
	f := newFakeFetcher("a", "c")
	results, err := NewBulk(f, Options{}).ResolveArtifacts(context.Background(), newSession(t, false),
		requests("g:a:1", "g:missing:1", "g:c:1"))

	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *ResolutionError", err)
	}
	if len(rerr.Results) != 3 || rerr.Results[0] != results[0] {
		t.Error("ResolutionError must carry the full result list")
	}
	if failed := rerr.Failed(); len(failed) != 1 || failed[0].Request.Artifact.ArtifactID != "missing" {
		t.Errorf("Failed() = %v", failed)
	}
	if !results[0].Resolved() || results[1].Resolved() || !results[2].Resolved() {
		t.Error("successful siblings must stay resolved")
	}
	if !errs.Is(results[1].Err(), errs.ErrCodeArtifactNotFound) || !errors.Is(results[1].Err(), ErrNotFound) {
		t.Errorf("missing artifact error = %v", results[1].Err())
	}
	if !errs.Is(err, errs.ErrCodeResolution) {
		t.Errorf("aggregate error code = %s", errs.GetCode(err))
	}
}

func TestBulkDeduplicates(t *testing.T) {
	f := newFakeFetcher("a")
	results, err := NewBulk(f, Options{}).ResolveArtifacts(context.Background(), newSession(t, false),
		requests("g:a:1", "g:a:1", "g:a:1"))
	if err != nil {
		t.Fatal(err)
	}
	if f.calls["g:a:1"] != 1 {
		t.Errorf("downloads = %d, want 1", f.calls["g:a:1"])
	}
	for i, r := range results {
		if !r.Resolved() {
			t.Errorf("results[%d] unresolved", i)
		}
	}
	if results[0].Artifact == results[1].Artifact {
		t.Error("results must not share artifact pointers")
	}
}

func TestBulkLocalFirst(t *testing.T) {
	sess := newSession(t, true)
	local, err := repository.NewLocalManager(sess.LocalRepository())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := local.Add(artifact.MustParse("g:a:1"), strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	f := newFakeFetcher("a", "b")
	results, err := NewBulk(f, Options{}).ResolveArtifacts(context.Background(), sess, requests("g:a:1", "g:b:1"))
	if err == nil {
		t.Fatal("offline session must not download g:b:1")
	}
	if !results[0].Resolved() || results[0].Repository != LocalRepositoryID {
		t.Errorf("local artifact = %+v", results[0])
	}
	if !errs.Is(results[1].Err(), errs.ErrCodeOffline) {
		t.Errorf("offline error = %v", results[1].Err())
	}
	if len(f.calls) != 0 {
		t.Errorf("offline session fetched: %v", f.calls)
	}
}

func TestBulkRepositoryFallback(t *testing.T) {
	f := newFakeFetcher("a")
	sess := newSession(t, false)

	calls := map[string]int{}
	var mu sync.Mutex
	fetcher := fetcherFunc(func(ctx context.Context, s *session.Session, repo repository.RemoteRepository,
		c artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error) {
		mu.Lock()
		calls[repo.ID]++
		mu.Unlock()
		if repo.ID == "first" {
			return nil, fmt.Errorf("%w: 500", cache.ErrNetwork)
		}
		return f.Download(ctx, s, repo, c, local)
	})

	req := NewArtifactRequest(artifact.MustParse("g:a:1"))
	req.Repositories = []repository.RemoteRepository{{ID: "first", URL: "https://first"}, {ID: "second", URL: "https://second"}}
	results, err := NewBulk(fetcher, Options{}).ResolveArtifacts(context.Background(), sess, []ArtifactRequest{req})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Repository != "second" || calls["first"] != 1 || calls["second"] != 1 {
		t.Errorf("repository = %s, calls = %v", results[0].Repository, calls)
	}
}

func TestBulkInvalidAndEmpty(t *testing.T) {
	b := NewBulk(nil, Options{})
	results, err := b.ResolveArtifacts(context.Background(), newSession(t, false), nil)
	if err != nil || len(results) != 0 {
		t.Errorf("empty batch = %v, %v", results, err)
	}

	bad := ArtifactRequest{Artifact: artifact.Coordinate{GroupID: "g"}}
	results, err = b.ResolveArtifacts(context.Background(), newSession(t, false), []ArtifactRequest{bad})
	if err == nil || !errs.Is(results[0].Err(), errs.ErrCodeInvalidCoordinate) {
		t.Errorf("invalid coordinate = %v / %v", err, results[0].Err())
	}
}

func TestBulkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewBulk(newFakeFetcher("a"), Options{}).ResolveArtifacts(ctx, newSession(t, false), requests("g:a:1"))
	if err == nil || results[0].Resolved() {
		t.Fatal("canceled context must not resolve remote artifacts")
	}
	if !errors.Is(results[0].Err(), context.Canceled) {
		t.Errorf("err = %v", results[0].Err())
	}
}

type fetcherFunc func(ctx context.Context, sess *session.Session, repo repository.RemoteRepository,
	c artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error)

func (f fetcherFunc) Download(ctx context.Context, sess *session.Session, repo repository.RemoteRepository,
	c artifact.Coordinate, local *repository.LocalManager) (*artifact.Artifact, error) {
	return f(ctx, sess, repo, c, local)
}
