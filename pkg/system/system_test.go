package system

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/repository/maven"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
)

func pom(artifactID string, deps ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<project><groupId>g</groupId><artifactId>%s</artifactId><version>1</version><dependencies>", artifactID)
	for _, d := range deps {
		fmt.Fprintf(&b, "<dependency><groupId>g</groupId><artifactId>%s</artifactId><version>1</version></dependency>", d)
	}
	b.WriteString("</dependencies></project>")
	return b.String()
}

// serveRepo serves files from a map keyed by repository path.
func serveRepo(t *testing.T, files map[string]string) repository.RemoteRepository {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return repository.RemoteRepository{ID: "test", URL: srv.URL}
}

func TestMavenResolveDependencies(t *testing.T) {
	repo := serveRepo(t, map[string]string{
		"g/app/1/app-1.pom":   pom("app", "lib", "util"),
		"g/app/1/app-1.jar":   "app",
		"g/lib/1/lib-1.pom":   pom("lib", "util", "gone"),
		"g/lib/1/lib-1.jar":   "lib",
		"g/util/1/util-1.pom": pom("util"),
		"g/util/1/util-1.jar": "util",
		"g/gone/1/gone-1.pom": pom("gone"),
	})
	local := t.TempDir()
	sess := session.New(session.Options{
		LocalRepository: repository.LocalRepository{Basedir: local},
		Remotes:         []repository.RemoteRepository{repo},
	})
	sys := NewTracking(NewMaven(maven.NewClient(maven.Options{}), collect.Options{}, resolve.Options{}))

	root := artifact.NewDependency(artifact.MustParse("g:app:1"))
	res, err := sys.ResolveDependencies(context.Background(), sess, DependencyRequest{
		CollectRequest: &collect.Request{Root: &root},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.CollectErr != nil {
		t.Fatalf("CollectErr = %v", res.CollectErr)
	}
	if got := requested(reqsOf(res)); got != "app,lib,gone,util" {
		t.Errorf("requests = %s", got)
	}
	if !errs.Is(res.ResolveErr, errs.ErrCodeResolution) {
		t.Errorf("ResolveErr = %v, want RESOLUTION_FAILED", res.ResolveErr)
	}
	if got := names(res.Tree.Unresolved()); got != "gone" {
		t.Errorf("unresolved = %s", got)
	}
	for _, a := range res.Artifacts() {
		if !strings.HasPrefix(a.File, local) {
			t.Errorf("%s stored at %s, want below %s", a.Coordinate, a.File, local)
		}
		if data, err := os.ReadFile(a.File); err != nil || string(data) != a.Coordinate.ArtifactID {
			t.Errorf("%s: content %q, %v", a.Coordinate, data, err)
		}
	}
	if last, ok := sys.LastCollectResult(); !ok || last.Tree.Len() != res.Tree.Len() {
		t.Error("collection should be tracked")
	}
}

func reqsOf(res *DependencyResult) []resolve.ArtifactRequest {
	out := make([]resolve.ArtifactRequest, len(res.ArtifactResults))
	for i, r := range res.ArtifactResults {
		out[i] = r.Request
	}
	return out
}

func TestSystemUnsupported(t *testing.T) {
	ctx, sess := context.Background(), newSession()
	s := New(Options{})

	if _, err := s.CollectDependencies(ctx, sess, collect.Request{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("CollectDependencies err = %v", err)
	}
	if _, err := s.ResolveArtifact(ctx, sess, resolve.NewArtifactRequest(dep("a").Artifact)); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ResolveArtifact err = %v", err)
	}
	if _, err := s.ReadArtifactDescriptor(ctx, sess, resolve.DescriptorRequest{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ReadArtifactDescriptor err = %v", err)
	}
	if _, err := s.ResolveVersion(ctx, sess, resolve.VersionRequest{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ResolveVersion err = %v", err)
	}
	if _, err := s.ResolveVersionRange(ctx, sess, resolve.VersionRangeRequest{}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("ResolveVersionRange err = %v", err)
	}
	md := s.ResolveMetadata(ctx, sess, []resolve.MetadataRequest{{GroupID: "g"}, {GroupID: "h"}})
	if len(md) != 2 || md[1].IsResolved() || md[1].Request.GroupID != "h" {
		t.Errorf("ResolveMetadata = %v", md)
	}

	// Stage failures surface on the result, not as an error.
	res, err := s.ResolveDependencies(ctx, sess, DependencyRequest{CollectRequest: collectRequest()})
	if err != nil {
		t.Fatal(err)
	}
	if !errs.Is(res.CollectErr, errs.ErrCodeUnsupported) || res.Tree != nil {
		t.Errorf("CollectErr = %v", res.CollectErr)
	}
}

func TestSystemResolveArtifact(t *testing.T) {
	ctx, sess := context.Background(), newSession()
	s := New(Options{Resolver: newResolver("b")})

	ok, err := s.ResolveArtifact(ctx, sess, resolve.NewArtifactRequest(dep("a").Artifact))
	if err != nil || !ok.Resolved() {
		t.Errorf("ResolveArtifact(a) = %v, %v", ok, err)
	}
	failed, err := s.ResolveArtifact(ctx, sess, resolve.NewArtifactRequest(dep("b").Artifact))
	if err == nil || failed == nil || failed.Resolved() || len(failed.Exceptions) != 1 {
		t.Errorf("ResolveArtifact(b) = %v, %v; want the failed result and an error", failed, err)
	}
}

func TestSystemInstall(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jar")
	if err := os.WriteFile(src, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(dir, "repo")
	sess := session.New(session.Options{LocalRepository: repository.LocalRepository{Basedir: local}})

	a := artifact.New(artifact.MustParse("g:a:1")).WithFile(src)
	res, err := New(Options{}).Install(context.Background(), sess, repository.InstallRequest{Artifacts: []*artifact.Artifact{a}})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(local, "g", "a", "1", "a-1.jar")
	if len(res.Artifacts) != 1 || res.Artifacts[0].File != want {
		t.Fatalf("installed = %v, want %s", res.Artifacts, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Error(err)
	}
}

func TestSystemDeployOffline(t *testing.T) {
	sess := session.New(session.Options{Offline: true})
	_, err := New(Options{}).Deploy(context.Background(), sess, repository.DeployRequest{Repository: repository.Central()})
	if !errs.Is(err, errs.ErrCodeOffline) {
		t.Errorf("err = %v, want OFFLINE", err)
	}
}

func TestSystemRepositories(t *testing.T) {
	ctx, sess := context.Background(), newSession()
	s := New(Options{})

	repos := s.NewResolutionRepositories(ctx, sess, []repository.RemoteRepository{
		{ID: "a", URL: "https://a.example/maven2/"},
		{ID: "", URL: "https://nameless.example"},
		{ID: "b", URL: "not a url"},
		{ID: "a", URL: "https://duplicate.example"},
		{ID: "c", URL: "https://c.example"},
	})
	var got []string
	for _, r := range repos {
		got = append(got, r.ID+"="+r.URL)
	}
	if strings.Join(got, " ") != "a=https://a.example/maven2 c=https://c.example" {
		t.Errorf("repositories = %v", got)
	}

	if _, err := s.NewDeploymentRepository(ctx, sess, repository.RemoteRepository{URL: "https://x"}); err == nil {
		t.Error("repository without id accepted")
	}
	r, err := s.NewDeploymentRepository(ctx, sess, repository.RemoteRepository{ID: "x", URL: "https://x.example/"})
	if err != nil || r.URL != "https://x.example" {
		t.Errorf("NewDeploymentRepository = %v, %v", r, err)
	}
	if sc := s.NewSyncContext(ctx, sess, true); sc == nil || !sc.Shared() {
		t.Error("NewSyncContext should honor shared")
	}
}
