package maven

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/depresolve/pkg/artifact"
	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
)

// fakeRepo serves files from memory in Maven layout.
type fakeRepo struct {
	mu    sync.Mutex
	files map[string]string
	hits  map[string]int
	repo  repository.RemoteRepository
}

func newFakeRepo(t *testing.T, id string) *fakeRepo {
	t.Helper()
	f := &fakeRepo{files: map[string]string{}, hits: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		path := strings.TrimPrefix(r.URL.Path, "/")
		f.hits[path]++
		body, ok := f.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	f.repo = repository.RemoteRepository{ID: id, URL: srv.URL}
	return f
}

func (f *fakeRepo) put(path, body string) {
	f.mu.Lock()
	f.files[path] = body
	f.mu.Unlock()
}

func (f *fakeRepo) pom(coord, body string) {
	f.put(artifact.MustParse(coord).WithExtension("pom").Path(), body)
}

func (f *fakeRepo) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newSession(t *testing.T, c cache.Cache, remotes ...repository.RemoteRepository) *session.Session {
	t.Helper()
	return session.New(session.Options{
		LocalRepository: repository.LocalRepository{Basedir: t.TempDir()},
		Remotes:         remotes,
		Cache:           c,
	})
}

const parentPOM = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <groupId>g</groupId>
  <artifactId>parent</artifactId>
  <version>1</version>
  <packaging>pom</packaging>
  <properties>
    <lib.version>2.0</lib.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency><groupId>g</groupId><artifactId>managed</artifactId><version>${lib.version}</version></dependency>
      <dependency><groupId>g</groupId><artifactId>bom</artifactId><version>1</version><type>pom</type><scope>import</scope></dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency><groupId>g</groupId><artifactId>inherited</artifactId><version>1</version></dependency>
  </dependencies>
</project>`

const bomPOM = `<project>
  <groupId>g</groupId><artifactId>bom</artifactId><version>1</version><packaging>pom</packaging>
  <dependencyManagement><dependencies>
    <dependency><groupId>g</groupId><artifactId>frombom</artifactId><version>3</version><scope>runtime</scope></dependency>
  </dependencies></dependencyManagement>
</project>`

const childPOM = `<project>
  <parent><groupId>g</groupId><artifactId>parent</artifactId><version>1</version></parent>
  <artifactId>child</artifactId>
  <properties><own.version>${project.version}</own.version></properties>
  <dependencies>
    <dependency><groupId>g</groupId><artifactId>managed</artifactId></dependency>
    <dependency><groupId>g</groupId><artifactId>direct</artifactId><version>${own.version}</version>
      <exclusions><exclusion><groupId>x</groupId><artifactId>*</artifactId></exclusion></exclusions>
    </dependency>
    <dependency><groupId>g</groupId><artifactId>frombom</artifactId></dependency>
    <dependency><groupId>g</groupId><artifactId>broken</artifactId><version>${missing}</version></dependency>
    <dependency><groupId>g</groupId><artifactId>tj</artifactId><version>1</version><type>test-jar</type><scope>test</scope></dependency>
    <dependency><groupId>g</groupId><artifactId>opt</artifactId><version>1</version><optional>true</optional></dependency>
  </dependencies>
</project>`

func TestReadArtifactDescriptor(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.pom("g:parent:1", parentPOM)
	repo.pom("g:bom:1", bomPOM)
	repo.pom("g:child:1", childPOM)

	c := NewClient(Options{})
	sess := newSession(t, nil, repo.repo)
	res, err := c.ReadArtifactDescriptor(context.Background(), sess, resolve.DescriptorRequest{Artifact: artifact.MustParse("g:child:1")})
	if err != nil {
		t.Fatalf("ReadArtifactDescriptor: %v", err)
	}

	var got []string
	for _, d := range res.Dependencies {
		got = append(got, fmt.Sprintf("%s/%s", d.Artifact, d.Scope))
	}
	want := []string{
		"g:managed:2.0/",
		"g:direct:1/",
		"g:frombom:3/runtime",
		"g:tj:jar:tests:1/test",
		"g:opt:1/",
		"g:inherited:1/",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("dependencies = %v, want %v", got, want)
	}
	if !res.Dependencies[4].Optional {
		t.Error("opt should be optional")
	}
	if ex := res.Dependencies[1].Exclusions; len(ex) != 1 || ex[0].GroupID != "x" || ex[0].ArtifactID != "*" {
		t.Errorf("exclusions = %v", ex)
	}
	if len(res.Exceptions) != 1 || !strings.Contains(res.Exceptions[0].Error(), "broken") {
		t.Errorf("Exceptions = %v", res.Exceptions)
	}
	if len(res.Managed) != 2 {
		t.Errorf("Managed = %v", res.Managed)
	}
	if res.Repository != "fake" || res.Properties["lib.version"] != "2.0" {
		t.Errorf("Repository = %q, Properties = %v", res.Repository, res.Properties)
	}
}

func TestReadArtifactDescriptorRelocation(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.pom("g:old:1", `<project><groupId>g</groupId><artifactId>old</artifactId><version>1</version>
  <distributionManagement><relocation><groupId>g2</groupId></relocation></distributionManagement></project>`)
	repo.pom("g2:old:1", `<project><groupId>g2</groupId><artifactId>old</artifactId><version>1</version>
  <dependencies><dependency><groupId>g</groupId><artifactId>x</artifactId><version>1</version></dependency></dependencies></project>`)

	res, err := NewClient(Options{}).ReadArtifactDescriptor(context.Background(), newSession(t, nil, repo.repo),
		resolve.DescriptorRequest{Artifact: artifact.MustParse("g:old:1")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Artifact.String() != "g2:old:1" || len(res.Relocations) != 1 {
		t.Errorf("Artifact = %s, Relocations = %v", res.Artifact, res.Relocations)
	}
	if len(res.Dependencies) != 1 || res.Dependencies[0].Artifact.ArtifactID != "x" {
		t.Errorf("Dependencies = %v", res.Dependencies)
	}
}

func TestReadArtifactDescriptorRepositories(t *testing.T) {
	empty := newFakeRepo(t, "empty")
	second := newFakeRepo(t, "second")
	second.pom("g:a:1", `<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version></project>`)
	c := NewClient(Options{})
	ctx := context.Background()

	t.Run("fallback", func(t *testing.T) {
		res, err := c.ReadArtifactDescriptor(ctx, newSession(t, nil, empty.repo, second.repo),
			resolve.DescriptorRequest{Artifact: artifact.MustParse("g:a:1")})
		if err != nil {
			t.Fatal(err)
		}
		if res.Repository != "second" {
			t.Errorf("Repository = %q", res.Repository)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.ReadArtifactDescriptor(ctx, newSession(t, nil, empty.repo),
			resolve.DescriptorRequest{Artifact: artifact.MustParse("g:a:1")})
		if !errs.Is(err, errs.ErrCodeArtifactNotFound) {
			t.Errorf("err = %v, want ARTIFACT_NOT_FOUND", err)
		}
	})

	t.Run("request repositories override session", func(t *testing.T) {
		res, err := c.ReadArtifactDescriptor(ctx, newSession(t, nil, empty.repo),
			resolve.DescriptorRequest{Artifact: artifact.MustParse("g:a:1"), Repositories: []repository.RemoteRepository{second.repo}})
		if err != nil || res.Repository != "second" {
			t.Errorf("res = %+v, err = %v", res, err)
		}
	})

	t.Run("file repository", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, filepath.FromSlash(artifact.MustParse("g:f:1").WithExtension("pom").Path()))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(`<project><groupId>g</groupId><artifactId>f</artifactId><version>1</version></project>`), 0o644); err != nil {
			t.Fatal(err)
		}
		files := repository.RemoteRepository{ID: "files", URL: "file://" + filepath.ToSlash(dir)}
		res, err := c.ReadArtifactDescriptor(ctx, newSession(t, nil, files), resolve.DescriptorRequest{Artifact: artifact.MustParse("g:f:1")})
		if err != nil || res.Repository != "files" {
			t.Errorf("res = %+v, err = %v", res, err)
		}
	})
}

func TestOfflineAndCache(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.pom("g:a:1", `<project><groupId>g</groupId><artifactId>a</artifactId><version>1</version></project>`)
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(Options{})
	ctx := context.Background()
	req := resolve.DescriptorRequest{Artifact: artifact.MustParse("g:a:1")}

	if _, err := c.ReadArtifactDescriptor(ctx, newSession(t, fc, repo.repo), req); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ReadArtifactDescriptor(ctx, newSession(t, fc, repo.repo), req); err != nil {
		t.Fatal(err)
	}
	if n := repo.count("g/a/1/a-1.pom"); n != 1 {
		t.Errorf("server hits = %d, want 1 (second read cached)", n)
	}

	offline := newSession(t, fc, repo.repo).WithOffline(true)
	if _, err := c.ReadArtifactDescriptor(ctx, offline, req); err != nil {
		t.Errorf("cached read offline: %v", err)
	}

	cold := newSession(t, nil, repo.repo).WithOffline(true)
	if _, err := c.ReadArtifactDescriptor(ctx, cold, req); !errs.Is(err, errs.ErrCodeOffline) {
		t.Errorf("err = %v, want OFFLINE", err)
	}
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestDownload(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.put("g/a/1/a-1.jar", "jar bytes")
	repo.put("g/a/1/a-1.jar.sha1", sha1Hex("jar bytes")+"  a-1.jar\n")
	repo.put("g/b/1/b-1.jar", "unsigned")
	repo.put("g/bad/1/bad-1.jar", "tampered")
	repo.put("g/bad/1/bad-1.jar.sha1", sha1Hex("original"))

	sess := newSession(t, nil, repo.repo)
	local, err := repository.NewLocalManager(sess.LocalRepository())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(Options{})
	ctx := context.Background()

	for _, coord := range []string{"g:a:1", "g:b:1"} {
		a, err := c.Download(ctx, sess, repo.repo, artifact.MustParse(coord), local)
		if err != nil {
			t.Fatalf("Download(%s): %v", coord, err)
		}
		if _, err := os.Stat(a.File); err != nil {
			t.Errorf("file missing: %v", err)
		}
		if a.Properties["repository"] != "fake" {
			t.Errorf("repository property = %q", a.Properties["repository"])
		}
	}

	if _, err := c.Download(ctx, sess, repo.repo, artifact.MustParse("g:bad:1"), local); !errs.Is(err, errs.ErrCodeResolution) {
		t.Errorf("err = %v, want checksum failure", err)
	}
	if _, ok := local.Find(artifact.MustParse("g:bad:1")); ok {
		t.Error("tampered artifact should not be stored")
	}
}

func TestDownloadThroughBulk(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.put("g/a/1/a-1.jar", "a")
	sess := newSession(t, nil, repo.repo)

	results, err := resolve.NewBulk(NewClient(Options{}), resolve.Options{}).ResolveArtifacts(context.Background(), sess,
		[]resolve.ArtifactRequest{resolve.NewArtifactRequest(artifact.MustParse("g:a:1")), resolve.NewArtifactRequest(artifact.MustParse("g:missing:1"))})
	if err == nil {
		t.Fatal("want error for missing artifact")
	}
	if !results[0].Resolved() || results[1].Resolved() {
		t.Errorf("resolved = %v, %v", results[0].Resolved(), results[1].Resolved())
	}
}

const metadataXMLBody = `<metadata>
  <groupId>g</groupId><artifactId>lib</artifactId>
  <versioning>
    <latest>3.1-SNAPSHOT</latest>
    <release>3.0</release>
    <versions><version>1.0</version><version>1.5</version><version>2.0</version><version>3.0</version><version>3.1-SNAPSHOT</version></versions>
    <lastUpdated>20240101000000</lastUpdated>
  </versioning>
</metadata>`

func TestMetadataAndVersions(t *testing.T) {
	repo := newFakeRepo(t, "fake")
	repo.put("g/lib/maven-metadata.xml", metadataXMLBody)
	other := newFakeRepo(t, "other")
	other.put("g/lib/maven-metadata.xml", `<metadata><versioning><versions><version>1.7</version></versions></versioning></metadata>`)

	c := NewClient(Options{})
	sess := newSession(t, nil, repo.repo, other.repo)
	ctx := context.Background()

	mds := c.ResolveMetadata(ctx, sess, []resolve.MetadataRequest{{GroupID: "g", ArtifactID: "lib"}, {GroupID: "g", ArtifactID: "none"}})
	if len(mds) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(mds))
	}
	if !mds[0].IsResolved() || mds[0].Release != "3.0" || len(mds[0].Versions) != 5 || mds[0].LastUpdated != "20240101000000" {
		t.Errorf("metadata = %+v", mds[0])
	}
	if mds[2].IsResolved() || mds[3].IsResolved() {
		t.Error("missing metadata should carry an exception")
	}

	tests := []struct {
		version string
		want    string
	}{
		{resolve.Latest, "3.1-SNAPSHOT"},
		{resolve.Release, "3.0"},
		{"1.0", "1.0"},
	}
	for _, tt := range tests {
		res, err := c.ResolveVersion(ctx, sess, resolve.VersionRequest{Artifact: artifact.MustParse("g:lib:" + tt.version)})
		if err != nil {
			t.Fatalf("ResolveVersion(%s): %v", tt.version, err)
		}
		if res.Version != tt.want {
			t.Errorf("ResolveVersion(%s) = %s, want %s", tt.version, res.Version, tt.want)
		}
	}

	rng, err := c.ResolveVersionRange(ctx, sess, resolve.VersionRangeRequest{Artifact: artifact.MustParse("g:lib:[1.0,2.0)")})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(rng.Versions, ","); got != "1.0,1.5,1.7" {
		t.Errorf("range versions = %s", got)
	}
	if rng.Repositories["1.7"] != "other" || rng.Repositories["1.5"] != "fake" {
		t.Errorf("origins = %v", rng.Repositories)
	}
	if h, _ := rng.Highest(); h != "1.7" {
		t.Errorf("Highest = %s", h)
	}

	soft, err := c.ResolveVersionRange(ctx, sess, resolve.VersionRangeRequest{Artifact: artifact.MustParse("g:lib:2.0")})
	if err != nil || len(soft.Versions) != 1 || soft.Versions[0] != "2.0" {
		t.Errorf("soft = %+v, err = %v", soft, err)
	}
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("pom.xml", `<project><groupId>g</groupId><artifactId>parent</artifactId><version>1</version><packaging>pom</packaging>
  <dependencyManagement><dependencies>
    <dependency><groupId>g</groupId><artifactId>a</artifactId><version>1.2</version></dependency>
  </dependencies></dependencyManagement></project>`)
	write("child/pom.xml", `<project>
  <parent><groupId>g</groupId><artifactId>parent</artifactId><version>1</version></parent>
  <artifactId>child</artifactId>
  <dependencies><dependency><groupId>g</groupId><artifactId>a</artifactId></dependency></dependencies>
</project>`)

	unused := newFakeRepo(t, "unused")
	req, err := NewClient(Options{}).LoadProject(context.Background(), newSession(t, nil, unused.repo), filepath.Join(dir, "child"))
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if req.RootArtifact == nil || req.RootArtifact.String() != "g:child:1" {
		t.Errorf("RootArtifact = %v", req.RootArtifact)
	}
	if len(req.Dependencies) != 1 || req.Dependencies[0].Artifact.String() != "g:a:1.2" {
		t.Errorf("Dependencies = %v", req.Dependencies)
	}
	if len(req.Managed) != 1 {
		t.Errorf("Managed = %v", req.Managed)
	}
	if n := unused.count("g/parent/1/parent-1.pom"); n != 0 {
		t.Errorf("parent fetched remotely %d times", n)
	}

	if _, err := NewClient(Options{}).LoadProject(context.Background(), newSession(t, nil), filepath.Join(dir, "missing")); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestInterpolator(t *testing.T) {
	in := newInterpolator(map[string]string{"a": "${b}", "b": "x", "loop": "${loop}"})
	tests := map[string]string{
		"${a}-${b}": "x-x",
		"plain":     "plain",
		"${none}":   "${none}",
		"${loop}":   "${loop}",
	}
	for input, want := range tests {
		if got := in.expand(input); got != want {
			t.Errorf("expand(%q) = %q, want %q", input, got, want)
		}
	}
}
