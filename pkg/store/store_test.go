package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/report"
	"github.com/matzehuels/depresolve/pkg/session"
)

func newReport(id string, created time.Time) *report.Report {
	return &report.Report{
		ID:         id,
		Root:       "g:" + id + ":1",
		CreatedAt:  created,
		Summary:    report.Summary{Components: 1, Resolved: 1},
		Components: []report.Component{{Ref: "g:" + id + ":1"}},
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		if err := s.Save(ctx, newReport(id, base.Add(offset))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := s.Get(ctx, "mid")
	if err != nil {
		t.Fatal(err)
	}
	if got.Root != "g:mid:1" || len(got.Components) != 1 {
		t.Errorf("Get = %+v", got)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Errorf("List = %v, want newest first", ids)
	}
	if entries, _ := s.List(ctx, 1); len(entries) != 1 {
		t.Errorf("List(1) returned %d entries", len(entries))
	}

	// Saving again replaces the report.
	r := newReport("mid", base)
	r.Root = "replaced"
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, "mid"); got.Root != "replaced" {
		t.Errorf("Root = %q after replace", got.Root)
	}
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "missing"); !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Get(missing) = %v, want NOT_FOUND", err)
	}
	for _, id := range []string{"", "../x", "a/b"} {
		if _, err := s.Get(ctx, id); !errs.Is(err, errs.ErrCodeInvalidInput) {
			t.Errorf("Get(%q) = %v, want INVALID_INPUT", id, err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := s.List(ctx, 10)
	if err != nil || len(entries) != 0 {
		t.Errorf("List = %v, %v; corrupt files should be skipped", entries, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), session.StoreConfig{Backend: session.BackendFile, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := s.(*FileStore); !ok || fs.Dir() != dir {
		t.Errorf("Open = %T", s)
	}
	if _, err := Open(context.Background(), session.StoreConfig{Backend: "s3"}); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("unknown backend err = %v", err)
	}
}

func TestMongoListOptions(t *testing.T) {
	opts := listOptions(0)
	if opts.Limit == nil || *opts.Limit != DefaultListLimit {
		t.Errorf("Limit = %v", opts.Limit)
	}
	sort, ok := opts.Sort.(bson.D)
	if !ok || len(sort) != 2 || sort[0].Key != "created_at" || sort[0].Value != -1 {
		t.Errorf("Sort = %v", opts.Sort)
	}
	if opts := listOptions(5); *opts.Limit != 5 {
		t.Errorf("Limit = %d", *opts.Limit)
	}
	if d := byID("x"); len(d) != 1 || d[0].Key != "_id" || d[0].Value != "x" {
		t.Errorf("byID = %v", d)
	}
}

func TestMongoDocumentMapping(t *testing.T) {
	r := newReport("abc", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	raw, err := bson.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var e Entry
	if err := bson.Unmarshal(raw, &e); err != nil {
		t.Fatal(err)
	}
	if e.ID != "abc" || e.Root != r.Root || !e.CreatedAt.Equal(r.CreatedAt) || e.Summary != r.Summary {
		t.Errorf("Entry = %+v", e)
	}
}
