package store

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/report"
)

// FileStore keeps each report as <dir>/<id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "create report directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid report id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save implements Store. The report is written to a temporary file first
// and renamed into place.
func (s *FileStore) Save(ctx context.Context, r *report.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(r.ID)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".report-*")
	if err != nil {
		return err
	}
	if err := report.WriteJSON(r, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, id string) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadJSON(f)
}

// List implements Store. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.Get(ctx, strings.TrimSuffix(filepath.Base(file), ".json"))
		if err != nil {
			continue
		}
		entries = append(entries, entryOf(r))
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close implements Store.
func (s *FileStore) Close(context.Context) error { return nil }
