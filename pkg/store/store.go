// Package store persists dependency reports.
//
// Two backends exist: [FileStore] keeps one JSON document per report in a
// directory, [MongoStore] keeps them in a MongoDB collection. [Open] picks
// one from the session configuration.
package store

import (
	"context"
	"path/filepath"
	"time"

	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/report"
	"github.com/matzehuels/depresolve/pkg/session"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Store saves and retrieves reports by ID.
type Store interface {
	// Save stores r, replacing any report with the same ID.
	Save(ctx context.Context, r *report.Report) error

	// Get returns the report with the given ID or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*report.Report, error)

	// List returns the most recent reports first.
	List(ctx context.Context, limit int) ([]Entry, error)

	Close(ctx context.Context) error
}

// Entry summarizes a stored report.
type Entry struct {
	ID        string         `json:"id" bson:"_id"`
	Root      string         `json:"root" bson:"root"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	Summary   report.Summary `json:"summary" bson:"summary"`
}

func entryOf(r *report.Report) Entry {
	return Entry{ID: r.ID, Root: r.Root, CreatedAt: r.CreatedAt, Summary: r.Summary}
}

func notFound(id string) error {
	return errs.New(errs.ErrCodeNotFound, "report %s not found", id)
}

// Open returns the store selected by cfg. The file backend defaults to a
// "reports" directory below the user cache directory.
func Open(ctx context.Context, cfg session.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case session.BackendMongo:
		return NewMongoStore(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
	case session.BackendFile, "":
		dir := cfg.Dir
		if dir == "" {
			base, err := session.DefaultCacheDir()
			if err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "no report directory")
			}
			dir = filepath.Join(base, "reports")
		}
		return NewFileStore(dir)
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}
