package system

import (
	"context"
	"errors"
	"sync"

	"github.com/matzehuels/depresolve/pkg/collect"
	"github.com/matzehuels/depresolve/pkg/session"
)

// Tracking wraps a RepositorySystem and remembers the result of the most
// recent collection, including collections run by ResolveDependencies.
// Every other operation is forwarded to the wrapped system unchanged.
//
// The slot holds a snapshot taken when collection returned, so it never
// shows artifacts merged by a later resolution and is safe to read while
// one runs. Concurrent calls race for the slot; the last collection to
// finish wins.
type Tracking struct {
	RepositorySystem

	mu   sync.Mutex
	last *collect.Result
}

var _ RepositorySystem = (*Tracking)(nil)

// NewTracking wraps delegate.
func NewTracking(delegate RepositorySystem) *Tracking {
	return &Tracking{RepositorySystem: delegate}
}

// CollectDependencies forwards to the wrapped system and stores a snapshot
// of the result. On failure the partial result carried by a
// *collect.CollectionError is stored instead.
func (t *Tracking) CollectDependencies(ctx context.Context, sess *session.Session, req collect.Request) (*collect.Result, error) {
	res, err := t.RepositorySystem.CollectDependencies(ctx, sess, req)
	stored := res
	var cerr *collect.CollectionError
	if stored == nil && errors.As(err, &cerr) {
		stored = cerr.Result
	}

	snapshot := stored.Clone()
	t.mu.Lock()
	t.last = snapshot
	t.mu.Unlock()
	return res, err
}

// ResolveDependencies runs Orchestrate with t as collector so the
// collection is recorded.
func (t *Tracking) ResolveDependencies(ctx context.Context, sess *session.Session, req DependencyRequest) (*DependencyResult, error) {
	return Orchestrate(ctx, sess, req, t, t)
}

// LastCollectResult returns the snapshot of the most recent collection.
// It must not be modified.
func (t *Tracking) LastCollectResult() (*collect.Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.last != nil
}

// Reset clears the stored result.
func (t *Tracking) Reset() {
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
}
