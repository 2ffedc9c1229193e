package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/depresolve/pkg/artifact"
)

// keyLock is a reader/writer lock whose acquisition can be abandoned when a
// context is cancelled.
type keyLock struct {
	mu      sync.Mutex
	readers int
	writer  bool
	changed chan struct{}
	refs    int
}

var (
	locksMu sync.Mutex
	locks   = map[string]*keyLock{}
)

func lockFor(key string) *keyLock {
	locksMu.Lock()
	defer locksMu.Unlock()
	l, ok := locks[key]
	if !ok {
		l = &keyLock{changed: make(chan struct{})}
		locks[key] = l
	}
	l.refs++
	return l
}

func releaseRef(key string, l *keyLock) {
	locksMu.Lock()
	defer locksMu.Unlock()
	if l.refs--; l.refs == 0 {
		delete(locks, key)
	}
}

func (l *keyLock) acquire(ctx context.Context, shared bool) error {
	for {
		l.mu.Lock()
		if !l.writer && (shared || l.readers == 0) {
			if shared {
				l.readers++
			} else {
				l.writer = true
			}
			l.mu.Unlock()
			return nil
		}
		wait := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

func (l *keyLock) release(shared bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if shared {
		l.readers--
	} else {
		l.writer = false
	}
	close(l.changed)
	l.changed = make(chan struct{})
}

// SyncContext guards artifacts against concurrent modification within the
// process. A shared context allows concurrent readers; an exclusive one
// admits a single holder per artifact. Locks are held until Close.
type SyncContext struct {
	shared bool

	mu   sync.Mutex
	held map[string]*keyLock
}

// NewSyncContext creates a sync context.
func NewSyncContext(shared bool) *SyncContext {
	return &SyncContext{shared: shared, held: map[string]*keyLock{}}
}

// Shared reports whether the context takes shared locks.
func (s *SyncContext) Shared() bool { return s.shared }

// Acquire locks every given artifact. Keys are locked in sorted order so
// that contexts acquiring overlapping sets cannot deadlock. Artifacts already
// held by this context are skipped. On error no new lock is kept.
func (s *SyncContext) Acquire(ctx context.Context, coords ...artifact.Coordinate) error {
	keys := make([]string, 0, len(coords))
	for _, c := range coords {
		keys = append(keys, c.Key()+":"+c.Version)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	s.mu.Lock()
	defer s.mu.Unlock()

	var acquired []string
	for _, k := range keys {
		if _, ok := s.held[k]; ok {
			continue
		}
		l := lockFor(k)
		if err := l.acquire(ctx, s.shared); err != nil {
			releaseRef(k, l)
			for _, a := range acquired {
				s.releaseKey(a)
			}
			return err
		}
		s.held[k] = l
		acquired = append(acquired, k)
	}
	return nil
}

func (s *SyncContext) releaseKey(k string) {
	l := s.held[k]
	delete(s.held, k)
	l.release(s.shared)
	releaseRef(k, l)
}

// Held returns the number of artifacts currently locked.
func (s *SyncContext) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Close releases all locks. It is safe to call more than once.
func (s *SyncContext) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.held {
		s.releaseKey(k)
	}
	return nil
}
