// Package observability provides hooks for metrics and logging backends.
//
// Libraries emit events through the registered hooks; applications register
// implementations at startup. All defaults are no-ops, so libraries never
// depend on a particular backend.
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSystemHooks(&mySystemHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.System().OnCollectStart(ctx, root)
//	// ... collect ...
//	observability.System().OnCollectComplete(ctx, root, nodes, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// System Hooks
// =============================================================================

// SystemHooks receives events from the repository system.
type SystemHooks interface {
	// Collection events. root is the requested root coordinate or "" for a
	// root-less request.
	OnCollectStart(ctx context.Context, root string)
	OnCollectComplete(ctx context.Context, root string, nodes int, duration time.Duration, err error)

	// Bulk resolution events.
	OnResolveStart(ctx context.Context, requests int)
	OnResolveComplete(ctx context.Context, requests, resolved int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSystemHooks is a no-op implementation of SystemHooks.
type NoopSystemHooks struct{}

func (NoopSystemHooks) OnCollectStart(context.Context, string)                               {}
func (NoopSystemHooks) OnCollectComplete(context.Context, string, int, time.Duration, error) {}
func (NoopSystemHooks) OnResolveStart(context.Context, int)                                  {}
func (NoopSystemHooks) OnResolveComplete(context.Context, int, int, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

type registry struct {
	mu     sync.RWMutex
	system SystemHooks
	cache  CacheHooks
	http   HTTPHooks
}

var hooks = registry{system: NoopSystemHooks{}, cache: NoopCacheHooks{}, http: NoopHTTPHooks{}}

func (r *registry) set(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// SetSystemHooks registers repository system hooks. Nil is ignored.
func SetSystemHooks(h SystemHooks) {
	if h != nil {
		hooks.set(func() { hooks.system = h })
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		hooks.set(func() { hooks.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		hooks.set(func() { hooks.http = h })
	}
}

// System returns the registered repository system hooks.
func System() SystemHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.system
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.cache
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooks.mu.RLock()
	defer hooks.mu.RUnlock()
	return hooks.http
}

// Reset restores the no-op defaults.
func Reset() {
	hooks.set(func() {
		hooks.system = NoopSystemHooks{}
		hooks.cache = NoopCacheHooks{}
		hooks.http = NoopHTTPHooks{}
	})
}
