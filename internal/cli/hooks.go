package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depresolve/pkg/observability"
)

// debugHooks logs repository system, cache and HTTP events at debug level.
type debugHooks struct {
	logger *log.Logger
}

func registerHooks(l *log.Logger) {
	h := debugHooks{logger: l}
	observability.SetSystemHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h debugHooks) OnCollectStart(_ context.Context, root string) {
	h.logger.Debug("collect start", "root", root)
}

func (h debugHooks) OnCollectComplete(_ context.Context, root string, nodes int, d time.Duration, err error) {
	h.logger.Debug("collect done", "root", root, "nodes", nodes, "elapsed", d.Round(time.Millisecond), "error", err)
}

func (h debugHooks) OnResolveStart(_ context.Context, requests int) {
	h.logger.Debug("resolve start", "requests", requests)
}

func (h debugHooks) OnResolveComplete(_ context.Context, requests, resolved int, d time.Duration, err error) {
	h.logger.Debug("resolve done", "requests", requests, "resolved", resolved, "elapsed", d.Round(time.Millisecond), "error", err)
}

func (h debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "elapsed", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}
