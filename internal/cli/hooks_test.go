package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depresolve/pkg/observability"
)

func TestDebugHooks(t *testing.T) {
	defer observability.Reset()

	var buf bytes.Buffer
	registerHooks(newLogger(&buf, log.DebugLevel))
	ctx := context.Background()

	observability.System().OnCollectComplete(ctx, "g:a:1", 3, time.Second, nil)
	observability.Cache().OnCacheHit(ctx, "descriptor")
	observability.HTTP().OnError(ctx, "GET", "repo.example", "/g/a/1/a-1.pom", errors.New("refused"))

	for _, want := range []string{"collect done", "nodes=3", "cache hit", "type=descriptor", "http error", "refused"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestDebugHooksQuietAtInfo(t *testing.T) {
	defer observability.Reset()

	var buf bytes.Buffer
	registerHooks(newLogger(&buf, log.InfoLevel))
	observability.HTTP().OnRequest(context.Background(), "GET", "repo.example", "/")
	if buf.Len() != 0 {
		t.Errorf("debug hooks logged at info level: %s", buf.String())
	}
}
