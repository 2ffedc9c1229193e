// Package trace provides request traces: immutable chains of diagnostic
// tokens that correlate nested repository operations with the request that
// started them.
//
// A root trace is created once per top-level request and every sub-request
// receives a child:
//
//	root := trace.New(req)
//	child := trace.NewChild(root, collectReq)
//	child.ID() == root.ID() // true
//
// Parents are only referenced, never modified.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// RequestTrace is one link of a trace chain. The zero value is not usable;
// a nil *RequestTrace is a valid "no trace" value for all methods.
type RequestTrace struct {
	id     string
	parent *RequestTrace
	data   any
	depth  int
}

// New creates a root trace carrying data.
func New(data any) *RequestTrace {
	return &RequestTrace{id: uuid.NewString(), data: data}
}

// NewChild creates a trace whose parent is parent. A nil parent yields a new
// root, so callers never need to special-case the top-level request.
func NewChild(parent *RequestTrace, data any) *RequestTrace {
	if parent == nil {
		return New(data)
	}
	return &RequestTrace{id: parent.id, parent: parent, data: data, depth: parent.depth + 1}
}

// ID returns the identifier shared by every link of the chain.
func (t *RequestTrace) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// Parent returns the enclosing trace, or nil for a root.
func (t *RequestTrace) Parent() *RequestTrace {
	if t == nil {
		return nil
	}
	return t.parent
}

// Data returns the payload attached when the link was created.
func (t *RequestTrace) Data() any {
	if t == nil {
		return nil
	}
	return t.data
}

// Depth returns 0 for a root and increases by one per child.
func (t *RequestTrace) Depth() int {
	if t == nil {
		return 0
	}
	return t.depth
}

// Chain returns the payloads from this link up to the root.
func (t *RequestTrace) Chain() []any {
	var out []any
	for cur := t; cur != nil; cur = cur.parent {
		out = append(out, cur.data)
	}
	return out
}

// Root returns the first link of the chain.
func (t *RequestTrace) Root() *RequestTrace {
	cur := t
	for cur != nil && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying t.
func WithContext(ctx context.Context, t *RequestTrace) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the trace stored in ctx, or nil.
func FromContext(ctx context.Context) *RequestTrace {
	t, _ := ctx.Value(ctxKey{}).(*RequestTrace)
	return t
}
