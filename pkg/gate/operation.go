// Package gate is the single decision point every exposed operation passes
// through: permission check, argument validation, rate check, delegation,
// advisory annotation and error translation, in that order.
package gate

import (
	"context"
	"maps"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/ratelimit"
)

// Advisory is attached to results of content-producing operations.
const Advisory = "Recommendation: Use AI to assist with research and drafts, but keep a human review for posts and replies to preserve authenticity."

// Handler performs the underlying capability. args are the caller's
// arguments, unmodified.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Operation describes one exposed capability. It is a plain value; the gate
// holds no reference to it after Invoke returns.
type Operation struct {
	Name        string
	Description string
	// Category selects the rate quota. Empty means unlimited.
	Category ratelimit.Category
	// ContentProducing results receive the advisory.
	ContentProducing bool
	ReadOnly         bool
	// Destructive marks operations that remove data.
	Destructive bool
	InputSchema *jsonschema.Schema
	Handler     Handler
}

// Reviewable is implemented by typed results that carry the advisory.
type Reviewable interface {
	AdvisoryText() string
	SetAdvisory(string)
}

// Annotate attaches the advisory to v when v can carry one and has none.
// Applying it twice leaves the result unchanged. Maps are copied before
// the advisory is added so the handler's map is never modified.
func Annotate(v any) any {
	switch t := v.(type) {
	case Reviewable:
		if t.AdvisoryText() == "" {
			t.SetAdvisory(Advisory)
		}
	case map[string]any:
		if t == nil {
			return v
		}
		if _, ok := t["advisory"]; !ok {
			out := maps.Clone(t)
			out["advisory"] = Advisory
			return out
		}
	}
	return v
}
