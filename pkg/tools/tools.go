// Package tools binds every catalog operation to a gate.Operation backed by
// the X API client, the article fetcher and the post scheduler.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/wilhg/xmcp/pkg/article"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/schedule"
	"github.com/wilhg/xmcp/pkg/xapi"
)

// Clients hands out an X API client for the credentials in ctx.
// *xapi.Factory satisfies it.
type Clients interface {
	Client(ctx context.Context) (*xapi.Client, error)
}

// Toolset builds the operations.
type Toolset struct {
	clients   Clients
	articles  *article.Fetcher
	schedules schedule.Scheduler
}

// New returns a Toolset. articles and schedules may be nil, in which case
// the operations depending on them report a missing dependency.
func New(clients Clients, articles *article.Fetcher, schedules schedule.Scheduler) *Toolset {
	return &Toolset{clients: clients, articles: articles, schedules: schedules}
}

// Operations returns every operation sorted by name.
func (t *Toolset) Operations() []gate.Operation {
	var ops []gate.Operation
	for _, group := range [][]gate.Operation{
		t.research(),
		t.engage(),
		t.publish(),
		t.social(),
		t.conversations(),
		t.lists(),
		t.dms(),
		t.account(),
	} {
		ops = append(ops, group...)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Register adds every operation to reg.
func (t *Toolset) Register(reg *gate.Registry) error {
	for _, op := range t.Operations() {
		if err := reg.Register(op); err != nil {
			return fmt.Errorf("register %s: %w", op.Name, err)
		}
	}
	return nil
}

type clientFunc func(ctx context.Context, c *xapi.Client, p params) (any, error)

// call adapts fn to a gate.Handler resolving the client per invocation.
func (t *Toolset) call(fn clientFunc) gate.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if t.clients == nil {
			return nil, errmodel.Configuration("X API client is not configured", nil)
		}
		c, err := t.clients.Client(ctx)
		if err != nil {
			return nil, err
		}
		return fn(ctx, c, params(args))
	}
}

// local adapts fn to a gate.Handler that needs no client.
func local(fn func(ctx context.Context, p params) (any, error)) gate.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		return fn(ctx, params(args))
	}
}
