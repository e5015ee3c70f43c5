package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wilhg/xmcp/pkg/catalog"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/ratelimit"
)

// Permissions answers whether an operation is currently enabled. The
// verdict and the profile come from the same resolution.
type Permissions interface {
	Check(name string) (enabled bool, profile catalog.Profile)
}

// RateLimiter consumes one unit of a category.
type RateLimiter interface {
	Allow(ctx context.Context, c ratelimit.Category) (ratelimit.Decision, error)
}

// Outcome labels.
const (
	OutcomeOK = "ok"
)

// Outcome describes one finished invocation.
type Outcome struct {
	ID       string
	Tool     string
	Group    catalog.Group
	Category ratelimit.Category
	Profile  catalog.Profile
	// Outcome is OutcomeOK or the error type.
	Outcome  string
	Status   int
	Started  time.Time
	Duration time.Duration
}

// Observer receives every Outcome. Implementations must be safe for
// concurrent use and should not block.
type Observer interface {
	Observe(ctx context.Context, o Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, o Outcome)

func (f ObserverFunc) Observe(ctx context.Context, o Outcome) { f(ctx, o) }

// Result is what Invoke hands back. Exactly one of Value and Err is set.
type Result struct {
	Tool      string
	Value     any
	Err       *errmodel.Error
	ReceiptID string
	Timestamp time.Time
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Payload returns the value to hand to the caller: the capability's result on
// success, the failure envelope otherwise.
func (r Result) Payload() any {
	if r.Err != nil {
		return errmodel.Envelope(r.Err, r.Tool, r.Timestamp)
	}
	return r.Value
}

// Gate enforces permission and rate decisions around every operation.
type Gate struct {
	perms     Permissions
	limiter   RateLimiter
	logger    *slog.Logger
	tracer    trace.Tracer
	observers []Observer
	now       func() time.Time
	validator *validator
}

// Option configures a Gate.
type Option func(*Gate)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gate) {
		if tp != nil {
			g.tracer = tp.Tracer("github.com/wilhg/xmcp/pkg/gate")
		}
	}
}

// WithObserver registers an observer notified after each invocation.
func WithObserver(o Observer) Option {
	return func(g *Gate) {
		if o != nil {
			g.observers = append(g.observers, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New returns a Gate over perms and limiter. A nil limiter disables rate
// checks.
func New(perms Permissions, limiter RateLimiter, opts ...Option) *Gate {
	g := &Gate{
		perms:     perms,
		limiter:   limiter,
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/wilhg/xmcp/pkg/gate"),
		now:       time.Now,
		validator: newValidator(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke runs op with args through the gate. It never panics and never
// returns an untranslated error.
func (g *Gate) Invoke(ctx context.Context, op Operation, args map[string]any) Result {
	started := g.now()
	group, _ := catalog.GroupOf(op.Name)
	ctx, span := g.tracer.Start(ctx, "gate.Invoke", trace.WithAttributes(
		attribute.String("tool.name", op.Name),
		attribute.String("tool.group", string(group)),
		attribute.String("tool.category", string(op.Category)),
	))
	defer span.End()

	value, profile, err := g.invoke(ctx, op, args)
	res := Result{Tool: op.Name, ReceiptID: uuid.NewString(), Timestamp: g.now()}
	outcome := Outcome{
		ID:       res.ReceiptID,
		Tool:     op.Name,
		Group:    group,
		Category: op.Category,
		Profile:  profile,
		Outcome:  OutcomeOK,
		Started:  started,
		Duration: res.Timestamp.Sub(started),
	}
	if err != nil {
		ce := errmodel.From(err)
		res.Err = ce
		outcome.Outcome = ce.Type
		outcome.Status = errmodel.HTTPStatus(ce)
		span.RecordError(err)
		span.SetStatus(codes.Error, ce.Type)
		span.SetAttributes(attribute.String("error.type", ce.Type))
		g.logger.LogAttrs(ctx, levelFor(ce), "tool invocation failed",
			slog.String("tool", op.Name),
			slog.String("type", ce.Type),
			slog.String("message", ce.Message),
		)
	} else {
		res.Value = value
		g.logger.LogAttrs(ctx, slog.LevelDebug, "tool invoked",
			slog.String("tool", op.Name),
			slog.Duration("duration", outcome.Duration),
		)
	}
	span.SetAttributes(attribute.String("receipt.id", res.ReceiptID))
	for _, o := range g.observers {
		o.Observe(ctx, outcome)
	}
	return res
}

func (g *Gate) invoke(ctx context.Context, op Operation, args map[string]any) (value any, profile catalog.Profile, err error) {
	enabled, profile := g.check(op.Name)
	if !enabled {
		return nil, profile, errmodel.PermissionDenied(op.Name, string(profile))
	}
	if err := g.validator.Validate(op.Name, op.InputSchema, args); err != nil {
		return nil, profile, errmodel.InvalidInput("Invalid arguments for "+op.Name, map[string]any{"error": err.Error()})
	}
	if op.Category != "" && g.limiter != nil {
		d, err := g.limiter.Allow(ctx, op.Category)
		if err != nil {
			return nil, profile, errmodel.Internal("rate limiter unavailable", err)
		}
		if !d.Allowed {
			return nil, profile, errmodel.RateLimited(string(op.Category), d.RetryAfter)
		}
	}
	if op.Handler == nil {
		return nil, profile, errmodel.Internal("operation "+op.Name+" has no handler", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = errmodel.Internal(fmt.Sprintf("panic in %s: %v", op.Name, r), nil)
		}
	}()
	value, err = op.Handler(ctx, args)
	if err != nil {
		return nil, profile, err
	}
	if op.ContentProducing {
		value = Annotate(value)
	}
	return value, profile, nil
}

// check fails closed when no permissions are configured.
func (g *Gate) check(name string) (bool, catalog.Profile) {
	if g.perms == nil {
		return false, catalog.DefaultProfile
	}
	return g.perms.Check(name)
}

func levelFor(e *errmodel.Error) slog.Level {
	if errmodel.HTTPStatus(e) >= 500 {
		return slog.LevelError
	}
	return slog.LevelWarn
}
