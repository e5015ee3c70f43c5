package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wilhg/xmcp/pkg/catalog"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/ratelimit"
)

type review struct {
	ID       string `json:"id"`
	Advisory string `json:"advisory,omitempty"`
}

func (r *review) AdvisoryText() string  { return r.Advisory }
func (r *review) SetAdvisory(s string) { r.Advisory = s }

type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) Observe(_ context.Context, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func newGate(t *testing.T, env map[string]string, limits map[ratelimit.Category]ratelimit.Limit, opts ...Option) (*Gate, *permissions.MapSource) {
	t.Helper()
	src := permissions.NewMapSource(env)
	var lim *ratelimit.Limiter
	if limits != nil {
		lim = ratelimit.New(ratelimit.WithLimits(limits))
	} else {
		lim = ratelimit.New()
	}
	return New(permissions.NewManager(src), lim, opts...), src
}

func countingOp(name string, calls *int, result any) Operation {
	return Operation{
		Name: name,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			*calls++
			return result, nil
		},
	}
}

func TestDisabledOperationIsDenied(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	calls := 0
	res := g.Invoke(context.Background(), countingOp("post_tweet", &calls, "x"), nil)
	require.False(t, res.OK())
	assert.Zero(t, calls)
	assert.Equal(t, errmodel.TypePermissionDenied, res.Err.Type)
	assert.Equal(t, "researcher", res.Err.Details["profile"])
	assert.Equal(t, "post_tweet", res.Err.Details["tool"])

	env, ok := res.Payload().(errmodel.EnvelopeBody)
	require.True(t, ok)
	assert.False(t, env.OK)
	assert.Equal(t, "post_tweet", env.Tool)
}

func TestProfileSwitchTakesEffectImmediately(t *testing.T) {
	g, src := newGate(t, nil, nil)
	calls := 0
	op := countingOp("post_tweet", &calls, map[string]any{"id": "1"})
	assert.False(t, g.Invoke(context.Background(), op, nil).OK())
	src.Set(permissions.EnvProfile, "creator")
	assert.True(t, g.Invoke(context.Background(), op, nil).OK())
	assert.Equal(t, 1, calls)
}

func TestRateLimitDeniesWithoutCallingHandler(t *testing.T) {
	g, _ := newGate(t, map[string]string{permissions.EnvProfile: "creator"},
		map[ratelimit.Category]ratelimit.Limit{ratelimit.TweetActions: {Limit: 2, Window: time.Hour}})
	calls := 0
	op := countingOp("retweet", &calls, map[string]any{})
	op.Category = ratelimit.TweetActions

	for i := 0; i < 2; i++ {
		require.True(t, g.Invoke(context.Background(), op, nil).OK())
	}
	res := g.Invoke(context.Background(), op, nil)
	require.False(t, res.OK())
	assert.Equal(t, 2, calls)
	assert.Equal(t, errmodel.TypeRateLimitExceeded, res.Err.Type)
	assert.Equal(t, "tweet_actions", res.Err.Details["action_type"])
	assert.Greater(t, res.Err.Details["retry_after_seconds"], 3500)
}

func TestInvalidArgumentsDoNotConsumeQuota(t *testing.T) {
	g, _ := newGate(t, map[string]string{permissions.EnvProfile: "creator"},
		map[ratelimit.Category]ratelimit.Limit{ratelimit.TweetActions: {Limit: 1, Window: time.Hour}})
	calls := 0
	op := countingOp("retweet", &calls, map[string]any{})
	op.Category = ratelimit.TweetActions
	op.InputSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"tweet_id": {Type: "string"}},
		Required:   []string{"tweet_id"},
	}

	res := g.Invoke(context.Background(), op, map[string]any{"tweet_id": 5})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)
	assert.Equal(t, 400, res.Err.Status)

	assert.True(t, g.Invoke(context.Background(), op, map[string]any{"tweet_id": "5"}).OK())
	assert.Equal(t, 1, calls)
}

func TestHandlerErrorsAreTranslated(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	op := Operation{Name: "get_me", Handler: func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("socket closed")
	}}
	res := g.Invoke(context.Background(), op, nil)
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInternal, res.Err.Type)
	assert.Contains(t, res.Err.Message, "socket closed")

	op.Handler = func(context.Context, map[string]any) (any, error) {
		return nil, errmodel.Upstream(404, "User not found", nil, nil)
	}
	res = g.Invoke(context.Background(), op, nil)
	assert.Equal(t, errmodel.TypeNotFound, res.Err.Type)
}

func TestPanicsAreRecovered(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	op := Operation{Name: "search_twitter", Handler: func(context.Context, map[string]any) (any, error) {
		panic("nil map")
	}}
	res := g.Invoke(context.Background(), op, nil)
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInternal, res.Err.Type)
	assert.Equal(t, "search_twitter", res.Tool)
}

func TestArgumentsReachHandlerUnmodified(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	args := map[string]any{"query": "golang", "count": 7}
	var got map[string]any
	op := Operation{Name: "search_twitter", Handler: func(_ context.Context, a map[string]any) (any, error) {
		got = a
		return "ok", nil
	}}
	require.True(t, g.Invoke(context.Background(), op, args).OK())
	assert.Equal(t, 7, got["count"])
}

func TestAdvisoryAnnotation(t *testing.T) {
	g, _ := newGate(t, map[string]string{permissions.EnvProfile: "creator"}, nil)

	typed := &review{ID: "1"}
	op := Operation{Name: "post_tweet", ContentProducing: true, Handler: func(context.Context, map[string]any) (any, error) {
		return typed, nil
	}}
	res := g.Invoke(context.Background(), op, nil)
	require.True(t, res.OK())
	assert.Equal(t, Advisory, typed.Advisory)

	m := map[string]any{"advisory": "keep me"}
	op.Handler = func(context.Context, map[string]any) (any, error) { return m, nil }
	g.Invoke(context.Background(), op, nil)
	assert.Equal(t, "keep me", m["advisory"])

	plain := map[string]any{"id": "2"}
	op.Name = "get_tweet_details"
	op.ContentProducing = false
	op.Handler = func(context.Context, map[string]any) (any, error) { return plain, nil }
	g.Invoke(context.Background(), op, nil)
	assert.NotContains(t, plain, "advisory")
}

func TestAnnotateIsIdempotent(t *testing.T) {
	m := map[string]any{}
	got := Annotate(Annotate(m))
	assert.Equal(t, map[string]any{"advisory": Advisory}, got)
	assert.Empty(t, m)

	r := &review{Advisory: "custom"}
	Annotate(r)
	assert.Equal(t, "custom", r.Advisory)

	assert.Equal(t, "text", Annotate("text"))
}

func TestObserversAndSpans(t *testing.T) {
	rec := &recorder{}
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	g, _ := newGate(t, nil, nil, WithObserver(rec), WithTracerProvider(tp))

	calls := 0
	g.Invoke(context.Background(), countingOp("search_twitter", &calls, "ok"), nil)
	g.Invoke(context.Background(), countingOp("send_dm", &calls, "ok"), nil)

	require.Len(t, rec.outcomes, 2)
	assert.Equal(t, OutcomeOK, rec.outcomes[0].Outcome)
	assert.Equal(t, "research", string(rec.outcomes[0].Group))
	assert.Equal(t, errmodel.TypePermissionDenied, rec.outcomes[1].Outcome)
	assert.Equal(t, 403, rec.outcomes[1].Status)
	assert.NotEmpty(t, rec.outcomes[0].ID)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "gate.Invoke", spans[0].Name())
}

func TestRegistry(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	r := NewRegistry(g)
	calls := 0
	require.NoError(t, r.Register(countingOp("search_twitter", &calls, "ok")))
	require.Error(t, r.Register(countingOp("search_twitter", &calls, "ok")))
	require.Error(t, r.Register(Operation{Name: "x"}))
	require.NoError(t, r.Register(countingOp("get_trends", &calls, "ok")))

	ops := r.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "get_trends", ops[0].Name)

	assert.True(t, r.Call(context.Background(), "search_twitter", nil).OK())
	res := r.Call(context.Background(), "nope", nil)
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeNotFound, res.Err.Type)
	assert.Equal(t, "nope", res.Tool)
}

func TestAdvisoryLeavesHandlerMapUntouched(t *testing.T) {
	g, _ := newGate(t, map[string]string{permissions.EnvProfile: "creator"}, nil)
	shared := map[string]any{"id": "1"}
	op := Operation{Name: "post_tweet", ContentProducing: true, Handler: func(context.Context, map[string]any) (any, error) {
		return shared, nil
	}}

	for range 2 {
		res := g.Invoke(context.Background(), op, nil)
		require.True(t, res.OK())
		assert.Equal(t, map[string]any{"id": "1", "advisory": Advisory}, res.Value)
	}
	assert.Equal(t, map[string]any{"id": "1"}, shared)
}

func TestSchemaCacheFollowsTheDeclaredSchema(t *testing.T) {
	g, _ := newGate(t, nil, nil)
	calls := 0
	op := countingOp("search_twitter", &calls, "ok")
	op.InputSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"query": {Type: "string"}},
		Required:   []string{"query"},
	}
	require.True(t, g.Invoke(context.Background(), op, map[string]any{"query": "go"}).OK())

	op.InputSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
		Required:   []string{"text"},
	}
	res := g.Invoke(context.Background(), op, map[string]any{"query": "go"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)
	assert.True(t, g.Invoke(context.Background(), op, map[string]any{"text": "hi"}).OK())
	assert.Equal(t, 2, calls)
}

// flippingPermissions answers from a different profile on every call.
type flippingPermissions struct {
	mu    sync.Mutex
	calls int
}

func (f *flippingPermissions) Check(string) (bool, catalog.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls%2 == 1 {
		return false, catalog.ProfileResearcher
	}
	return true, catalog.ProfileCreator
}

func TestDenialReportsTheDecidingProfile(t *testing.T) {
	rec := &recorder{}
	perms := &flippingPermissions{}
	g := New(perms, ratelimit.New(), WithObserver(rec))
	calls := 0

	res := g.Invoke(context.Background(), countingOp("post_tweet", &calls, "ok"), nil)
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypePermissionDenied, res.Err.Type)
	assert.Equal(t, string(catalog.ProfileResearcher), res.Err.Details["profile"])
	assert.Equal(t, 1, perms.calls)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, catalog.ProfileResearcher, rec.outcomes[0].Profile)
	assert.Zero(t, calls)
}
