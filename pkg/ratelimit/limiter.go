// Package ratelimit implements fixed-window quotas per action category.
//
// A window opens on the first consume after the previous one expired and
// lasts a fixed duration. Bursts straddling a boundary can admit up to twice
// the limit in quick succession; that approximation is deliberate.
package ratelimit

import (
	"context"
	"sort"
	"time"
)

// Category names a class of operations sharing one quota window.
type Category string

const (
	TweetActions  Category = "tweet_actions"
	DMActions     Category = "dm_actions"
	FollowActions Category = "follow_actions"
	LikeActions   Category = "like_actions"
	ListActions   Category = "list_actions"
)

// Limit is the quota of one category.
type Limit struct {
	Limit  int           `json:"limit" yaml:"limit"`
	Window time.Duration `json:"window" yaml:"window"`
}

// DefaultLimits is the fixed category table.
var DefaultLimits = map[Category]Limit{
	TweetActions:  {Limit: 300, Window: 15 * time.Minute},
	DMActions:     {Limit: 1000, Window: 15 * time.Minute},
	FollowActions: {Limit: 400, Window: 24 * time.Hour},
	LikeActions:   {Limit: 1000, Window: 24 * time.Hour},
	ListActions:   {Limit: 300, Window: 15 * time.Minute},
}

// Store holds counters and performs the check-and-increment atomically.
type Store interface {
	// Consume applies one fixed-window step for key at now and reports
	// whether it was admitted and when the current window resets.
	Consume(ctx context.Context, key string, lim Limit, now time.Time) (allowed bool, reset time.Time, err error)
	// Reset returns the reset time of the current window, zero if none.
	Reset(ctx context.Context, key string) (time.Time, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Category   Category
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter applies the category table over a Store.
type Limiter struct {
	store  Store
	limits map[Category]Limit
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithStore replaces the default in-process store.
func WithStore(s Store) Option {
	return func(l *Limiter) {
		if s != nil {
			l.store = s
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLimits replaces the category table. Intended for tests.
func WithLimits(limits map[Category]Limit) Option {
	return func(l *Limiter) {
		l.limits = make(map[Category]Limit, len(limits))
		for k, v := range limits {
			l.limits[k] = v
		}
	}
}

// New returns a Limiter over DefaultLimits and an in-memory store.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		store:  NewMemoryStore(),
		limits: DefaultLimits,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one unit of category. Unknown categories are always
// admitted. Store failures deny.
func (l *Limiter) Allow(ctx context.Context, c Category) (Decision, error) {
	lim, ok := l.limits[c]
	if !ok {
		return Decision{Category: c, Allowed: true}, nil
	}
	now := l.now()
	allowed, reset, err := l.store.Consume(ctx, string(c), lim, now)
	if err != nil {
		return Decision{Category: c, Allowed: false}, err
	}
	d := Decision{Category: c, Allowed: allowed}
	if !allowed {
		d.RetryAfter = nonNegative(reset.Sub(now))
	}
	return d, nil
}

// TryConsume reports whether one unit of category was admitted.
func (l *Limiter) TryConsume(ctx context.Context, c Category) bool {
	d, err := l.Allow(ctx, c)
	return err == nil && d.Allowed
}

// TimeUntilReset returns how long until the category's window resets.
func (l *Limiter) TimeUntilReset(ctx context.Context, c Category) time.Duration {
	if _, ok := l.limits[c]; !ok {
		return 0
	}
	reset, err := l.store.Reset(ctx, string(c))
	if err != nil || reset.IsZero() {
		return 0
	}
	return nonNegative(reset.Sub(l.now()))
}

// Limits returns the category table sorted by name.
func (l *Limiter) Limits() []CategoryLimit {
	out := make([]CategoryLimit, 0, len(l.limits))
	for c, lim := range l.limits {
		out = append(out, CategoryLimit{Category: c, Limit: lim})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// CategoryLimit pairs a category with its quota.
type CategoryLimit struct {
	Category Category `json:"category" yaml:"category"`
	Limit    `yaml:",inline"`
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// Usage is the reportable state of one category.
type Usage struct {
	Category       Category `json:"category" yaml:"category"`
	Limit          int      `json:"limit" yaml:"limit"`
	WindowSeconds  int64    `json:"window_seconds" yaml:"window_seconds"`
	ResetInSeconds int64    `json:"reset_in_seconds" yaml:"reset_in_seconds"`
}

// Usage reports every category with the time left in its open window.
func (l *Limiter) Usage(ctx context.Context) []Usage {
	limits := l.Limits()
	out := make([]Usage, 0, len(limits))
	for _, cl := range limits {
		out = append(out, Usage{
			Category:       cl.Category,
			Limit:          cl.Limit.Limit,
			WindowSeconds:  int64(cl.Window / time.Second),
			ResetInSeconds: int64(l.TimeUntilReset(ctx, cl.Category).Round(time.Second) / time.Second),
		})
	}
	return out
}
