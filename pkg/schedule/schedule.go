// Package schedule publishes tweets at a later time. Posts are persisted in
// a store.PostStore; a Service publishes them from a polling loop and a
// Queue hands them to asynq so a redis-backed worker fires them on time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/store"
	"github.com/wilhg/xmcp/pkg/xapi"
)

// Request describes a post to publish later.
type Request struct {
	Text       string
	ReplyTo    string
	MediaPaths []string
	At         time.Time
}

// Scheduled is the result of scheduling a post.
type Scheduled struct {
	store.ScheduledPost
	Message string `json:"message"`
	xapi.Review
}

// Scheduler is implemented by Service and Queue.
type Scheduler interface {
	Schedule(ctx context.Context, req Request) (*Scheduled, error)
	List(ctx context.Context, status store.PostStatus) ([]store.ScheduledPost, error)
	Cancel(ctx context.Context, id string) (store.ScheduledPost, error)
}

// Publisher sends a due post and returns the created tweet id.
type Publisher interface {
	Publish(ctx context.Context, p store.ScheduledPost) (string, error)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, p store.ScheduledPost) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, p store.ScheduledPost) (string, error) {
	return f(ctx, p)
}

// Service schedules posts in a store and publishes the due ones.
type Service struct {
	posts  store.PostStore
	pub    Publisher
	now    func() time.Time
	logger *slog.Logger
	batch  int
	vault  *Vault
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithVault sets the vault sealing per-request credentials. Without it a
// random key is used and sealed posts only publish from this process.
func WithVault(v *Vault) Option { return func(s *Service) { s.vault = v } }

// WithBatch bounds how many due posts one poll publishes.
func WithBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batch = n
		}
	}
}

// NewService returns a Service over posts publishing through pub.
func NewService(posts store.PostStore, pub Publisher, opts ...Option) *Service {
	s := &Service{posts: posts, pub: pub, now: time.Now, logger: slog.Default(), batch: 20}
	for _, o := range opts {
		o(s)
	}
	if s.vault == nil {
		s.vault = RandomVault()
	}
	return s
}

var _ Scheduler = (*Service)(nil)

// Schedule stores a pending post. Times not in the future are rejected.
func (s *Service) Schedule(ctx context.Context, req Request) (*Scheduled, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errmodel.InvalidInput("text must not be empty", nil)
	}
	now := s.now().UTC()
	if !req.At.After(now) {
		return nil, errmodel.InvalidInput("scheduled_time must be in the future",
			map[string]any{"scheduled_time": req.At.UTC().Format(time.RFC3339)})
	}
	p := store.ScheduledPost{
		ID:          uuid.NewString(),
		Text:        req.Text,
		ReplyTo:     req.ReplyTo,
		MediaPaths:  req.MediaPaths,
		ScheduledAt: req.At.UTC(),
		Status:      store.PostPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if creds, ok := xapi.CredentialsFrom(ctx); ok && !creds.IsZero() {
		sealed, err := s.vault.Seal(creds)
		if err != nil {
			return nil, errmodel.Internal("failed to seal request credentials", err)
		}
		p.Credentials = sealed
	}
	if err := s.posts.CreatePost(ctx, p); err != nil {
		return nil, errmodel.Internal("failed to store scheduled post", err)
	}
	s.logger.Info("post scheduled", slog.String("schedule_id", p.ID), slog.Time("scheduled_time", p.ScheduledAt))
	return &Scheduled{
		ScheduledPost: p,
		Message:       "Tweet scheduled for " + p.ScheduledAt.Format(time.RFC3339),
	}, nil
}

// List returns scheduled posts, all of them when status is empty.
func (s *Service) List(ctx context.Context, status store.PostStatus) ([]store.ScheduledPost, error) {
	posts, err := s.posts.ListPosts(ctx, status)
	if err != nil {
		return nil, errmodel.Internal("failed to list scheduled posts", err)
	}
	return posts, nil
}

// Cancel marks a pending post cancelled. A post already claimed for
// publishing can no longer be cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (store.ScheduledPost, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return store.ScheduledPost{}, err
	}
	if p.Status != store.PostPending {
		return store.ScheduledPost{}, notPending(p)
	}
	p.Status = store.PostCancelled
	p.UpdatedAt = s.now().UTC()
	err = s.posts.TransitionPost(ctx, p, store.PostPending)
	if errors.Is(err, store.ErrConflict) {
		cur, gerr := s.get(ctx, id)
		if gerr != nil {
			return store.ScheduledPost{}, gerr
		}
		return store.ScheduledPost{}, notPending(cur)
	}
	if err != nil {
		return store.ScheduledPost{}, errmodel.Internal("failed to cancel scheduled post", err)
	}
	return p, nil
}

func notPending(p store.ScheduledPost) error {
	return errmodel.InvalidInput("only pending posts can be cancelled",
		map[string]any{"schedule_id": p.ID, "status": string(p.Status)})
}

func (s *Service) get(ctx context.Context, id string) (store.ScheduledPost, error) {
	p, err := s.posts.GetPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.ScheduledPost{}, errmodel.NotFound("Scheduled post not found", map[string]any{"schedule_id": id})
	}
	if err != nil {
		return store.ScheduledPost{}, errmodel.Internal("failed to load scheduled post", err)
	}
	return p, nil
}

// PublishDue publishes every pending post whose time has come and returns
// how many were published.
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	due, err := s.posts.DuePosts(ctx, s.now().UTC(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("schedule: due posts: %w", err)
	}
	published := 0
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if s.publish(ctx, p) == nil {
			published++
		}
	}
	return published, nil
}

// PublishOne publishes the post with id if it is still pending.
func (s *Service) PublishOne(ctx context.Context, id string) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != store.PostPending {
		s.logger.Debug("skip scheduled post", slog.String("schedule_id", id), slog.String("status", string(p.Status)))
		return nil
	}
	if err := s.publish(ctx, p); err != nil && !errors.Is(err, errClaimed) {
		return err
	}
	return nil
}

var errClaimed = errors.New("schedule: post is no longer pending")

// publish claims p by moving it from pending to publishing, so a concurrent
// cancel or another poller cannot act on it, then sends it and records the
// outcome.
func (s *Service) publish(ctx context.Context, p store.ScheduledPost) error {
	claim := p
	claim.Status = store.PostPublishing
	claim.UpdatedAt = s.now().UTC()
	if err := s.posts.TransitionPost(ctx, claim, store.PostPending); err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("scheduled post already claimed", slog.String("schedule_id", p.ID))
			return errClaimed
		}
		return fmt.Errorf("schedule: claim %s: %w", p.ID, err)
	}

	tweetID, err := s.send(ctx, p)
	done := claim
	done.UpdatedAt = s.now().UTC()
	if err != nil {
		done.Status = store.PostFailed
		done.Error = errmodel.From(err).Message
		s.logger.Error("scheduled post failed", slog.String("schedule_id", p.ID), slog.Any("error", err))
	} else {
		done.Status = store.PostPublished
		done.TweetID = tweetID
		s.logger.Info("scheduled post published", slog.String("schedule_id", p.ID), slog.String("tweet_id", tweetID))
	}
	if uerr := s.posts.TransitionPost(ctx, done, store.PostPublishing); uerr != nil {
		return fmt.Errorf("schedule: update %s: %w", p.ID, uerr)
	}
	return err
}

// send publishes p under the credentials of the request that scheduled it.
func (s *Service) send(ctx context.Context, p store.ScheduledPost) (string, error) {
	if len(p.Credentials) > 0 {
		creds, err := s.vault.Open(p.Credentials)
		if err != nil {
			return "", errmodel.Configuration("credentials of the scheduled post cannot be opened; check XMCP_SECRET_KEY", err)
		}
		ctx = xapi.WithCredentials(ctx, creds)
	}
	return s.pub.Publish(ctx, p)
}

// Run polls for due posts every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.PublishDue(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("publish due posts", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// APIPublisher publishes through the X API with the credentials in ctx,
// falling back to the process environment.
type APIPublisher struct {
	Clients *xapi.Factory
}

func (p APIPublisher) Publish(ctx context.Context, post store.ScheduledPost) (string, error) {
	c, err := p.Clients.Client(ctx)
	if err != nil {
		return "", err
	}
	mediaIDs, err := c.UploadAll(ctx, post.MediaPaths)
	if err != nil {
		return "", err
	}
	t, err := c.CreateTweet(ctx, xapi.TweetRequest{Text: post.Text, ReplyTo: post.ReplyTo, MediaIDs: mediaIDs})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}
