// Package store defines persistence for invocation receipts and scheduled
// posts. Implementations must provide identical semantics across backends.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a post is no longer in the expected status.
var ErrConflict = errors.New("store: status conflict")

// Receipt records one gated invocation.
type Receipt struct {
	ID         string    `json:"id" yaml:"id"`
	Tool       string    `json:"tool" yaml:"tool"`
	Group      string    `json:"group,omitempty" yaml:"group,omitempty"`
	Category   string    `json:"category,omitempty" yaml:"category,omitempty"`
	Profile    string    `json:"profile" yaml:"profile"`
	Outcome    string    `json:"outcome" yaml:"outcome"`
	Status     int       `json:"status,omitempty" yaml:"status,omitempty"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// ReceiptFilter narrows ListReceipts. Zero fields match everything.
type ReceiptFilter struct {
	Tool    string
	Outcome string
	Limit   int
}

// ReceiptStore persists receipts.
type ReceiptStore interface {
	AppendReceipt(ctx context.Context, r Receipt) error
	// ListReceipts returns the newest receipts first.
	ListReceipts(ctx context.Context, f ReceiptFilter) ([]Receipt, error)
}

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	PostPending    PostStatus = "pending"
	PostPublishing PostStatus = "publishing"
	PostPublished  PostStatus = "published"
	PostFailed     PostStatus = "failed"
	PostCancelled  PostStatus = "cancelled"
)

// ScheduledPost is a tweet waiting to be published.
type ScheduledPost struct {
	ID          string     `json:"schedule_id" yaml:"schedule_id"`
	Text        string     `json:"text" yaml:"text"`
	ReplyTo     string     `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	MediaPaths  []string   `json:"media_paths,omitempty" yaml:"media_paths,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_time" yaml:"scheduled_time"`
	Status      PostStatus `json:"status" yaml:"status"`
	TweetID     string     `json:"tweet_id,omitempty" yaml:"tweet_id,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
	// Credentials is the sealed per-request credential blob the post is
	// published with. Empty means the process credentials.
	Credentials []byte `json:"-" yaml:"-"`
}

// PostStore persists scheduled posts.
type PostStore interface {
	CreatePost(ctx context.Context, p ScheduledPost) error
	GetPost(ctx context.Context, id string) (ScheduledPost, error)
	// ListPosts returns posts ordered by scheduled time. An empty status
	// matches every post.
	ListPosts(ctx context.Context, status PostStatus) ([]ScheduledPost, error)
	// DuePosts returns pending posts scheduled at or before now.
	DuePosts(ctx context.Context, now time.Time, limit int) ([]ScheduledPost, error)
	// TransitionPost replaces status, tweet id, error and updated time only
	// while the stored status is from. It returns ErrConflict when the
	// status has already moved on and ErrNotFound when there is no post.
	TransitionPost(ctx context.Context, p ScheduledPost, from PostStatus) error
}

// Store aggregates every persistence concern.
type Store interface {
	ReceiptStore
	PostStore
	Close() error
}
