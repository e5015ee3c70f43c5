// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/xmcp/pkg/store"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// Run exercises s against the store contract. s must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	t.Run("Receipts", func(t *testing.T) { receipts(t, s) })
	t.Run("Posts", func(t *testing.T) { posts(t, s) })
}

func receipts(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, r := range []store.Receipt{
		{ID: "r1", Tool: "search_twitter", Group: "research", Profile: "researcher", Outcome: "ok", DurationMS: 12},
		{ID: "r2", Tool: "post_tweet", Group: "publish", Category: "tweet_actions", Profile: "researcher", Outcome: "permission_denied", Status: 403},
		{ID: "r3", Tool: "search_twitter", Group: "research", Profile: "researcher", Outcome: "ok", DurationMS: 7},
	} {
		r.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.AppendReceipt(ctx, r))
	}

	all, err := s.ListReceipts(ctx, store.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "tweet_actions", all[1].Category)
	assert.Equal(t, 403, all[1].Status)
	assert.True(t, all[2].CreatedAt.Equal(base))

	byTool, err := s.ListReceipts(ctx, store.ReceiptFilter{Tool: "search_twitter", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byTool, 1)
	assert.Equal(t, "r3", byTool[0].ID)
	assert.EqualValues(t, 7, byTool[0].DurationMS)

	denied, err := s.ListReceipts(ctx, store.ReceiptFilter{Outcome: "permission_denied"})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "post_tweet", denied[0].Tool)
}

func posts(t *testing.T, s store.Store) {
	ctx := context.Background()
	mk := func(id string, at time.Time) store.ScheduledPost {
		return store.ScheduledPost{
			ID: id, Text: "hello " + id, ScheduledAt: at, Status: store.PostPending,
			CreatedAt: base, UpdatedAt: base,
		}
	}
	late := mk("p-late", base.Add(2*time.Hour))
	early := mk("p-early", base.Add(time.Hour))
	early.MediaPaths = []string{"/tmp/a.png", "/tmp/b.png"}
	early.ReplyTo = "123"
	early.Credentials = []byte{0x01, 0x02, 0xff}
	require.NoError(t, s.CreatePost(ctx, late))
	require.NoError(t, s.CreatePost(ctx, early))

	got, err := s.GetPost(ctx, "p-early")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a.png", "/tmp/b.png"}, got.MediaPaths)
	assert.Equal(t, "123", got.ReplyTo)
	assert.Equal(t, []byte{0x01, 0x02, 0xff}, got.Credentials)
	assert.True(t, got.ScheduledAt.Equal(early.ScheduledAt))

	_, err = s.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListPosts(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p-early", list[0].ID)

	due, err := s.DuePosts(ctx, base.Add(90*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "p-early", due[0].ID)

	claimed := got
	claimed.Status = store.PostPublishing
	claimed.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.TransitionPost(ctx, claimed, store.PostPending))
	// a second claim or a cancel loses once the post left pending
	assert.ErrorIs(t, s.TransitionPost(ctx, claimed, store.PostPending), store.ErrConflict)
	cancelled := got
	cancelled.Status = store.PostCancelled
	assert.ErrorIs(t, s.TransitionPost(ctx, cancelled, store.PostPending), store.ErrConflict)

	got.Status = store.PostPublished
	got.TweetID = "999"
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.TransitionPost(ctx, got, store.PostPublishing))

	due, err = s.DuePosts(ctx, base.Add(3*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "p-late", due[0].ID)

	published, err := s.ListPosts(ctx, store.PostPublished)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "999", published[0].TweetID)
	assert.Equal(t, "hello p-early", published[0].Text)

	assert.Empty(t, published[0].Error)

	late.Status = store.PostCancelled
	require.NoError(t, s.TransitionPost(ctx, late, store.PostPending))
	cancelledPosts, err := s.ListPosts(ctx, store.PostCancelled)
	require.NoError(t, err)
	require.Len(t, cancelledPosts, 1)
	assert.Empty(t, cancelledPosts[0].Credentials)

	assert.ErrorIs(t, s.TransitionPost(ctx, store.ScheduledPost{ID: "missing", Status: store.PostCancelled}, store.PostPending), store.ErrNotFound)
}
