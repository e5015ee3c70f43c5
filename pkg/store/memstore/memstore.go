// Package memstore is an in-process store used when no database is
// configured.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wilhg/xmcp/pkg/store"
)

// maxReceipts bounds the receipt ring.
const maxReceipts = 10_000

// Store keeps records in memory.
type Store struct {
	mu       sync.RWMutex
	receipts []store.Receipt
	posts    map[string]store.ScheduledPost
}

// New returns an empty Store.
func New() *Store {
	return &Store{posts: map[string]store.ScheduledPost{}}
}

func (s *Store) Close() error { return nil }

func (s *Store) AppendReceipt(_ context.Context, r store.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	if len(s.receipts) > maxReceipts {
		s.receipts = slices.Clone(s.receipts[len(s.receipts)-maxReceipts:])
	}
	return nil
}

func (s *Store) ListReceipts(_ context.Context, f store.ReceiptFilter) ([]store.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Receipt
	for i := len(s.receipts) - 1; i >= 0; i-- {
		r := s.receipts[i]
		if f.Tool != "" && r.Tool != f.Tool {
			continue
		}
		if f.Outcome != "" && r.Outcome != f.Outcome {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func clonePost(p store.ScheduledPost) store.ScheduledPost {
	p.MediaPaths = slices.Clone(p.MediaPaths)
	p.Credentials = slices.Clone(p.Credentials)
	return p
}

func (s *Store) CreatePost(_ context.Context, p store.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = clonePost(p)
	return nil
}

func (s *Store) GetPost(_ context.Context, id string) (store.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return store.ScheduledPost{}, store.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *Store) ListPosts(_ context.Context, status store.PostStatus) ([]store.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.ScheduledPost, 0, len(s.posts))
	for _, p := range s.posts {
		if status == "" || p.Status == status {
			out = append(out, clonePost(p))
		}
	}
	sortPosts(out)
	return out, nil
}

func (s *Store) DuePosts(_ context.Context, now time.Time, limit int) ([]store.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ScheduledPost
	for _, p := range s.posts {
		if p.Status == store.PostPending && !p.ScheduledAt.After(now) {
			out = append(out, clonePost(p))
		}
	}
	sortPosts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TransitionPost(_ context.Context, p store.ScheduledPost, from store.PostStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.posts[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != from {
		return store.ErrConflict
	}
	cur.Status = p.Status
	cur.TweetID = p.TweetID
	cur.Error = p.Error
	cur.UpdatedAt = p.UpdatedAt
	s.posts[p.ID] = cur
	return nil
}

func sortPosts(ps []store.ScheduledPost) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].ScheduledAt.Equal(ps[j].ScheduledAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].ScheduledAt.Before(ps[j].ScheduledAt)
	})
}
