package article

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/xapi"
)

type fakeBrowser struct {
	got string
	ex  Extracted
	err error
}

func (b *fakeBrowser) Extract(_ context.Context, url string) (Extracted, error) {
	b.got = url
	return b.ex, b.err
}

func lookupWithArticle(link string) TweetLookup {
	return func(_ context.Context, id string) (*xapi.Tweet, error) {
		return &xapi.Tweet{ID: id, Entities: &xapi.Entities{URLs: []xapi.URLEntity{
			{ExpandedURL: "https://example.com/other"},
			{ExpandedURL: link},
		}}}, nil
	}
}

func TestFetchResolvesTweetToArticle(t *testing.T) {
	b := &fakeBrowser{ex: Extracted{Title: "T", Author: "A", Content: "body"}}
	f := NewFetcher(b)
	a, err := f.Fetch(context.Background(), "https://x.com/someone/status/123", lookupWithArticle("http://x.com/i/article/9"))
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/i/article/9", b.got)
	assert.Equal(t, "x_article", a.Source)
	assert.Equal(t, "https://x.com/i/article/9", a.URL)
	assert.Equal(t, "body", a.Content)
}

func TestArticleURLIsNotResolved(t *testing.T) {
	called := false
	lookup := func(context.Context, string) (*xapi.Tweet, error) {
		called = true
		return nil, errors.New("unexpected")
	}
	got, err := Resolve(context.Background(), "https://x.com/i/article/1", lookup)
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/i/article/1", got)
	assert.False(t, called)
}

func TestLookupFailurePropagates(t *testing.T) {
	f := NewFetcher(&fakeBrowser{})
	_, err := f.Fetch(context.Background(), "https://twitter.com/a/status/5", func(context.Context, string) (*xapi.Tweet, error) {
		return nil, errmodel.NotFound("Tweet not found", nil)
	})
	assert.True(t, errmodel.IsType(err, errmodel.TypeNotFound))
}

func TestBrowserFailureIsArticleFetchFailed(t *testing.T) {
	f := NewFetcher(&fakeBrowser{err: errors.New("net::ERR_NAME_NOT_RESOLVED")})
	_, err := f.Fetch(context.Background(), "https://x.com/i/article/1", nil)
	ce := errmodel.From(err)
	assert.Equal(t, errmodel.TypeArticleFetchFailed, ce.Type)
	assert.Equal(t, 502, ce.Status)
	assert.Equal(t, "https://x.com/i/article/1", ce.Details["url"])
	assert.Contains(t, ce.Details["error"], "ERR_NAME_NOT_RESOLVED")
}

func TestMissingChromeIsDependencyMissing(t *testing.T) {
	c := NewChrome("")
	c.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	f := NewFetcher(c)
	_, err := f.Fetch(context.Background(), "https://x.com/i/article/1", nil)
	ce := errmodel.From(err)
	assert.Equal(t, errmodel.TypeDependencyMissing, ce.Type)
	assert.Equal(t, 501, ce.Status)
	assert.Equal(t, "chromium", ce.Details["dependency"])

	assert.NoError(t, NewChrome("ws://127.0.0.1:9222").Available())
}

func TestBudgetTruncates(t *testing.T) {
	b, err := NewBudget("gpt-4", 5)
	if err != nil {
		t.Skipf("tiktoken not available for model: %v", err)
	}
	long := strings.Repeat("hello world ", 50)
	out, n, truncated := b.Apply(long)
	assert.True(t, truncated)
	assert.Equal(t, 5, n)
	assert.Less(t, len(out), len(long))

	out, n, truncated = b.Apply("hi")
	assert.False(t, truncated)
	assert.Equal(t, "hi", out)
	assert.Positive(t, n)
}
