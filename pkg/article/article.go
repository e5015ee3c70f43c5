// Package article fetches the rendered content of X articles.
package article

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/xapi"
)

// Extracted is what the browser pulls out of a page.
type Extracted struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Article is the result of Fetch.
type Article struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Content    string `json:"content"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	TokenCount int    `json:"token_count,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// Browser renders a page and extracts article content.
type Browser interface {
	Extract(ctx context.Context, url string) (Extracted, error)
}

// TweetLookup returns a tweet with its entities.
type TweetLookup func(ctx context.Context, id string) (*xapi.Tweet, error)

// Fetcher resolves tweet links to articles and extracts their content.
type Fetcher struct {
	browser Browser
	budget  *Budget
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBudget truncates content to a token budget.
func WithBudget(b *Budget) Option { return func(f *Fetcher) { f.budget = b } }

// WithTimeout bounds one fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.timeout = d } }

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher returns a Fetcher rendering pages with b.
func NewFetcher(b Browser, opts ...Option) *Fetcher {
	f := &Fetcher{browser: b, timeout: 60 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolve maps a tweet URL to the article it links to. Other URLs are
// returned unchanged. A tweet without an article link resolves to itself.
func Resolve(ctx context.Context, rawURL string, lookup TweetLookup) (string, error) {
	id, ok := xapi.TweetIDFromURL(rawURL)
	if !ok || xapi.IsArticleURL(rawURL) || lookup == nil {
		return rawURL, nil
	}
	tw, err := lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if u, ok := tw.ArticleURL(); ok {
		return u.ExpandedURL, nil
	}
	return rawURL, nil
}

// Fetch resolves rawURL and extracts the article content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, lookup TweetLookup) (*Article, error) {
	if available, ok := f.browser.(interface{ Available() error }); ok {
		if err := available.Available(); err != nil {
			return nil, err
		}
	}
	target, err := Resolve(ctx, rawURL, lookup)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(target, "http://") {
		target = "https://" + strings.TrimPrefix(target, "http://")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	ex, err := f.browser.Extract(ctx, target)
	if err != nil {
		f.logger.ErrorContext(ctx, "article fetch failed", slog.String("url", target), slog.Any("error", err))
		if ce := errmodel.From(err); ce.Type == errmodel.TypeDependencyMissing || ce.Type == errmodel.TypeArticleFetchFailed {
			return nil, ce
		}
		return nil, errmodel.ArticleFetchFailed(target, err)
	}
	a := &Article{
		Title:   ex.Title,
		Author:  ex.Author,
		Content: ex.Content,
		URL:     ex.URL,
		Source:  "x_article",
	}
	if a.URL == "" {
		a.URL = target
	}
	if f.budget != nil {
		a.Content, a.TokenCount, a.Truncated = f.budget.Apply(a.Content)
	}
	return a, nil
}
