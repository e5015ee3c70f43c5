package xapi

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var statusURL = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)

// IsArticleURL reports whether u points at an X article.
func IsArticleURL(u string) bool { return strings.Contains(u, "/i/article/") }

// TweetIDFromURL extracts the status id from a tweet URL.
func TweetIDFromURL(u string) (string, bool) {
	m := statusURL.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (c *Client) tweets(ctx context.Context, a Auth, path string, q url.Values) (Page[Tweet], error) {
	env, err := get[[]Tweet](ctx, c, a, path, q)
	if err != nil {
		return Page[Tweet]{}, err
	}
	return Page[Tweet]{Items: env.Data, Users: env.users(), NextCursor: env.Meta.NextToken}, nil
}

// GetTweet looks up one tweet. With expand set, the author is attached.
func (c *Client) GetTweet(ctx context.Context, id string, expand bool) (*Tweet, error) {
	q := url.Values{"tweet.fields": {"id,text,created_at,author_id,public_metrics,entities,conversation_id,in_reply_to_user_id,referenced_tweets"}}
	if expand {
		q.Set("expansions", "author_id,referenced_tweets.id")
		q.Set("user.fields", "id,name,username,profile_image_url")
	}
	env, err := get[Tweet](ctx, c, AuthApp, "/2/tweets/"+escape(id), q)
	if err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, notFound(env, "Tweet", map[string]any{"tweet_id": id})
	}
	t := env.Data
	if u, ok := env.users()[t.AuthorID]; ok {
		t.Author = &u
	}
	return &t, nil
}

// UserTweets lists tweets posted by a user. exclude may hold "replies" and
// "retweets".
func (c *Client) UserTweets(ctx context.Context, id string, p PageOpts, exclude ...string) (Page[Tweet], error) {
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,public_metrics,entities")
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	return c.tweets(ctx, AuthApp, "/2/users/"+escape(id)+"/tweets", q)
}

// LikedTweets lists tweets a user liked.
func (c *Client) LikedTweets(ctx context.Context, id string, p PageOpts) (Page[Tweet], error) {
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	return c.tweets(ctx, AuthApp, "/2/users/"+escape(id)+"/liked_tweets", q)
}

// Mentions lists tweets mentioning a user.
func (c *Client) Mentions(ctx context.Context, id string, p PageOpts) (Page[Tweet], error) {
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	return c.tweets(ctx, AuthApp, "/2/users/"+escape(id)+"/mentions", q)
}

// HomeTimeline lists the authenticated user's home timeline with authors
// expanded.
func (c *Client) HomeTimeline(ctx context.Context, p PageOpts, exclude ...string) (Page[Tweet], error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return Page[Tweet]{}, err
	}
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "id,name,username,profile_image_url")
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	return c.tweets(ctx, AuthUser, "/2/users/"+me+"/timelines/reverse_chronological", q)
}

// Bookmarks lists the authenticated user's bookmarks.
func (c *Client) Bookmarks(ctx context.Context, p PageOpts) (Page[Tweet], error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return Page[Tweet]{}, err
	}
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	return c.tweets(ctx, AuthUser, "/2/users/"+me+"/bookmarks", q)
}

// ListTweets lists tweets from a list timeline.
func (c *Client) ListTweets(ctx context.Context, listID string, p PageOpts) (Page[Tweet], error) {
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	return c.tweets(ctx, AuthApp, "/2/lists/"+escape(listID)+"/tweets", q)
}

// QuoteTweets lists tweets quoting a tweet with authors expanded.
func (c *Client) QuoteTweets(ctx context.Context, tweetID string, p PageOpts) (Page[Tweet], error) {
	q := p.values("pagination_token")
	q.Set("tweet.fields", "id,text,created_at,author_id,public_metrics")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "id,name,username")
	return c.tweets(ctx, AuthApp, "/2/tweets/"+escape(tweetID)+"/quote_tweets", q)
}

// SearchOpts are the recent search arguments.
type SearchOpts struct {
	Query     string
	Max       int
	SortOrder string
	Cursor    string
	Fields    string
}

// SearchRecent runs a recent search with authors expanded.
func (c *Client) SearchRecent(ctx context.Context, o SearchOpts) (Page[Tweet], error) {
	q := PageOpts{Max: o.Max, Cursor: o.Cursor}.values("next_token")
	q.Set("query", o.Query)
	if o.SortOrder != "" {
		q.Set("sort_order", o.SortOrder)
	}
	fields := o.Fields
	if fields == "" {
		fields = tweetFields
	}
	q.Set("tweet.fields", fields)
	q.Set("expansions", "author_id")
	q.Set("user.fields", "id,name,username,profile_image_url")
	return c.tweets(ctx, AuthApp, "/2/tweets/search/recent", q)
}

type tweetBody struct {
	Text  string `json:"text,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	QuoteTweetID string `json:"quote_tweet_id,omitempty"`
	Media        *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Poll *struct {
		Options         []string `json:"options"`
		DurationMinutes int      `json:"duration_minutes"`
	} `json:"poll,omitempty"`
}

// CreateTweet posts a tweet.
func (c *Client) CreateTweet(ctx context.Context, tr TweetRequest) (*PostedTweet, error) {
	body := tweetBody{Text: tr.Text, QuoteTweetID: tr.QuoteTweetID}
	if tr.ReplyTo != "" {
		body.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{tr.ReplyTo}
	}
	if len(tr.MediaIDs) > 0 {
		body.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{tr.MediaIDs}
	}
	if len(tr.PollOptions) > 0 {
		body.Poll = &struct {
			Options         []string `json:"options"`
			DurationMinutes int      `json:"duration_minutes"`
		}{tr.PollOptions, tr.PollMinutes}
	}
	r, err := c.jsonRequest(http.MethodPost, "/2/tweets", AuthUser, body)
	if err != nil {
		return nil, err
	}
	var env envelope[PostedTweet]
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteTweet deletes one of the authenticated user's tweets.
func (c *Client) DeleteTweet(ctx context.Context, id string) (bool, error) {
	return c.send(ctx, http.MethodDelete, "/2/tweets/"+escape(id), nil, "deleted")
}

// HideReply hides or unhides a reply.
func (c *Client) HideReply(ctx context.Context, id string, hidden bool) (bool, error) {
	return c.send(ctx, http.MethodPut, "/2/tweets/"+escape(id)+"/hidden", map[string]bool{"hidden": hidden}, "hidden")
}

type tweetTarget struct {
	TweetID string `json:"tweet_id"`
}

// Like likes a tweet.
func (c *Client) Like(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/likes", tweetTarget{tweetID}, "liked")
}

// Unlike removes a like.
func (c *Client) Unlike(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/likes/"+escape(tweetID), nil, "liked")
}

// Bookmark bookmarks a tweet.
func (c *Client) Bookmark(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/bookmarks", tweetTarget{tweetID}, "bookmarked")
}

// RemoveBookmark removes a bookmark.
func (c *Client) RemoveBookmark(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/bookmarks/"+escape(tweetID), nil, "bookmarked")
}

// Retweet retweets a tweet.
func (c *Client) Retweet(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/retweets", tweetTarget{tweetID}, "retweeted")
}

// Unretweet removes a retweet.
func (c *Client) Unretweet(ctx context.Context, tweetID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/retweets/"+escape(tweetID), nil, "retweeted")
}
