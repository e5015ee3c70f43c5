package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/article"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

const (
	noteFollowersYouKnow = "Simulated - full mutual follower check requires comparing follower lists"
	noteHighlights       = "Simulated - returns user's recent tweets"
)

func (t *Toolset) research() []gate.Operation {
	userByID := func(ctx context.Context, c *xapi.Client, p params) (any, error) {
		return c.GetUser(ctx, p.str("user_id"))
	}
	return []gate.Operation{
		{
			Name:        "search_twitter",
			Description: "Search Twitter with a query, includes engagement metrics and author info",
			ReadOnly:    true,
			InputSchema: object([]string{"query"}, map[string]*jsonschema.Schema{
				"query":   ident("Search query"),
				"product": {Type: "string", Description: "Top for relevancy, Latest for recency", Enum: []any{"Top", "Latest"}},
				"count":   integer("Number of results (10 to 100)", 1),
				"cursor":  cursorProp(),
			}),
			Handler: t.call(searchTwitter),
		},
		{
			Name:        "search_articles",
			Description: "Search for tweets that contain X articles on a topic",
			ReadOnly:    true,
			InputSchema: object([]string{"query"}, map[string]*jsonschema.Schema{
				"query":  ident("Search query"),
				"count":  integer("Maximum number of articles (max 100)", 1),
				"cursor": cursorProp(),
			}),
			Handler: t.call(searchArticles),
		},
		{
			Name:        "get_trends",
			Description: "Retrieves trending topics on Twitter",
			ReadOnly:    true,
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"woeid": integer("Yahoo! Where On Earth ID, 1 for worldwide", 1),
				"count": integer("Number of trends", 1),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				woeid := p.intOr("woeid", 1)
				trends, err := c.Trends(ctx, woeid)
				if err != nil {
					return nil, err
				}
				if n := p.intOr("count", 50); n > 0 && len(trends) > n {
					trends = trends[:n]
				}
				return &Trends{WOEID: woeid, Trends: nonNil(trends)}, nil
			}),
		},
		{
			Name:        "get_article",
			Description: "Fetch the full content of an X article from a tweet or article URL",
			ReadOnly:    true,
			InputSchema: object([]string{"url"}, map[string]*jsonschema.Schema{
				"url": ident("Tweet URL linking to an article, or the article URL itself"),
			}),
			Handler: local(t.getArticle),
		},
		{
			Name:        "get_user_profile",
			Description: "Get detailed profile information for a user",
			ReadOnly:    true,
			InputSchema: single("user_id", "User ID"),
			Handler:     t.call(userByID),
		},
		{
			Name:        "get_user_by_screen_name",
			Description: "Fetches a user by screen name",
			ReadOnly:    true,
			InputSchema: single("screen_name", "Screen name without the @"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.GetUserByUsername(ctx, strings.TrimPrefix(p.str("screen_name"), "@"))
			}),
		},
		{
			Name:        "get_user_by_id",
			Description: "Fetches a user by ID",
			ReadOnly:    true,
			InputSchema: single("user_id", "User ID"),
			Handler:     t.call(userByID),
		},
		{
			Name:        "get_user_followers",
			Description: "Retrieves a list of followers for a given user",
			Category:    ratelimit.FollowActions,
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Followers(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
		{
			Name:        "get_user_following",
			Description: "Retrieves users the given user is following",
			Category:    ratelimit.FollowActions,
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Following(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
		{
			Name:        "get_user_followers_you_know",
			Description: "Retrieves common followers between you and a user",
			Category:    ratelimit.FollowActions,
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				n := p.count(maxPage)
				page, err := c.Followers(ctx, p.str("user_id"), xapi.PageOpts{Max: n, Cursor: p.str("cursor")})
				if err != nil {
					return nil, err
				}
				users := nonNil(page.Items)
				if len(users) > n {
					users = users[:n]
				}
				return &UserPage{Users: users, NextCursor: next(page.NextCursor), Note: noteFollowersYouKnow}, nil
			}),
		},
		{
			Name:        "get_user_subscriptions",
			Description: "Retrieves users a user is subscribed to",
			Category:    ratelimit.FollowActions,
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Following(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
		{
			Name:        "get_tweet_details",
			Description: "Get detailed information about a specific tweet",
			ReadOnly:    true,
			InputSchema: single("tweet_id", "Tweet ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.GetTweet(ctx, p.str("tweet_id"), true)
			}),
		},
		{
			Name:        "get_user_tweets",
			Description: "Get tweets posted by a specific user",
			ReadOnly:    true,
			InputSchema: object([]string{"user_id"}, map[string]*jsonschema.Schema{
				"user_id":          ident("User ID"),
				"count":            countProp(),
				"cursor":           cursorProp(),
				"exclude_replies":  boolean("Leave out replies"),
				"exclude_retweets": boolean("Leave out retweets"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				var exclude []string
				if p.boolean("exclude_replies") {
					exclude = append(exclude, "replies")
				}
				if p.boolean("exclude_retweets") {
					exclude = append(exclude, "retweets")
				}
				page, err := c.UserTweets(ctx, p.str("user_id"), pageOpts(p), exclude...)
				if err != nil {
					return nil, err
				}
				return tweetPage(page), nil
			}),
		},
		{
			Name:        "get_liked_tweets",
			Description: "Get tweets liked by a specific user",
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.LikedTweets(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return tweetPage(page), nil
			}),
		},
		{
			Name:        "get_timeline",
			Description: "Get tweets from your home timeline (For You)",
			ReadOnly:    true,
			InputSchema: paged("", ""),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.HomeTimeline(ctx, pageOpts(p))
				if err != nil {
					return nil, err
				}
				return &TweetPage{Tweets: withAuthors(page), NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "get_latest_timeline",
			Description: "Get tweets from your home timeline (Following)",
			ReadOnly:    true,
			InputSchema: object(nil, map[string]*jsonschema.Schema{"count": countProp()}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.HomeTimeline(ctx, xapi.PageOpts{Max: p.count(maxPage)}, "replies", "retweets")
				if err != nil {
					return nil, err
				}
				return &TweetPage{Tweets: withAuthors(page), NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "get_user_mentions",
			Description: "Get tweets mentioning a specific user",
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Mentions(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return tweetPage(page), nil
			}),
		},
		{
			Name:        "get_highlights_tweets",
			Description: "Retrieves highlighted tweets from a user's timeline",
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.UserTweets(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				res := tweetPage(page)
				res.Note = noteHighlights
				return res, nil
			}),
		},
	}
}

func pageOpts(p params) xapi.PageOpts {
	return xapi.PageOpts{Max: p.count(maxPage), Cursor: p.str("cursor")}
}

func searchTwitter(ctx context.Context, c *xapi.Client, p params) (any, error) {
	order := "recency"
	if product := p.str("product"); product == "" || product == "Top" {
		order = "relevancy"
	}
	page, err := c.SearchRecent(ctx, xapi.SearchOpts{
		Query:     p.raw("query"),
		Max:       clamp(p.intOr("count", maxPage), 10, maxPage),
		SortOrder: order,
		Cursor:    p.str("cursor"),
	})
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(page.Items))
	for _, tw := range page.Items {
		h := SearchHit{
			ID:         tw.ID,
			Text:       tw.Text,
			CreatedAt:  tw.CreatedAt,
			AuthorID:   tw.AuthorID,
			HasArticle: hasArticle(tw),
		}
		if u, ok := page.Users[tw.AuthorID]; ok {
			h.AuthorName, h.AuthorUsername = u.Name, u.Username
		}
		if m := tw.PublicMetrics; m != nil {
			h.Likes, h.Retweets, h.Replies, h.Quotes = m.LikeCount, m.RetweetCount, m.ReplyCount, m.QuoteCount
		}
		hits = append(hits, h)
	}
	return &SearchResult{Tweets: hits, NextCursor: next(page.NextCursor)}, nil
}

func hasArticle(tw xapi.Tweet) bool {
	if tw.Entities == nil {
		return false
	}
	for _, u := range tw.Entities.URLs {
		if xapi.IsArticleURL(u.ExpandedURL) || xapi.IsArticleURL(u.URL) {
			return true
		}
	}
	return false
}

func searchArticles(ctx context.Context, c *xapi.Client, p params) (any, error) {
	want := clamp(p.intOr("count", 50), 1, maxPage)
	page, err := c.SearchRecent(ctx, xapi.SearchOpts{
		Query:     fmt.Sprintf("%s has:links", p.raw("query")),
		Max:       clamp(want*2, 10, maxPage),
		SortOrder: "relevancy",
		Cursor:    p.str("cursor"),
	})
	if err != nil {
		return nil, err
	}
	hits := []ArticleHit{}
	for _, tw := range page.Items {
		link, ok := tw.ArticleURL()
		if !ok {
			continue
		}
		h := ArticleHit{
			TweetID:      tw.ID,
			Text:         tw.Text,
			CreatedAt:    tw.CreatedAt,
			AuthorID:     tw.AuthorID,
			ArticleTitle: link.Title,
			ArticleURL:   link.ExpandedURL,
		}
		if u, ok := page.Users[tw.AuthorID]; ok {
			h.AuthorName, h.AuthorUsername = u.Name, u.Username
		}
		if m := tw.PublicMetrics; m != nil {
			h.Likes, h.Retweets = m.LikeCount, m.RetweetCount
		}
		hits = append(hits, h)
		if len(hits) >= want {
			break
		}
	}
	return &ArticleSearch{Articles: hits, Count: len(hits), NextCursor: next(page.NextCursor)}, nil
}

func (t *Toolset) getArticle(ctx context.Context, p params) (any, error) {
	if t.articles == nil {
		return nil, errmodel.DependencyMissing("chromium", "Article fetching is not configured", "https://www.chromium.org/getting-involved/download-chromium/")
	}
	lookup := func(ctx context.Context, id string) (*xapi.Tweet, error) {
		c, err := t.clients.Client(ctx)
		if err != nil {
			return nil, err
		}
		return c.GetTweet(ctx, id, false)
	}
	return t.articles.Fetch(ctx, p.str("url"), article.TweetLookup(lookup))
}
