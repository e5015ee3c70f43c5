package tools

import (
	"context"

	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

// toggle builds the handler of a write returning one boolean flag about a
// single target. fn is a client method expression such as (*xapi.Client).Like.
func toggle(idKey, flag string, fn func(*xapi.Client, context.Context, string) (bool, error)) clientFunc {
	return func(ctx context.Context, c *xapi.Client, p params) (any, error) {
		id := p.str(idKey)
		v, err := fn(c, ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{idKey: id, flag: v}, nil
	}
}

func (t *Toolset) engage() []gate.Operation {
	tweetID := single("tweet_id", "Tweet ID")
	return []gate.Operation{
		{
			Name:        "favorite_tweet",
			Description: "Like a tweet",
			Category:    ratelimit.LikeActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "liked", (*xapi.Client).Like)),
		},
		{
			Name:        "unfavorite_tweet",
			Description: "Remove a like from a tweet",
			Category:    ratelimit.LikeActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "liked", (*xapi.Client).Unlike)),
		},
		{
			Name:        "bookmark_tweet",
			Description: "Bookmark a tweet",
			Category:    ratelimit.TweetActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "bookmarked", (*xapi.Client).Bookmark)),
		},
		{
			Name:        "delete_bookmark",
			Description: "Remove a bookmark",
			Category:    ratelimit.TweetActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "bookmarked", (*xapi.Client).RemoveBookmark)),
		},
		{
			Name:        "delete_all_bookmarks",
			Description: "Delete all bookmarks",
			Category:    ratelimit.TweetActions,
			Destructive: true,
			InputSchema: object(nil, nil),
			Handler:     t.call(deleteAllBookmarks),
		},
		{
			Name:        "get_bookmarks",
			Description: "Get your bookmarked tweets",
			ReadOnly:    true,
			InputSchema: paged("", ""),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Bookmarks(ctx, pageOpts(p))
				if err != nil {
					return nil, err
				}
				return tweetPage(page), nil
			}),
		},
		{
			Name:        "retweet",
			Description: "Retweet a tweet",
			Category:    ratelimit.TweetActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "retweeted", (*xapi.Client).Retweet)),
		},
		{
			Name:        "unretweet",
			Description: "Remove a retweet",
			Category:    ratelimit.TweetActions,
			InputSchema: tweetID,
			Handler:     t.call(toggle("tweet_id", "retweeted", (*xapi.Client).Unretweet)),
		},
		{
			Name:        "get_retweets",
			Description: "Get users who retweeted a tweet",
			ReadOnly:    true,
			InputSchema: paged("tweet_id", "Tweet ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Retweeters(ctx, p.str("tweet_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
	}
}

func deleteAllBookmarks(ctx context.Context, c *xapi.Client, _ params) (any, error) {
	deleted := 0
	cursor := ""
	for {
		page, err := c.Bookmarks(ctx, xapi.PageOpts{Max: maxPage, Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, tw := range page.Items {
			if _, err := c.RemoveBookmark(ctx, tw.ID); err != nil {
				return nil, err
			}
			deleted++
		}
		cursor = page.NextCursor
		if cursor == "" || len(page.Items) == 0 {
			break
		}
	}
	return map[string]any{"status": "completed", "deleted_count": deleted}, nil
}
