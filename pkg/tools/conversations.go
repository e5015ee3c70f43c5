package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

func (t *Toolset) conversations() []gate.Operation {
	return []gate.Operation{
		{
			Name:        "get_conversation",
			Description: "Get full conversation/thread for a tweet",
			ReadOnly:    true,
			InputSchema: object([]string{"tweet_id"}, map[string]*jsonschema.Schema{
				"tweet_id": ident("ID of any tweet in the conversation"),
				"count":    countProp(),
			}),
			Handler: t.call(getConversation),
		},
		{
			Name:        "get_replies",
			Description: "Get replies to a specific tweet",
			ReadOnly:    true,
			InputSchema: paged("tweet_id", "Tweet ID"),
			Handler:     t.call(getReplies),
		},
		{
			Name:        "get_quote_tweets",
			Description: "Get tweets that quote a specific tweet",
			ReadOnly:    true,
			InputSchema: paged("tweet_id", "Tweet ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				id := p.str("tweet_id")
				page, err := c.QuoteTweets(ctx, id, pageOpts(p))
				if err != nil {
					return nil, err
				}
				quotes := withAuthors(page)
				return &Quotes{TweetID: id, QuoteCount: len(quotes), Quotes: quotes, NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "hide_reply",
			Description: "Hide a reply to your tweet",
			Category:    ratelimit.TweetActions,
			InputSchema: single("tweet_id", "Reply tweet ID"),
			Handler:     t.call(toggle("tweet_id", "hidden", hide(true))),
		},
		{
			Name:        "unhide_reply",
			Description: "Unhide a previously hidden reply",
			Category:    ratelimit.TweetActions,
			InputSchema: single("tweet_id", "Reply tweet ID"),
			Handler:     t.call(toggle("tweet_id", "hidden", hide(false))),
		},
	}
}

func hide(hidden bool) func(*xapi.Client, context.Context, string) (bool, error) {
	return func(c *xapi.Client, ctx context.Context, id string) (bool, error) {
		return c.HideReply(ctx, id, hidden)
	}
}

// conversationOf returns the conversation id of a tweet.
func conversationOf(ctx context.Context, c *xapi.Client, tweetID string) (string, error) {
	tw, err := c.GetTweet(ctx, tweetID, false)
	if err != nil {
		return "", err
	}
	if tw.ConversationID == "" {
		return "", errmodel.NotFound("Tweet not found", map[string]any{"tweet_id": tweetID})
	}
	return tw.ConversationID, nil
}

// searchMax is the smallest page recent search accepts that still covers n.
func searchMax(n int) int { return clamp(n, 10, maxPage) }

func getConversation(ctx context.Context, c *xapi.Client, p params) (any, error) {
	convID, err := conversationOf(ctx, c, p.str("tweet_id"))
	if err != nil {
		return nil, err
	}
	n := p.count(maxPage)
	page, err := c.SearchRecent(ctx, xapi.SearchOpts{
		Query:  "conversation_id:" + convID,
		Max:    searchMax(n),
		Fields: "id,text,created_at,author_id,in_reply_to_user_id,public_metrics",
	})
	if err != nil {
		return nil, err
	}
	tweets := withAuthors(page)
	if len(tweets) > n {
		tweets = tweets[:n]
	}
	return &Conversation{ConversationID: convID, TweetCount: len(tweets), Tweets: tweets}, nil
}

func getReplies(ctx context.Context, c *xapi.Client, p params) (any, error) {
	id := p.str("tweet_id")
	convID, err := conversationOf(ctx, c, id)
	if err != nil {
		return nil, err
	}
	n := p.count(maxPage)
	page, err := c.SearchRecent(ctx, xapi.SearchOpts{
		Query:  "conversation_id:" + convID + " is:reply",
		Max:    searchMax(n),
		Cursor: p.str("cursor"),
		Fields: "id,text,created_at,author_id,public_metrics",
	})
	if err != nil {
		return nil, err
	}
	replies := withAuthors(page)
	if len(replies) > n {
		replies = replies[:n]
	}
	return &Replies{TweetID: id, ReplyCount: len(replies), Replies: replies, NextCursor: next(page.NextCursor)}, nil
}
