package tools

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/schedule"
	"github.com/wilhg/xmcp/pkg/store"
	"github.com/wilhg/xmcp/pkg/xapi"
)

const (
	minPollMinutes = 5
	maxPollMinutes = 7 * 24 * 60
)

func (t *Toolset) publish() []gate.Operation {
	return []gate.Operation{
		{
			Name:             "post_tweet",
			Description:      "Post a tweet with optional media, reply, and tags",
			Category:         ratelimit.TweetActions,
			ContentProducing: true,
			InputSchema: object([]string{"text"}, map[string]*jsonschema.Schema{
				"text":        ident("Tweet text"),
				"media_paths": strList("Local paths of images or videos to attach"),
				"reply_to":    str("ID of the tweet to reply to"),
				"tags":        strList("Hashtags to append, without the #"),
			}),
			Handler: t.call(postTweet),
		},
		{
			Name:        "delete_tweet",
			Description: "Delete a tweet by its ID",
			Category:    ratelimit.TweetActions,
			Destructive: true,
			InputSchema: single("tweet_id", "Tweet ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				id := p.str("tweet_id")
				ok, err := c.DeleteTweet(ctx, id)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id, "deleted": ok}, nil
			}),
		},
		{
			Name:             "quote_tweet",
			Description:      "Quote tweet with your comment",
			Category:         ratelimit.TweetActions,
			ContentProducing: true,
			InputSchema: object([]string{"text", "quoted_tweet_id"}, map[string]*jsonschema.Schema{
				"text":            ident("Comment text"),
				"quoted_tweet_id": ident("ID of the tweet to quote"),
				"media_paths":     strList("Local paths of media to attach"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				ids, err := c.UploadAll(ctx, p.strs("media_paths"))
				if err != nil {
					return nil, err
				}
				return c.CreateTweet(ctx, xapi.TweetRequest{
					Text:         p.raw("text"),
					QuoteTweetID: p.str("quoted_tweet_id"),
					MediaIDs:     ids,
				})
			}),
		},
		{
			Name:             "create_thread",
			Description:      "Post a thread of multiple tweets",
			Category:         ratelimit.TweetActions,
			ContentProducing: true,
			InputSchema: object([]string{"tweets"}, map[string]*jsonschema.Schema{
				"tweets": {Type: "array", Description: "Tweet texts in thread order", MinItems: ptr(1),
					Items: &jsonschema.Schema{Type: "string", MinLength: ptr(1)}},
				"media_paths_per_tweet": {Type: "array", Description: "Media paths for each tweet, by position",
					Items: &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}},
			}),
			Handler: t.call(createThread),
		},
		{
			Name:             "create_poll_tweet",
			Description:      "Create a tweet with a poll",
			Category:         ratelimit.TweetActions,
			ContentProducing: true,
			InputSchema: object([]string{"text", "choices", "duration_minutes"}, map[string]*jsonschema.Schema{
				"text": ident("Poll question"),
				"choices": {Type: "array", Description: "Two to four poll options", MinItems: ptr(2), MaxItems: ptr(4),
					Items: &jsonschema.Schema{Type: "string", MinLength: ptr(1)}},
				"duration_minutes": {Type: "integer", Description: "Poll duration, clamped to 5 minutes through 7 days"},
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.CreateTweet(ctx, xapi.TweetRequest{
					Text:        p.raw("text"),
					PollOptions: p.strs("choices"),
					PollMinutes: clamp(p.intOr("duration_minutes", minPollMinutes), minPollMinutes, maxPollMinutes),
				})
			}),
		},
		{
			Name:        "vote_on_poll",
			Description: "Vote on a poll (not supported by API)",
			InputSchema: object([]string{"tweet_id", "choice"}, map[string]*jsonschema.Schema{
				"tweet_id": ident("Poll tweet ID"),
				"choice":   ident("Choice to vote for"),
			}),
			Handler: local(func(_ context.Context, p params) (any, error) {
				return map[string]any{
					"tweet_id": p.str("tweet_id"),
					"choice":   p.str("choice"),
					"status":   "not_supported",
					"message":  "Twitter API v2 does not support programmatic poll voting",
				}, nil
			}),
		},
		{
			Name:             "schedule_tweet",
			Description:      "Schedule a tweet to be posted at a later time",
			Category:         ratelimit.TweetActions,
			ContentProducing: true,
			InputSchema: object([]string{"text", "scheduled_time"}, map[string]*jsonschema.Schema{
				"text":           ident("Tweet text"),
				"scheduled_time": {Type: "string", Description: "RFC 3339 time to publish at, e.g. 2026-01-02T15:04:05Z", MinLength: ptr(1)},
				"reply_to":       str("ID of the tweet to reply to"),
				"media_paths":    strList("Local paths of media to attach at publish time"),
			}),
			Handler: local(t.scheduleTweet),
		},
		{
			Name:        "get_scheduled_tweets",
			Description: "List scheduled tweets",
			ReadOnly:    true,
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"status": {Type: "string", Description: "Only posts in this state",
					Enum: []any{string(store.PostPending), string(store.PostPublishing), string(store.PostPublished), string(store.PostFailed), string(store.PostCancelled)}},
			}),
			Handler: local(func(ctx context.Context, p params) (any, error) {
				s, err := t.scheduler()
				if err != nil {
					return nil, err
				}
				posts, err := s.List(ctx, store.PostStatus(p.str("status")))
				if err != nil {
					return nil, err
				}
				return map[string]any{"scheduled_tweets": nonNil(posts), "count": len(posts)}, nil
			}),
		},
		{
			Name:        "delete_scheduled_tweet",
			Description: "Cancel a scheduled tweet",
			Destructive: true,
			InputSchema: single("schedule_id", "Schedule ID returned by schedule_tweet"),
			Handler: local(func(ctx context.Context, p params) (any, error) {
				s, err := t.scheduler()
				if err != nil {
					return nil, err
				}
				post, err := s.Cancel(ctx, p.str("schedule_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"schedule_id": post.ID, "status": string(post.Status), "deleted": true}, nil
			}),
		},
	}
}

func postTweet(ctx context.Context, c *xapi.Client, p params) (any, error) {
	text := p.raw("text")
	for _, tag := range p.strs("tags") {
		text += " #" + tag
	}
	ids, err := c.UploadAll(ctx, p.strs("media_paths"))
	if err != nil {
		return nil, err
	}
	return c.CreateTweet(ctx, xapi.TweetRequest{Text: text, ReplyTo: p.str("reply_to"), MediaIDs: ids})
}

func createThread(ctx context.Context, c *xapi.Client, p params) (any, error) {
	texts := p.strs("tweets")
	media := p.nested("media_paths_per_tweet")
	posted := make([]xapi.PostedTweet, 0, len(texts))
	replyTo := ""
	for i, text := range texts {
		var ids []string
		if i < len(media) && len(media[i]) > 0 {
			var err error
			if ids, err = c.UploadAll(ctx, media[i]); err != nil {
				return nil, err
			}
		}
		tw, err := c.CreateTweet(ctx, xapi.TweetRequest{Text: text, ReplyTo: replyTo, MediaIDs: ids})
		if err != nil {
			if len(posted) > 0 {
				ce := errmodel.From(err)
				if ce.Details == nil {
					ce.Details = map[string]any{}
				}
				ce.Details["posted_count"] = len(posted)
				ce.Details["first_tweet_id"] = posted[0].ID
				return nil, ce
			}
			return nil, err
		}
		posted = append(posted, *tw)
		replyTo = tw.ID
	}
	th := &Thread{ThreadLength: len(posted), Tweets: posted}
	if len(posted) > 0 {
		th.FirstTweetID = &posted[0].ID
	}
	return th, nil
}

func (t *Toolset) scheduler() (schedule.Scheduler, error) {
	if t.schedules == nil {
		return nil, errmodel.Configuration("Scheduled posts are not configured", nil)
	}
	return t.schedules, nil
}

func (t *Toolset) scheduleTweet(ctx context.Context, p params) (any, error) {
	s, err := t.scheduler()
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339, p.str("scheduled_time"))
	if err != nil {
		return nil, errmodel.InvalidInput("scheduled_time must be an RFC 3339 timestamp",
			map[string]any{"scheduled_time": p.str("scheduled_time")})
	}
	return s.Schedule(ctx, schedule.Request{
		Text:       p.raw("text"),
		ReplyTo:    p.str("reply_to"),
		MediaPaths: p.strs("media_paths"),
		At:         at,
	})
}
