package xapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GetUser looks up a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	q := url.Values{"user.fields": {userFieldsFull}}
	env, err := get[User](ctx, c, AuthApp, "/2/users/"+escape(id), q)
	if err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, notFound(env, "User", map[string]any{"user_id": id})
	}
	return &env.Data, nil
}

// GetUserByUsername looks up a user by screen name. A leading @ is ignored.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	q := url.Values{"user.fields": {userFieldsFull}}
	env, err := get[User](ctx, c, AuthApp, "/2/users/by/username/"+escape(username), q)
	if err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, notFound(env, "User", map[string]any{"screen_name": username})
	}
	return &env.Data, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	q := url.Values{"user.fields": {userFieldsFull}}
	env, err := get[User](ctx, c, AuthUser, "/2/users/me", q)
	if err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, notFound(env, "Authenticated user", nil)
	}
	c.meMu.Lock()
	c.meID = env.Data.ID
	c.meMu.Unlock()
	return &env.Data, nil
}

func (c *Client) users(ctx context.Context, a Auth, path string, p PageOpts, fields string) (Page[User], error) {
	q := p.values("pagination_token")
	q.Set("user.fields", fields)
	env, err := get[[]User](ctx, c, a, path, q)
	if err != nil {
		return Page[User]{}, err
	}
	return Page[User]{Items: env.Data, NextCursor: env.Meta.NextToken}, nil
}

// Followers lists the followers of a user.
func (c *Client) Followers(ctx context.Context, id string, p PageOpts) (Page[User], error) {
	return c.users(ctx, AuthApp, "/2/users/"+escape(id)+"/followers", p, userFieldsShort)
}

// Following lists the accounts a user follows.
func (c *Client) Following(ctx context.Context, id string, p PageOpts) (Page[User], error) {
	return c.users(ctx, AuthApp, "/2/users/"+escape(id)+"/following", p, userFieldsShort)
}

// Retweeters lists users who retweeted a tweet.
func (c *Client) Retweeters(ctx context.Context, tweetID string, p PageOpts) (Page[User], error) {
	return c.users(ctx, AuthApp, "/2/tweets/"+escape(tweetID)+"/retweeted_by", p, "id,name,username,profile_image_url")
}

// Blocked lists the accounts the authenticated user blocks.
func (c *Client) Blocked(ctx context.Context, p PageOpts) (Page[User], error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return Page[User]{}, err
	}
	return c.users(ctx, AuthUser, "/2/users/"+me+"/blocking", p, "id,name,username")
}

// Muted lists the accounts the authenticated user mutes.
func (c *Client) Muted(ctx context.Context, p PageOpts) (Page[User], error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return Page[User]{}, err
	}
	return c.users(ctx, AuthUser, "/2/users/"+me+"/muting", p, "id,name,username")
}

// ListMembers lists the members of a list.
func (c *Client) ListMembers(ctx context.Context, listID string, p PageOpts) (Page[User], error) {
	return c.users(ctx, AuthApp, "/2/lists/"+escape(listID)+"/members", p, "id,name,username,profile_image_url")
}

type target struct {
	TargetUserID string `json:"target_user_id"`
}

// Follow follows a user and reports the resulting state.
func (c *Client) Follow(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/following", target{userID}, "following")
}

// Unfollow stops following a user.
func (c *Client) Unfollow(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/following/"+escape(userID), nil, "following")
}

// Block blocks a user.
func (c *Client) Block(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/blocking", target{userID}, "blocking")
}

// Unblock unblocks a user.
func (c *Client) Unblock(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/blocking/"+escape(userID), nil, "blocking")
}

// Mute mutes a user.
func (c *Client) Mute(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodPost, "/2/users/"+me+"/muting", target{userID}, "muting")
}

// Unmute unmutes a user.
func (c *Client) Unmute(ctx context.Context, userID string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	return c.send(ctx, http.MethodDelete, "/2/users/"+me+"/muting/"+escape(userID), nil, "muting")
}
