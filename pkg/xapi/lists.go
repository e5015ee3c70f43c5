package xapi

import (
	"context"
	"net/http"
	"net/url"
)

const listFields = "id,name,description,member_count,owner_id,private"

// CreateList creates a list owned by the authenticated user.
func (c *Client) CreateList(ctx context.Context, name, description string, private bool) (*List, error) {
	body := map[string]any{"name": name, "private": private}
	if description != "" {
		body["description"] = description
	}
	r, err := c.jsonRequest(http.MethodPost, "/2/lists", AuthUser, body)
	if err != nil {
		return nil, err
	}
	var env envelope[List]
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	env.Data.Private = private
	if env.Data.Description == "" {
		env.Data.Description = description
	}
	return &env.Data, nil
}

// DeleteList deletes a list.
func (c *Client) DeleteList(ctx context.Context, id string) (bool, error) {
	return c.send(ctx, http.MethodDelete, "/2/lists/"+escape(id), nil, "deleted")
}

// ListUpdate holds the optional fields of a list update.
type ListUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Private     *bool   `json:"private,omitempty"`
}

// UpdateList changes a list's metadata.
func (c *Client) UpdateList(ctx context.Context, id string, u ListUpdate) (bool, error) {
	return c.send(ctx, http.MethodPut, "/2/lists/"+escape(id), u, "updated")
}

// GetList looks up a list.
func (c *Client) GetList(ctx context.Context, id string) (*List, error) {
	env, err := get[List](ctx, c, AuthApp, "/2/lists/"+escape(id), url.Values{"list.fields": {listFields}})
	if err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, notFound(env, "List", map[string]any{"list_id": id})
	}
	return &env.Data, nil
}

// OwnedLists lists the lists owned by a user.
func (c *Client) OwnedLists(ctx context.Context, userID string, p PageOpts) (Page[List], error) {
	q := p.values("pagination_token")
	q.Set("list.fields", "id,name,description,member_count,private")
	env, err := get[[]List](ctx, c, AuthApp, "/2/users/"+escape(userID)+"/owned_lists", q)
	if err != nil {
		return Page[List]{}, err
	}
	return Page[List]{Items: env.Data, NextCursor: env.Meta.NextToken}, nil
}

// AddListMember adds a user to a list.
func (c *Client) AddListMember(ctx context.Context, listID, userID string) (bool, error) {
	return c.send(ctx, http.MethodPost, "/2/lists/"+escape(listID)+"/members", map[string]string{"user_id": userID}, "is_member")
}

// RemoveListMember removes a user from a list.
func (c *Client) RemoveListMember(ctx context.Context, listID, userID string) (bool, error) {
	return c.send(ctx, http.MethodDelete, "/2/lists/"+escape(listID)+"/members/"+escape(userID), nil, "is_member")
}

func (c *Client) meList(ctx context.Context, method, kind, listID, field string) (bool, error) {
	me, err := c.MeID(ctx)
	if err != nil {
		return false, err
	}
	path := "/2/users/" + me + "/" + kind
	var body any
	if method == http.MethodPost {
		body = map[string]string{"list_id": listID}
	} else {
		path += "/" + escape(listID)
	}
	return c.send(ctx, method, path, body, field)
}

// FollowList follows a list.
func (c *Client) FollowList(ctx context.Context, listID string) (bool, error) {
	return c.meList(ctx, http.MethodPost, "followed_lists", listID, "following")
}

// UnfollowList unfollows a list.
func (c *Client) UnfollowList(ctx context.Context, listID string) (bool, error) {
	return c.meList(ctx, http.MethodDelete, "followed_lists", listID, "following")
}

// PinList pins a list.
func (c *Client) PinList(ctx context.Context, listID string) (bool, error) {
	return c.meList(ctx, http.MethodPost, "pinned_lists", listID, "pinned")
}

// UnpinList unpins a list.
func (c *Client) UnpinList(ctx context.Context, listID string) (bool, error) {
	return c.meList(ctx, http.MethodDelete, "pinned_lists", listID, "pinned")
}
