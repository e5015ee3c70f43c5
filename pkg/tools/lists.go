package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

func (t *Toolset) lists() []gate.Operation {
	listID := single("list_id", "List ID")
	member := object([]string{"list_id", "user_id"}, map[string]*jsonschema.Schema{
		"list_id": ident("List ID"),
		"user_id": ident("User ID"),
	})
	mine := func(name, desc, flag string, fn func(*xapi.Client, context.Context, string) (bool, error)) gate.Operation {
		return gate.Operation{
			Name:        name,
			Description: desc,
			Category:    ratelimit.ListActions,
			InputSchema: listID,
			Handler:     t.call(toggle("list_id", flag, fn)),
		}
	}
	return []gate.Operation{
		{
			Name:        "create_list",
			Description: "Create a new list",
			Category:    ratelimit.ListActions,
			InputSchema: object([]string{"name"}, map[string]*jsonschema.Schema{
				"name":        ident("List name"),
				"description": str("List description"),
				"private":     boolean("Make the list private"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.CreateList(ctx, p.raw("name"), p.raw("description"), p.boolean("private"))
			}),
		},
		{
			Name:        "delete_list",
			Description: "Delete a list",
			Category:    ratelimit.ListActions,
			Destructive: true,
			InputSchema: listID,
			Handler:     t.call(toggle("list_id", "deleted", (*xapi.Client).DeleteList)),
		},
		{
			Name:        "update_list",
			Description: "Update list name, description, or privacy",
			Category:    ratelimit.ListActions,
			InputSchema: object([]string{"list_id"}, map[string]*jsonschema.Schema{
				"list_id":     ident("List ID"),
				"name":        str("New name"),
				"description": str("New description"),
				"private":     boolean("Make the list private"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				id := p.str("list_id")
				u := xapi.ListUpdate{Name: p.strPtr("name"), Description: p.strPtr("description"), Private: p.boolPtr("private")}
				if u.Name == nil && u.Description == nil && u.Private == nil {
					return nil, errmodel.InvalidInput("Provide at least one of name, description or private", map[string]any{"list_id": id})
				}
				ok, err := c.UpdateList(ctx, id, u)
				if err != nil {
					return nil, err
				}
				return map[string]any{"list_id": id, "updated": ok}, nil
			}),
		},
		{
			Name:        "get_list",
			Description: "Get list details",
			ReadOnly:    true,
			InputSchema: listID,
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.GetList(ctx, p.str("list_id"))
			}),
		},
		{
			Name:        "get_user_lists",
			Description: "Get lists owned by a user",
			ReadOnly:    true,
			InputSchema: paged("user_id", "User ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.OwnedLists(ctx, p.str("user_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return &ListPage{Lists: nonNil(page.Items), NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "get_list_tweets",
			Description: "Get tweets from a list",
			ReadOnly:    true,
			InputSchema: paged("list_id", "List ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.ListTweets(ctx, p.str("list_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return tweetPage(page), nil
			}),
		},
		{
			Name:        "get_list_members",
			Description: "Get members of a list",
			ReadOnly:    true,
			InputSchema: paged("list_id", "List ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.ListMembers(ctx, p.str("list_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
		{
			Name:        "add_list_member",
			Description: "Add a user to a list",
			Category:    ratelimit.ListActions,
			InputSchema: member,
			Handler:     t.call(memberChange((*xapi.Client).AddListMember)),
		},
		{
			Name:        "remove_list_member",
			Description: "Remove a user from a list",
			Category:    ratelimit.ListActions,
			InputSchema: member,
			Handler:     t.call(memberChange((*xapi.Client).RemoveListMember)),
		},
		mine("follow_list", "Follow a list", "following", (*xapi.Client).FollowList),
		mine("unfollow_list", "Unfollow a list", "following", (*xapi.Client).UnfollowList),
		mine("pin_list", "Pin a list", "pinned", (*xapi.Client).PinList),
		mine("unpin_list", "Unpin a list", "pinned", (*xapi.Client).UnpinList),
	}
}

func memberChange(fn func(*xapi.Client, context.Context, string, string) (bool, error)) clientFunc {
	return func(ctx context.Context, c *xapi.Client, p params) (any, error) {
		listID, userID := p.str("list_id"), p.str("user_id")
		v, err := fn(c, ctx, listID, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"list_id": listID, "user_id": userID, "is_member": v}, nil
	}
}
