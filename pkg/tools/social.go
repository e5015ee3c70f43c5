package tools

import (
	"context"

	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

func (t *Toolset) social() []gate.Operation {
	userID := single("user_id", "User ID")
	write := func(name, desc, flag string, fn func(*xapi.Client, context.Context, string) (bool, error)) gate.Operation {
		return gate.Operation{
			Name:        name,
			Description: desc,
			Category:    ratelimit.FollowActions,
			InputSchema: userID,
			Handler:     t.call(toggle("user_id", flag, fn)),
		}
	}
	return []gate.Operation{
		write("follow_user", "Follow a user", "following", (*xapi.Client).Follow),
		write("unfollow_user", "Unfollow a user", "following", (*xapi.Client).Unfollow),
		write("block_user", "Block a user", "blocking", (*xapi.Client).Block),
		write("unblock_user", "Unblock a user", "blocking", (*xapi.Client).Unblock),
		{
			Name:        "get_blocked_users",
			Description: "Get list of blocked users",
			ReadOnly:    true,
			InputSchema: paged("", ""),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Blocked(ctx, pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
		write("mute_user", "Mute a user", "muting", (*xapi.Client).Mute),
		write("unmute_user", "Unmute a user", "muting", (*xapi.Client).Unmute),
		{
			Name:        "get_muted_users",
			Description: "Get list of muted users",
			ReadOnly:    true,
			InputSchema: paged("", ""),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.Muted(ctx, pageOpts(p))
				if err != nil {
					return nil, err
				}
				return userPage(page), nil
			}),
		},
	}
}
