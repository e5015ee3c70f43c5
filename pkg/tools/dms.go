package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/xapi"
)

func (t *Toolset) dms() []gate.Operation {
	return []gate.Operation{
		{
			Name:        "send_dm",
			Description: "Send a direct message to a user",
			Category:    ratelimit.DMActions,
			InputSchema: object([]string{"participant_id", "text"}, map[string]*jsonschema.Schema{
				"participant_id": ident("Recipient user ID"),
				"text":           ident("Message text"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.SendDM(ctx, p.str("participant_id"), p.raw("text"))
			}),
		},
		{
			Name:        "get_dm_conversations",
			Description: "Get your DM conversations",
			ReadOnly:    true,
			InputSchema: paged("", ""),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.DMEvents(ctx, pageOpts(p))
				if err != nil {
					return nil, err
				}
				return &EventPage{Events: nonNil(page.Items), NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "get_dm_events",
			Description: "Get messages in a DM conversation",
			ReadOnly:    true,
			InputSchema: paged("dm_conversation_id", "DM conversation ID"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				page, err := c.ConversationEvents(ctx, p.str("dm_conversation_id"), pageOpts(p))
				if err != nil {
					return nil, err
				}
				return &EventPage{Events: nonNil(page.Items), NextCursor: next(page.NextCursor)}, nil
			}),
		},
		{
			Name:        "delete_dm",
			Description: "Delete a direct message you sent",
			Category:    ratelimit.DMActions,
			Destructive: true,
			InputSchema: single("dm_event_id", "DM event ID"),
			Handler:     t.call(toggle("dm_event_id", "deleted", (*xapi.Client).DeleteDM)),
		},
	}
}
