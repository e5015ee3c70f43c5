package xapi

import (
	"context"
	"net/http"
)

const dmEventFields = "id,event_type,text,sender_id,dm_conversation_id,created_at"

// SendDM sends a one-to-one message.
func (c *Client) SendDM(ctx context.Context, participantID, text string) (*SentDM, error) {
	r, err := c.jsonRequest(http.MethodPost, "/2/dm_conversations/with/"+escape(participantID)+"/messages", AuthUser,
		map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var env envelope[SentDM]
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) dmEvents(ctx context.Context, path string, p PageOpts) (Page[DMEvent], error) {
	q := p.values("pagination_token")
	q.Set("dm_event.fields", dmEventFields)
	env, err := get[[]DMEvent](ctx, c, AuthUser, path, q)
	if err != nil {
		return Page[DMEvent]{}, err
	}
	return Page[DMEvent]{Items: env.Data, NextCursor: env.Meta.NextToken}, nil
}

// DMEvents lists recent direct message events across conversations.
func (c *Client) DMEvents(ctx context.Context, p PageOpts) (Page[DMEvent], error) {
	return c.dmEvents(ctx, "/2/dm_events", p)
}

// ConversationEvents lists the events of one conversation.
func (c *Client) ConversationEvents(ctx context.Context, conversationID string, p PageOpts) (Page[DMEvent], error) {
	return c.dmEvents(ctx, "/2/dm_conversations/"+escape(conversationID)+"/dm_events", p)
}

// DeleteDM deletes a message event sent by the authenticated user.
func (c *Client) DeleteDM(ctx context.Context, eventID string) (bool, error) {
	return c.send(ctx, http.MethodDelete, "/2/dm_events/"+escape(eventID), nil, "deleted")
}
