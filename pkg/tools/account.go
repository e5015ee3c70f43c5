package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/xapi"
)

func (t *Toolset) account() []gate.Operation {
	return []gate.Operation{
		{
			Name:        "get_me",
			Description: "Get your own user profile",
			ReadOnly:    true,
			InputSchema: object(nil, nil),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, _ params) (any, error) {
				return c.Me(ctx)
			}),
		},
		{
			Name:        "update_profile",
			Description: "Update your profile name, bio, location, or website",
			InputSchema: object(nil, map[string]*jsonschema.Schema{
				"name":        str("Display name"),
				"description": str("Bio"),
				"location":    str("Location"),
				"url":         str("Website URL"),
			}),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.UpdateProfile(ctx, xapi.ProfileUpdate{
					Name:        p.raw("name"),
					Description: p.raw("description"),
					Location:    p.raw("location"),
					URL:         p.str("url"),
				})
			}),
		},
		{
			Name:        "update_profile_image",
			Description: "Replace your profile image with a local file",
			InputSchema: single("image_path", "Local path of the image"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				return c.UpdateProfileImage(ctx, p.raw("image_path"))
			}),
		},
		{
			Name:        "update_banner",
			Description: "Replace your profile banner with a local file",
			InputSchema: single("banner_path", "Local path of the banner image"),
			Handler: t.call(func(ctx context.Context, c *xapi.Client, p params) (any, error) {
				path := p.raw("banner_path")
				if err := c.UpdateProfileBanner(ctx, path); err != nil {
					return nil, err
				}
				return map[string]any{"banner_path": path, "updated": true}, nil
			}),
		},
	}
}
