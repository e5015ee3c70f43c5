package httpserver

import (
	"context"

	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/ratelimit"
)

// Status is the body of GET /status.
type Status struct {
	Version     string             `json:"version" yaml:"version"`
	Transport   string             `json:"transport" yaml:"transport"`
	Permissions permissions.Status `json:"permissions" yaml:"permissions"`
	RateLimits  []ratelimit.Usage  `json:"rate_limits" yaml:"rate_limits"`
}

// StatusFunc produces the current status.
type StatusFunc func(ctx context.Context) Status

// StatusOf builds a StatusFunc over the live permission and limiter state.
func StatusOf(version, transport string, perms *permissions.Manager, limiter *ratelimit.Limiter) StatusFunc {
	return func(ctx context.Context) Status {
		st := Status{Version: version, Transport: transport}
		if perms != nil {
			st.Permissions = perms.Status()
		}
		if limiter != nil {
			st.RateLimits = limiter.Usage(ctx)
		}
		return st
	}
}
