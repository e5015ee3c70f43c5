// Package mcpserver exposes the gated operations over the Model Context
// Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wilhg/xmcp/pkg/catalog"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/xapi"
)

const (
	PermissionsURI = "xmcp://permissions"
	CatalogURI     = "xmcp://catalog"
)

const instructions = "Tools for the X (Twitter) API. The active permission profile decides which tools run; " +
	"disabled tools return a permission_denied envelope. Read " + PermissionsURI + " for the current state."

// StatusReporter reports the resolved permission state.
type StatusReporter interface {
	Status() permissions.Status
}

// Server is an MCP server backed by a gate registry.
type Server struct {
	srv     *mcp.Server
	reg     *gate.Registry
	perms   StatusReporter
	logger  *slog.Logger
	version string
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithPermissions enables the permissions resource.
func WithPermissions(p StatusReporter) Option {
	return func(s *Server) { s.perms = p }
}

// New registers every operation of reg as an MCP tool. Disabled operations
// stay listed and answer with the permission envelope.
func New(reg *gate.Registry, opts ...Option) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("mcpserver: nil registry")
	}
	s := &Server{reg: reg, logger: slog.Default(), version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = mcp.NewServer(&mcp.Implementation{Name: "xmcp", Version: s.version}, &mcp.ServerOptions{
		Instructions: instructions,
	})
	for _, op := range reg.Operations() {
		if op.InputSchema == nil {
			return nil, fmt.Errorf("mcpserver: %s has no input schema", op.Name)
		}
		s.srv.AddTool(toolFor(op), s.handler(op.Name))
	}
	s.addResources()
	return s, nil
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server { return s.srv }

// RunStdio serves a single session over stdin/stdout until ctx ends or the
// peer disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", slog.Int("tools", len(s.reg.Operations())))
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

func toolFor(op gate.Operation) *mcp.Tool {
	destructive := op.Destructive
	openWorld := true
	return &mcp.Tool{
		Name:        op.Name,
		Description: op.Description,
		InputSchema: op.InputSchema,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    op.ReadOnly,
			DestructiveHint: &destructive,
			OpenWorldHint:   &openWorld,
		},
	}
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return toResult(gate.Result{
					Tool:      name,
					Err:       errmodel.InvalidInput("Arguments must be a JSON object", map[string]any{"error": err.Error()}),
					Timestamp: time.Now(),
				}), nil
			}
		}
		return toResult(s.reg.Call(withCredentials(ctx, req), name, args)), nil
	}
}

// withCredentials attaches credentials forwarded in the HTTP request
// headers of the call.
func withCredentials(ctx context.Context, req *mcp.CallToolRequest) context.Context {
	if req.Extra == nil || req.Extra.Header == nil {
		return ctx
	}
	blob := req.Extra.Header.Get(xapi.CredentialsHeader)
	if blob == "" {
		return ctx
	}
	creds, err := xapi.DecodeCredentials(blob)
	if err != nil {
		return ctx
	}
	return xapi.WithCredentials(ctx, creds)
}

// toResult renders a gate result as JSON text plus structured content.
func toResult(res gate.Result) *mcp.CallToolResult {
	payload := res.Payload()
	b, err := json.Marshal(payload)
	if err != nil {
		env := errmodel.Envelope(errmodel.Internal("encode result", err), res.Tool, time.Now())
		b, _ = json.Marshal(env)
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}, StructuredContent: env}
	}
	return &mcp.CallToolResult{
		IsError:           !res.OK(),
		Content:           []mcp.Content{&mcp.TextContent{Text: string(b)}},
		StructuredContent: json.RawMessage(b),
	}
}

func (s *Server) addResources() {
	if s.perms != nil {
		s.srv.AddResource(&mcp.Resource{
			URI:         PermissionsURI,
			Name:        "permissions",
			Description: "Active profile, groups and enabled tools",
			MIMEType:    "application/json",
		}, jsonResource(func() any { return s.perms.Status() }))
	}
	s.srv.AddResource(&mcp.Resource{
		URI:         CatalogURI,
		Name:        "catalog",
		Description: "Tool groups and permission profiles",
		MIMEType:    "application/json",
	}, jsonResource(func() any { return catalog.Describe() }))
}

func jsonResource(fn func() any) mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		b, err := json.MarshalIndent(fn(), "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		}}}, nil
	}
}
