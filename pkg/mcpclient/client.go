// Package mcpclient is a thin MCP client used by the CLI and by tests.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDescriptor is a subset of an MCP tool listing.
type ToolDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	ReadOnly    bool   `json:"read_only" yaml:"read_only"`
}

// ResourceDescriptor describes an MCP resource.
type ResourceDescriptor struct {
	URI         string `json:"uri" yaml:"uri"`
	Description string `json:"description" yaml:"description"`
}

// CallResult is a decoded tool result.
type CallResult struct {
	IsError bool
	// Payload is the structured content, or the decoded text when the
	// server sent none.
	Payload any
	Text    string
}

// Client wraps an established MCP session.
type Client struct {
	session *mcp.ClientSession
}

type Option func(*config)

type config struct {
	httpClient *http.Client
	version    string
}

// WithHTTPClient sets the client used by the streamable HTTP transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) { cfg.httpClient = c }
}

func WithVersion(v string) Option {
	return func(cfg *config) { cfg.version = v }
}

func newConfig(opts []Option) config {
	cfg := config{version: "dev"}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Connect starts a session over t.
func Connect(ctx context.Context, t mcp.Transport, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	c := mcp.NewClient(&mcp.Implementation{Name: "xmcp-cli", Version: cfg.version}, nil)
	cs, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return &Client{session: cs}, nil
}

// Dial connects to a streamable HTTP endpoint such as http://host:8081/mcp.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("mcp dial: unsupported endpoint %q", endpoint)
	}
	cfg := newConfig(opts)
	t := &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: cfg.httpClient}
	return Connect(ctx, t, opts...)
}

// Spawn runs a server command and talks to it over its stdio.
func Spawn(ctx context.Context, name string, args []string, opts ...Option) (*Client, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return Connect(ctx, &mcp.CommandTransport{Command: cmd}, opts...)
}

func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	res, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	out := make([]ToolDescriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		d := ToolDescriptor{Name: t.Name, Description: t.Description}
		if t.Annotations != nil {
			d.ReadOnly = t.Annotations.ReadOnlyHint
		}
		out = append(out, d)
	}
	return out, nil
}

// CallTool invokes a tool. Tool-level failures come back as a result with
// IsError set, not as an error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	out := &CallResult{IsError: res.IsError, Payload: res.StructuredContent}
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			out.Text = tc.Text
			break
		}
	}
	if out.Payload == nil && out.Text != "" {
		var v any
		if json.Unmarshal([]byte(out.Text), &v) == nil {
			out.Payload = v
		}
	}
	return out, nil
}

func (c *Client) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	res, err := c.session.ListResources(ctx, &mcp.ListResourcesParams{})
	if err != nil {
		return nil, err
	}
	out := make([]ResourceDescriptor, 0, len(res.Resources))
	for _, r := range res.Resources {
		out = append(out, ResourceDescriptor{URI: r.URI, Description: r.Description})
	}
	return out, nil
}

// ReadResource returns the text of the first content block.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	if len(res.Contents) == 0 {
		return "", errors.New("mcp: empty resource " + uri)
	}
	return res.Contents[0].Text, nil
}

func (c *Client) Close() error { return c.session.Close() }
