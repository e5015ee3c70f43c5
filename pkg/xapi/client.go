// Package xapi is a small client for the X API v2 endpoints (plus the v1.1
// trends, media and account endpoints) used by the exposed operations.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/dghubble/oauth1"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/wilhg/xmcp/pkg/errmodel"
)

const (
	DefaultAPIBase    = "https://api.twitter.com"
	DefaultUploadBase = "https://upload.twitter.com"
)

// Auth selects how a request is signed.
type Auth int

const (
	// AuthApp uses the bearer token when one is configured and falls back
	// to user context otherwise.
	AuthApp Auth = iota
	// AuthUser always signs with OAuth 1.0a user context.
	AuthUser
)

// Factory hands out clients keyed by credential tuple.
type Factory struct {
	apiBase    string
	uploadBase string
	base       *http.Client
	lookup     func(string) (string, bool)

	mu      sync.Mutex
	clients map[Credentials]*Client
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithBaseURLs points the clients at alternative hosts. Used by tests.
func WithBaseURLs(api, upload string) FactoryOption {
	return func(f *Factory) {
		if api != "" {
			f.apiBase = strings.TrimRight(api, "/")
		}
		if upload != "" {
			f.uploadBase = strings.TrimRight(upload, "/")
		}
	}
}

// WithHTTPClient replaces the instrumented base HTTP client.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.base = c
		}
	}
}

// WithLookup replaces the environment lookup used for default credentials.
func WithLookup(lookup func(string) (string, bool)) FactoryOption {
	return func(f *Factory) {
		if lookup != nil {
			f.lookup = lookup
		}
	}
}

// NewFactory returns a Factory reading default credentials from the process
// environment.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		apiBase:    DefaultAPIBase,
		uploadBase: DefaultUploadBase,
		base:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		lookup:     os.LookupEnv,
		clients:    map[Credentials]*Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns the client for the credentials in effect for ctx:
// per-request credentials first, then the environment. Clients are cached
// per credential tuple.
func (f *Factory) Client(ctx context.Context) (*Client, error) {
	creds := CredentialsFromLookup(f.lookup)
	if reqCreds, ok := CredentialsFrom(ctx); ok {
		creds = reqCreds.merge(creds)
	}
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, errmodel.MissingEnv(missing...)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[creds]; ok {
		return c, nil
	}
	c := newClient(f.apiBase, f.uploadBase, f.base, creds)
	f.clients[creds] = c
	return c, nil
}

// Client talks to the X API with one credential tuple.
type Client struct {
	apiBase    string
	uploadBase string
	user       *http.Client
	app        *http.Client

	meMu sync.Mutex
	meID string
}

func newClient(apiBase, uploadBase string, base *http.Client, creds Credentials) *Client {
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	cfg := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	c := &Client{
		apiBase:    apiBase,
		uploadBase: uploadBase,
		user:       cfg.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)),
	}
	if creds.BearerToken != "" {
		bctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		c.app = oauth2.NewClient(bctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: creds.BearerToken,
			TokenType:   "Bearer",
		}))
	}
	return c
}

func (c *Client) httpClient(a Auth) *http.Client {
	if a == AuthApp && c.app != nil {
		return c.app
	}
	return c.user
}

// problem is one entry of an X API errors array.
type problem struct {
	Title   string `json:"title,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Value   string `json:"value,omitempty"`
}

func (p problem) text() string {
	switch {
	case p.Detail != "":
		return p.Detail
	case p.Message != "":
		return p.Message
	default:
		return p.Title
	}
}

// APIError is a failed X API response.
type APIError struct {
	Status   int
	Method   string
	Path     string
	Title    string
	Detail   string
	Problems []problem
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" && len(e.Problems) > 0 {
		msg = e.Problems[0].text()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// envelope is the v2 response shape.
type envelope[T any] struct {
	Data     T `json:"data"`
	Includes struct {
		Users  []User  `json:"users"`
		Tweets []Tweet `json:"tweets"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
	Errors []problem `json:"errors"`
}

func (e *envelope[T]) users() map[string]User {
	if len(e.Includes.Users) == 0 {
		return nil
	}
	out := make(map[string]User, len(e.Includes.Users))
	for _, u := range e.Includes.Users {
		out[u.ID] = u
	}
	return out
}

type request struct {
	method string
	base   string
	path   string
	query  url.Values
	auth   Auth
	body   io.Reader
	ctype  string
}

func (c *Client) jsonRequest(method, path string, a Auth, body any) (request, error) {
	r := request{method: method, base: c.apiBase, path: path, auth: a}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return r, err
		}
		r.body = bytes.NewReader(b)
		r.ctype = "application/json"
	}
	return r, nil
}

// do sends r and decodes a successful body into out.
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := r.base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return errmodel.Internal("build X API request", err)
	}
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient(r.auth).Do(req)
	if err != nil {
		return errmodel.Upstream(0, "X API request failed: "+err.Error(), map[string]any{"path": r.path}, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return errmodel.Upstream(0, "read X API response", map[string]any{"path": r.path}, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Method: r.method, Path: r.path}
		var body struct {
			Title  string    `json:"title"`
			Detail string    `json:"detail"`
			Errors []problem `json:"errors"`
		}
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Title, apiErr.Detail, apiErr.Problems = body.Title, body.Detail, body.Errors
		}
		details := map[string]any{"path": r.path}
		if resp.StatusCode == http.StatusTooManyRequests {
			if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
				details["reset"] = reset
			}
		}
		return errmodel.Upstream(resp.StatusCode, apiErr.Error(), details, apiErr)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errmodel.Upstream(0, "decode X API response", map[string]any{"path": r.path}, err)
	}
	return nil
}

// get issues a v2 GET and treats a body with errors but no data as a miss.
func get[T any](ctx context.Context, c *Client, a Auth, path string, q url.Values) (*envelope[T], error) {
	var env envelope[T]
	r := request{method: http.MethodGet, base: c.apiBase, path: path, query: q, auth: a}
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func notFound(env interface{ problems() []problem }, what string, details map[string]any) error {
	msg := what + " not found"
	if ps := env.problems(); len(ps) > 0 && ps[0].text() != "" {
		msg = ps[0].text()
	}
	return errmodel.NotFound(msg, details)
}

func (e *envelope[T]) problems() []problem { return e.Errors }

// send issues a v2 write and returns the boolean field of the data object.
func (c *Client) send(ctx context.Context, method, path string, body any, field string) (bool, error) {
	r, err := c.jsonRequest(method, path, AuthUser, body)
	if err != nil {
		return false, errmodel.Internal("encode X API request", err)
	}
	var env envelope[map[string]any]
	if err := c.do(ctx, r, &env); err != nil {
		return false, err
	}
	v, _ := env.Data[field].(bool)
	return v, nil
}

// MeID returns the authenticated user's id, cached after the first lookup.
func (c *Client) MeID(ctx context.Context) (string, error) {
	c.meMu.Lock()
	defer c.meMu.Unlock()
	if c.meID != "" {
		return c.meID, nil
	}
	env, err := get[User](ctx, c, AuthUser, "/2/users/me", nil)
	if err != nil {
		return "", err
	}
	if env.Data.ID == "" {
		return "", notFound(env, "Authenticated user", nil)
	}
	c.meID = env.Data.ID
	return c.meID, nil
}

// PageOpts are the common pagination arguments.
type PageOpts struct {
	Max    int
	Cursor string
}

func (p PageOpts) values(field string) url.Values {
	q := url.Values{}
	if p.Max > 0 {
		q.Set("max_results", fmt.Sprint(p.Max))
	}
	if p.Cursor != "" {
		q.Set(field, p.Cursor)
	}
	return q
}

const (
	userFieldsFull  = "id,name,username,profile_image_url,description,public_metrics,verified,created_at,location,url"
	userFieldsShort = "id,name,username,profile_image_url,public_metrics"
	tweetFields     = "id,text,created_at,author_id,public_metrics,entities"
)

func escape(s string) string { return url.PathEscape(s) }
