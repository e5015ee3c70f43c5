package xapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Credential environment keys, in the order they are reported when missing.
const (
	EnvAPIKey            = "TWITTER_API_KEY"
	EnvAPISecret         = "TWITTER_API_SECRET"
	EnvAccessToken       = "TWITTER_ACCESS_TOKEN"
	EnvAccessTokenSecret = "TWITTER_ACCESS_TOKEN_SECRET"
	EnvBearerToken       = "TWITTER_BEARER_TOKEN"
)

// Credentials is the full credential tuple. It is comparable and used as the
// client cache key.
type Credentials struct {
	APIKey            string `json:"twitterApiKey"`
	APISecret         string `json:"twitterApiSecret"`
	AccessToken       string `json:"twitterAccessToken"`
	AccessTokenSecret string `json:"twitterAccessTokenSecret"`
	BearerToken       string `json:"twitterBearerToken"`
}

// Missing lists the environment keys whose values are empty.
func (c Credentials) Missing() []string {
	var out []string
	for _, kv := range []struct{ key, val string }{
		{EnvAPIKey, c.APIKey},
		{EnvAPISecret, c.APISecret},
		{EnvAccessToken, c.AccessToken},
		{EnvAccessTokenSecret, c.AccessTokenSecret},
		{EnvBearerToken, c.BearerToken},
	} {
		if strings.TrimSpace(kv.val) == "" {
			out = append(out, kv.key)
		}
	}
	return out
}

// IsZero reports whether no field is set.
func (c Credentials) IsZero() bool { return c == Credentials{} }

// merge fills empty fields of c from fallback.
func (c Credentials) merge(fallback Credentials) Credentials {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Credentials{
		APIKey:            pick(c.APIKey, fallback.APIKey),
		APISecret:         pick(c.APISecret, fallback.APISecret),
		AccessToken:       pick(c.AccessToken, fallback.AccessToken),
		AccessTokenSecret: pick(c.AccessTokenSecret, fallback.AccessTokenSecret),
		BearerToken:       pick(c.BearerToken, fallback.BearerToken),
	}
}

// CredentialsFromLookup reads the credential keys through lookup.
func CredentialsFromLookup(lookup func(string) (string, bool)) Credentials {
	get := func(k string) string {
		v, _ := lookup(k)
		return v
	}
	return Credentials{
		APIKey:            get(EnvAPIKey),
		APISecret:         get(EnvAPISecret),
		AccessToken:       get(EnvAccessToken),
		AccessTokenSecret: get(EnvAccessTokenSecret),
		BearerToken:       get(EnvBearerToken),
	}
}

// DecodeCredentials parses the base64 JSON blob carried in the config query
// parameter. Both standard and URL-safe alphabets are accepted.
func DecodeCredentials(blob string) (Credentials, error) {
	var c Credentials
	blob = strings.TrimSpace(blob)
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(blob, "="))
		if err != nil {
			return c, err
		}
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c, nil
}

// CredentialsHeader carries the same blob as the config query parameter
// through transports that only forward request headers.
const CredentialsHeader = "X-Xmcp-Config"

type credentialsKey struct{}

// WithCredentials attaches per-request credentials to ctx. Fields left empty
// fall back to the process environment.
func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

// CredentialsFrom returns the credentials attached to ctx.
func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(credentialsKey{}).(Credentials)
	return c, ok
}
