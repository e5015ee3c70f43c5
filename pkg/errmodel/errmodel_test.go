package errmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndFrom(t *testing.T) {
	e := InvalidInput("field missing", map[string]any{"field": "text"})
	assert.Equal(t, TypeInvalidInput, e.Type)
	assert.Equal(t, 400, e.Status)
	assert.Same(t, e, From(e))
	assert.Same(t, e, From(fmt.Errorf("wrapped: %w", e)))
}

func TestFromPlainErrorIsInternal(t *testing.T) {
	cause := errors.New("boom")
	e := From(cause)
	assert.Equal(t, TypeInternal, e.Type)
	assert.Equal(t, 500, e.Status)
	assert.ErrorIs(t, e, cause)
}

func TestUpstreamMapping(t *testing.T) {
	cases := map[int]string{
		401: TypeUnauthorized,
		403: TypeForbidden,
		404: TypeNotFound,
		429: TypeRateLimitExceeded,
		500: TypeTwitterAPI,
		0:   TypeTwitterAPI,
	}
	for status, want := range cases {
		e := Upstream(status, "upstream", nil, nil)
		assert.Equalf(t, want, e.Type, "status %d", status)
	}
	assert.Equal(t, 502, Upstream(0, "x", nil, nil).Status)
	assert.Equal(t, 502, Upstream(503, "x", nil, nil).Status)
}

func TestTruncation(t *testing.T) {
	e := New(TypeInternal, strings.Repeat("m", 2000), map[string]any{
		"long":  strings.Repeat("d", 1000),
		"count": 3,
	}, nil)
	assert.Len(t, e.Message, 512)
	assert.Len(t, e.Details["long"], 256)
	assert.Equal(t, 3, e.Details["count"])
}

func TestEnvelope(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))
	env := Envelope(PermissionDenied("post_tweet", "researcher"), "post_tweet", now)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, false, got["ok"])
	assert.Equal(t, "post_tweet", got["tool"])
	assert.Equal(t, "2026-03-04T04:06:07Z", got["timestamp"])
	body := got["error"].(map[string]any)
	assert.Equal(t, TypePermissionDenied, body["type"])
	assert.EqualValues(t, 403, body["status"])
	assert.Equal(t, "researcher", body["details"].(map[string]any)["profile"])
}

func TestRateLimitedDetails(t *testing.T) {
	e := RateLimited("tweet_actions", 90*time.Second+400*time.Millisecond)
	assert.Equal(t, 90, e.Details["retry_after_seconds"])
	assert.Equal(t, "tweet_actions", e.Details["action_type"])
	assert.True(t, IsType(e, TypeRateLimitExceeded))
}

func TestWriteHTTP_StatusAndEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	WriteHTTP(rr, req, RateLimited("http", 30*time.Second))
	assert.Equal(t, 429, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))
	body := rr.Body.String()
	assert.Contains(t, body, `"type":"rate_limit_exceeded"`)
	assert.Contains(t, body, `"ok":false`)
}

func TestMissingEnv(t *testing.T) {
	e := MissingEnv("TWITTER_API_KEY", "TWITTER_API_SECRET")
	assert.Equal(t, TypeConfiguration, e.Type)
	assert.Equal(t, "Missing required environment variable(s): TWITTER_API_KEY, TWITTER_API_SECRET", e.Message)
}
