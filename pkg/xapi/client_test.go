package xapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/xmcp/pkg/errmodel"
)

var testCreds = map[string]string{
	EnvAPIKey:            "key",
	EnvAPISecret:         "secret",
	EnvAccessToken:       "token",
	EnvAccessTokenSecret: "token-secret",
	EnvBearerToken:       "bearer",
}

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := NewFactory(WithBaseURLs(srv.URL, srv.URL), WithHTTPClient(srv.Client()), WithLookup(lookupFrom(testCreds)))
	c, err := f.Client(context.Background())
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestMissingCredentials(t *testing.T) {
	f := NewFactory(WithLookup(lookupFrom(map[string]string{EnvAPIKey: "k"})))
	_, err := f.Client(context.Background())
	require.Error(t, err)
	ce := errmodel.From(err)
	assert.Equal(t, errmodel.TypeConfiguration, ce.Type)
	assert.Contains(t, ce.Message, "TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_TOKEN_SECRET, TWITTER_BEARER_TOKEN")
}

func TestRequestCredentialsOverrideEnvironment(t *testing.T) {
	f := NewFactory(WithLookup(lookupFrom(testCreds)))
	envClient, err := f.Client(context.Background())
	require.NoError(t, err)
	again, err := f.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, envClient, again)

	ctx := WithCredentials(context.Background(), Credentials{AccessToken: "other"})
	reqClient, err := f.Client(ctx)
	require.NoError(t, err)
	assert.NotSame(t, envClient, reqClient)
}

func TestDecodeCredentials(t *testing.T) {
	raw := `{"twitterApiKey":"a","twitterApiSecret":"b","twitterAccessToken":"c","twitterAccessTokenSecret":"d","twitterBearerToken":"e"}`
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawURLEncoding} {
		c, err := DecodeCredentials(enc.EncodeToString([]byte(raw)))
		require.NoError(t, err)
		assert.Equal(t, Credentials{"a", "b", "c", "d", "e"}, c)
	}
	_, err := DecodeCredentials("%%%")
	assert.Error(t, err)
}

func TestGetTweetExpandsAuthorWithBearer(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/42", r.URL.Path)
		assert.Equal(t, "Bearer bearer", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("expansions"), "author_id")
		writeJSON(w, 200, map[string]any{
			"data":     map[string]any{"id": "42", "text": "hi", "author_id": "7"},
			"includes": map[string]any{"users": []any{map[string]any{"id": "7", "name": "Ada", "username": "ada"}}},
		})
	}))
	tw, err := c.GetTweet(context.Background(), "42", true)
	require.NoError(t, err)
	require.NotNil(t, tw.Author)
	assert.Equal(t, "ada", tw.Author.Username)
}

func TestErrorsWithoutDataMeanNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"errors": []any{map[string]any{"detail": "Could not find tweet with id: [1]."}}})
	}))
	_, err := c.GetTweet(context.Background(), "1", false)
	ce := errmodel.From(err)
	assert.Equal(t, errmodel.TypeNotFound, ce.Type)
	assert.Equal(t, "Could not find tweet with id: [1].", ce.Message)
	assert.Equal(t, "1", ce.Details["tweet_id"])
}

func TestUpstreamStatusMapping(t *testing.T) {
	cases := map[int]string{
		401: errmodel.TypeUnauthorized,
		403: errmodel.TypeForbidden,
		404: errmodel.TypeNotFound,
		429: errmodel.TypeRateLimitExceeded,
		503: errmodel.TypeTwitterAPI,
	}
	for status, want := range cases {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]any{"title": "Problem", "detail": "nope"})
		}))
		_, err := c.GetUser(context.Background(), "1")
		ce := errmodel.From(err)
		assert.Equalf(t, want, ce.Type, "status %d", status)
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	}
}

func TestUserContextWritesCacheMe(t *testing.T) {
	var meCalls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "), r.URL.Path)
		switch {
		case r.URL.Path == "/2/users/me":
			meCalls.Add(1)
			writeJSON(w, 200, map[string]any{"data": map[string]any{"id": "99", "username": "me"}})
		case r.Method == http.MethodPost && r.URL.Path == "/2/users/99/likes":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "5", body["tweet_id"])
			writeJSON(w, 200, map[string]any{"data": map[string]any{"liked": true}})
		case r.Method == http.MethodDelete && r.URL.Path == "/2/users/99/likes/5":
			writeJSON(w, 200, map[string]any{"data": map[string]any{"liked": false}})
		default:
			http.NotFound(w, r)
		}
	}))
	liked, err := c.Like(context.Background(), "5")
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = c.Unlike(context.Background(), "5")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 1, meCalls.Load())
}

func TestCreateTweetBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, map[string]any{"in_reply_to_tweet_id": "1"}, body["reply"])
		assert.Equal(t, map[string]any{"options": []any{"a", "b"}, "duration_minutes": float64(60)}, body["poll"])
		assert.NotContains(t, body, "media")
		writeJSON(w, 201, map[string]any{"data": map[string]any{"id": "2", "text": "hello"}})
	}))
	tw, err := c.CreateTweet(context.Background(), TweetRequest{Text: "hello", ReplyTo: "1", PollOptions: []string{"a", "b"}, PollMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, "2", tw.ID)
	assert.Empty(t, tw.Advisory)
}

func TestUploadMediaMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.1/media/upload.json", r.URL.Path)
		f, hdr, err := r.FormFile("media")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(b))
		assert.Equal(t, "pic.png", hdr.Filename)
		writeJSON(w, 200, map[string]any{"media_id_string": "m1"})
	}))
	id, err := c.UploadMedia(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	_, err = c.UploadMedia(context.Background(), filepath.Join(dir, "missing.png"))
	assert.True(t, errmodel.IsType(err, errmodel.TypeInvalidInput))
}

func TestTrends(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "23424977", r.URL.Query().Get("id"))
		writeJSON(w, 200, []any{map[string]any{"trends": []any{
			map[string]any{"name": "#go", "query": "%23go"},
			map[string]any{"name": "#mcp", "query": "%23mcp"},
		}}})
	}))
	trends, err := c.Trends(context.Background(), 23424977)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "#go", trends[0].Name)
}

func TestTweetURLHelpers(t *testing.T) {
	id, ok := TweetIDFromURL("https://x.com/golang/status/12345?s=20")
	assert.True(t, ok)
	assert.Equal(t, "12345", id)
	_, ok = TweetIDFromURL("https://x.com/i/article/1")
	assert.False(t, ok)
	assert.True(t, IsArticleURL("https://x.com/i/article/1"))
}
