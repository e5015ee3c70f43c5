package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/xmcp/pkg/catalog"
	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/gate"
	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/schedule"
	"github.com/wilhg/xmcp/pkg/store"
	"github.com/wilhg/xmcp/pkg/store/memstore"
	"github.com/wilhg/xmcp/pkg/xapi"
)

var creds = map[string]string{
	xapi.EnvAPIKey:            "key",
	xapi.EnvAPISecret:         "secret",
	xapi.EnvAccessToken:       "token",
	xapi.EnvAccessTokenSecret: "token-secret",
	xapi.EnvBearerToken:       "bearer",
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	reg *gate.Registry
	src *permissions.MapSource
	api *http.ServeMux
}

func newHarness(t *testing.T, profile string) *harness {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"id": "42", "name": "Me", "username": "me"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	factory := xapi.NewFactory(
		xapi.WithBaseURLs(srv.URL, srv.URL),
		xapi.WithHTTPClient(srv.Client()),
		xapi.WithLookup(func(k string) (string, bool) { v, ok := creds[k]; return v, ok }),
	)
	sched := schedule.NewService(memstore.New(), schedule.PublisherFunc(func(context.Context, store.ScheduledPost) (string, error) {
		return "1", nil
	}))
	src := permissions.NewMapSource(map[string]string{permissions.EnvProfile: profile})
	reg := gate.NewRegistry(gate.New(permissions.NewManager(src), ratelimit.New()))
	require.NoError(t, New(factory, nil, sched).Register(reg))
	return &harness{reg: reg, src: src, api: mux}
}

func (h *harness) call(t *testing.T, name string, args map[string]any) gate.Result {
	t.Helper()
	return h.reg.Call(context.Background(), name, args)
}

func TestEveryCatalogToolIsBound(t *testing.T) {
	ops := New(nil, nil, nil).Operations()
	names := map[string]gate.Operation{}
	for _, op := range ops {
		_, ok := catalog.GroupOf(op.Name)
		assert.Truef(t, ok, "%s is not in the catalog", op.Name)
		names[op.Name] = op
		assert.NotEmptyf(t, op.Description, "%s has no description", op.Name)
		assert.NotNilf(t, op.InputSchema, "%s has no schema", op.Name)
	}
	for _, tool := range catalog.AllTools() {
		assert.Containsf(t, names, tool, "%s has no operation", tool)
	}
	assert.Len(t, ops, len(catalog.AllTools()))
}

func TestCategoriesAndAdvisoryFlags(t *testing.T) {
	byName := map[string]gate.Operation{}
	for _, op := range New(nil, nil, nil).Operations() {
		byName[op.Name] = op
	}
	want := map[string]ratelimit.Category{
		"post_tweet":         ratelimit.TweetActions,
		"schedule_tweet":     ratelimit.TweetActions,
		"hide_reply":         ratelimit.TweetActions,
		"favorite_tweet":     ratelimit.LikeActions,
		"get_user_followers": ratelimit.FollowActions,
		"block_user":         ratelimit.FollowActions,
		"add_list_member":    ratelimit.ListActions,
		"send_dm":            ratelimit.DMActions,
		"delete_dm":          ratelimit.DMActions,
		"search_twitter":     "",
		"get_me":             "",
	}
	for name, cat := range want {
		assert.Equalf(t, cat, byName[name].Category, "category of %s", name)
	}
	var content []string
	for _, op := range New(nil, nil, nil).Operations() {
		if op.ContentProducing {
			content = append(content, op.Name)
		}
	}
	assert.ElementsMatch(t, []string{"post_tweet", "quote_tweet", "create_thread", "create_poll_tweet", "schedule_tweet"}, content)
}

func TestSearchTwitterFlattensAndClamps(t *testing.T) {
	h := newHarness(t, "researcher")
	h.api.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		assert.Equal(t, "recency", r.URL.Query().Get("sort_order"))
		assert.Equal(t, "Bearer bearer", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{
			"data": []map[string]any{{
				"id": "1", "text": "read this", "author_id": "7",
				"public_metrics": map[string]any{"like_count": 3, "retweet_count": 2, "reply_count": 1, "quote_count": 0},
				"entities":       map[string]any{"urls": []map[string]any{{"expanded_url": "https://x.com/i/article/99"}}},
			}},
			"includes": map[string]any{"users": []map[string]any{{"id": "7", "name": "Ann", "username": "ann"}}},
			"meta":     map[string]any{"next_token": "n1"},
		})
	})

	res := h.call(t, "search_twitter", map[string]any{"query": "golang", "product": "Latest", "count": float64(3)})
	require.True(t, res.OK(), "%v", res.Err)
	out := res.Value.(*SearchResult)
	require.Len(t, out.Tweets, 1)
	hit := out.Tweets[0]
	assert.Equal(t, "ann", hit.AuthorUsername)
	assert.Equal(t, 3, hit.Likes)
	assert.True(t, hit.HasArticle)
	require.NotNil(t, out.NextCursor)
	assert.Equal(t, "n1", *out.NextCursor)
}

func TestSearchArticlesKeepsArticleLinks(t *testing.T) {
	h := newHarness(t, "researcher")
	h.api.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ai has:links", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		writeJSON(w, map[string]any{"data": []map[string]any{
			{"id": "1", "text": "plain", "entities": map[string]any{"urls": []map[string]any{{"expanded_url": "https://example.com"}}}},
			{"id": "2", "text": "article", "entities": map[string]any{"urls": []map[string]any{
				{"expanded_url": "https://x.com/i/article/5", "title": "Deep dive"},
				{"expanded_url": "https://x.com/i/article/6"},
			}}},
			{"id": "3", "text": "another", "entities": map[string]any{"urls": []map[string]any{{"expanded_url": "https://x.com/i/article/7"}}}},
		}})
	})
	res := h.call(t, "search_articles", map[string]any{"query": "ai", "count": float64(1)})
	require.True(t, res.OK(), "%v", res.Err)
	out := res.Value.(*ArticleSearch)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "2", out.Articles[0].TweetID)
	assert.Equal(t, "Deep dive", out.Articles[0].ArticleTitle)
	assert.Equal(t, "https://x.com/i/article/5", out.Articles[0].ArticleURL)
	assert.Nil(t, out.NextCursor)
}

func TestFollowersCountIsClamped(t *testing.T) {
	h := newHarness(t, "researcher")
	h.api.HandleFunc("GET /2/users/{id}/followers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.PathValue("id"))
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))
		writeJSON(w, map[string]any{"data": []map[string]any{{"id": "2", "name": "B", "username": "b"}}})
	})
	res := h.call(t, "get_user_followers", map[string]any{"user_id": "u1", "count": float64(500)})
	require.True(t, res.OK(), "%v", res.Err)
	out := res.Value.(*UserPage)
	assert.Len(t, out.Users, 1)
	assert.Nil(t, out.NextCursor)
}

func TestPostTweetAppendsTagsAndAdvisory(t *testing.T) {
	h := newHarness(t, "creator")
	var body map[string]any
	h.api.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		assert.Contains(t, r.Header.Get("Authorization"), "OAuth ")
		writeJSON(w, map[string]any{"data": map[string]any{"id": "100", "text": body["text"]}})
	})
	res := h.call(t, "post_tweet", map[string]any{
		"text": "shipping", "tags": []any{"go", "mcp"}, "reply_to": "55",
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "shipping #go #mcp", body["text"])
	assert.Equal(t, map[string]any{"in_reply_to_tweet_id": "55"}, body["reply"])
	posted := res.Value.(*xapi.PostedTweet)
	assert.Equal(t, "100", posted.ID)
	assert.Equal(t, gate.Advisory, posted.Advisory)
}

func TestPostTweetDeniedForResearcher(t *testing.T) {
	h := newHarness(t, "researcher")
	res := h.call(t, "post_tweet", map[string]any{"text": "nope"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypePermissionDenied, res.Err.Type)

	h.src.Set(permissions.EnvProfile, "creator")
	h.api.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"id": "1", "text": "ok"}})
	})
	assert.True(t, h.call(t, "post_tweet", map[string]any{"text": "ok"}).OK())
}

func TestCreateThreadChainsReplies(t *testing.T) {
	h := newHarness(t, "creator")
	var n atomic.Int32
	var replies []any
	h.api.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		replies = append(replies, body["reply"])
		id := n.Add(1)
		writeJSON(w, map[string]any{"data": map[string]any{"id": strconv.Itoa(int(id)), "text": body["text"]}})
	})
	res := h.call(t, "create_thread", map[string]any{"tweets": []any{"one", "two", "three"}})
	require.True(t, res.OK(), "%v", res.Err)
	th := res.Value.(*Thread)
	assert.Equal(t, 3, th.ThreadLength)
	require.NotNil(t, th.FirstTweetID)
	assert.Equal(t, "1", *th.FirstTweetID)
	assert.Equal(t, gate.Advisory, th.Advisory)
	assert.Nil(t, replies[0])
	assert.Equal(t, map[string]any{"in_reply_to_tweet_id": "1"}, replies[1])
	assert.Equal(t, map[string]any{"in_reply_to_tweet_id": "2"}, replies[2])
}

func TestPollDurationIsClamped(t *testing.T) {
	h := newHarness(t, "creator")
	var poll map[string]any
	h.api.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		poll = body["poll"].(map[string]any)
		writeJSON(w, map[string]any{"data": map[string]any{"id": "9", "text": "q"}})
	})
	res := h.call(t, "create_poll_tweet", map[string]any{
		"text": "tabs or spaces", "choices": []any{"tabs", "spaces"}, "duration_minutes": float64(1),
	})
	require.True(t, res.OK(), "%v", res.Err)
	assert.EqualValues(t, 5, poll["duration_minutes"])

	res = h.call(t, "create_poll_tweet", map[string]any{"text": "q", "choices": []any{"only"}, "duration_minutes": float64(60)})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)
}

func TestVoteOnPollIsNotSupported(t *testing.T) {
	h := newHarness(t, "creator")
	res := h.call(t, "vote_on_poll", map[string]any{"tweet_id": "1", "choice": "a"})
	require.True(t, res.OK())
	assert.Equal(t, "not_supported", res.Value.(map[string]any)["status"])
}

func TestDeleteAllBookmarksPages(t *testing.T) {
	h := newHarness(t, "creator")
	var removed atomic.Int32
	h.api.HandleFunc("GET /2/users/42/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pagination_token") == "" {
			writeJSON(w, map[string]any{"data": []map[string]any{{"id": "a"}, {"id": "b"}}, "meta": map[string]any{"next_token": "p2"}})
			return
		}
		writeJSON(w, map[string]any{"data": []map[string]any{{"id": "c"}}})
	})
	h.api.HandleFunc("DELETE /2/users/42/bookmarks/{id}", func(w http.ResponseWriter, r *http.Request) {
		removed.Add(1)
		writeJSON(w, map[string]any{"data": map[string]any{"bookmarked": false}})
	})
	res := h.call(t, "delete_all_bookmarks", nil)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, map[string]any{"status": "completed", "deleted_count": 3}, res.Value)
	assert.EqualValues(t, 3, removed.Load())
}

func TestGetConversation(t *testing.T) {
	h := newHarness(t, "researcher")
	h.api.HandleFunc("GET /2/tweets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			writeJSON(w, map[string]any{"errors": []map[string]any{{"title": "Not Found Error", "detail": "Could not find tweet"}}})
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"id": r.PathValue("id"), "text": "root", "conversation_id": "c1"}})
	})
	h.api.HandleFunc("GET /2/tweets/search/recent", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "conversation_id:c1", r.URL.Query().Get("query"))
		writeJSON(w, map[string]any{
			"data":     []map[string]any{{"id": "1", "author_id": "7"}, {"id": "2", "author_id": "8"}, {"id": "3"}},
			"includes": map[string]any{"users": []map[string]any{{"id": "7", "name": "Ann", "username": "ann"}}},
		})
	})

	res := h.call(t, "get_conversation", map[string]any{"tweet_id": "1", "count": float64(2)})
	require.True(t, res.OK(), "%v", res.Err)
	conv := res.Value.(*Conversation)
	assert.Equal(t, "c1", conv.ConversationID)
	assert.Equal(t, 2, conv.TweetCount)
	assert.Equal(t, "ann", conv.Tweets[0].AuthorUsername)

	res = h.call(t, "get_conversation", map[string]any{"tweet_id": "missing"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeNotFound, res.Err.Type)
	env := res.Payload().(errmodel.EnvelopeBody)
	assert.Equal(t, "get_conversation", env.Tool)
}

func TestScheduledPosts(t *testing.T) {
	h := newHarness(t, "creator")
	at := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	res := h.call(t, "schedule_tweet", map[string]any{"text": "later", "scheduled_time": at})
	require.True(t, res.OK(), "%v", res.Err)
	s := res.Value.(*schedule.Scheduled)
	assert.Equal(t, gate.Advisory, s.Advisory)
	assert.Equal(t, store.PostPending, s.Status)

	res = h.call(t, "get_scheduled_tweets", map[string]any{"status": "pending"})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, 1, res.Value.(map[string]any)["count"])

	res = h.call(t, "delete_scheduled_tweet", map[string]any{"schedule_id": s.ID})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, "cancelled", res.Value.(map[string]any)["status"])

	res = h.call(t, "delete_scheduled_tweet", map[string]any{"schedule_id": "nope"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeNotFound, res.Err.Type)

	res = h.call(t, "schedule_tweet", map[string]any{"text": "bad", "scheduled_time": "tomorrow"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)
}

func TestGetArticleWithoutBrowser(t *testing.T) {
	h := newHarness(t, "researcher")
	res := h.call(t, "get_article", map[string]any{"url": "https://x.com/i/article/1"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeDependencyMissing, res.Err.Type)
	assert.Equal(t, 501, res.Err.Status)
}

func TestMissingRequiredArgument(t *testing.T) {
	h := newHarness(t, "researcher")
	res := h.call(t, "search_twitter", map[string]any{})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)
}

func TestUpdateListNeedsAField(t *testing.T) {
	h := newHarness(t, "manager")
	res := h.call(t, "update_list", map[string]any{"list_id": "9"})
	require.False(t, res.OK())
	assert.Equal(t, errmodel.TypeInvalidInput, res.Err.Type)

	h.api.HandleFunc("PUT /2/lists/9", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"private": true}, body)
		writeJSON(w, map[string]any{"data": map[string]any{"updated": true}})
	})
	res = h.call(t, "update_list", map[string]any{"list_id": "9", "private": true})
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, map[string]any{"list_id": "9", "updated": true}, res.Value)
}
