package permissions

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/xmcp/pkg/catalog"
)

func TestDefaultProfileIsReadOnly(t *testing.T) {
	m := NewManager(NewMapSource(nil))
	assert.Equal(t, catalog.ProfileResearcher, m.Profile())
	assert.True(t, m.IsEnabled("search_twitter"))
	assert.True(t, m.IsEnabled("get_conversation"))
	assert.False(t, m.IsEnabled("post_tweet"))
	assert.False(t, m.IsEnabled("send_dm"))
}

func TestProfileChangeIsObservedOnNextQuery(t *testing.T) {
	src := NewMapSource(nil)
	m := NewManager(src)
	require.False(t, m.IsEnabled("post_tweet"))

	src.Set(EnvProfile, "creator")
	assert.True(t, m.IsEnabled("post_tweet"))
	assert.Equal(t, catalog.ProfileCreator, m.Profile())

	src.Set(EnvProfile, "researcher")
	assert.False(t, m.IsEnabled("post_tweet"))
}

func TestCheckReturnsVerdictWithItsProfile(t *testing.T) {
	src := NewMapSource(nil)
	m := NewManager(src)

	ok, profile := m.Check("post_tweet")
	assert.False(t, ok)
	assert.Equal(t, catalog.ProfileResearcher, profile)

	src.Set(EnvProfile, "creator")
	ok, profile = m.Check("post_tweet")
	assert.True(t, ok)
	assert.Equal(t, catalog.ProfileCreator, profile)
}

func TestCustomProfileGroups(t *testing.T) {
	src := NewMapSource(map[string]string{
		EnvProfile: "custom",
		EnvGroups:  "research, Engage ,experimental",
	})
	m := NewManager(src)
	assert.True(t, m.IsEnabled("search_twitter"))
	assert.True(t, m.IsEnabled("favorite_tweet"))
	assert.False(t, m.IsEnabled("post_tweet"))
	assert.Equal(t, []catalog.Group{catalog.GroupResearch, catalog.GroupEngage}, m.Status().Groups)
}

func TestCustomProfileDefaultsToResearchGroup(t *testing.T) {
	m := NewManager(NewMapSource(map[string]string{EnvProfile: "custom"}))
	assert.True(t, m.IsEnabled("search_twitter"))
	assert.False(t, m.IsEnabled("get_conversation"))
}

func TestGroupsIgnoredForBuiltInProfiles(t *testing.T) {
	m := NewManager(NewMapSource(map[string]string{
		EnvProfile: "researcher",
		EnvGroups:  "dms",
	}))
	assert.False(t, m.IsEnabled("send_dm"))
}

func TestUnknownProfileFallsBackToResearcher(t *testing.T) {
	m := NewManager(NewMapSource(map[string]string{EnvProfile: "root"}))
	assert.Equal(t, catalog.ProfileResearcher, m.Profile())
	assert.False(t, m.IsEnabled("post_tweet"))
}

func TestOverrides(t *testing.T) {
	src := NewMapSource(map[string]string{
		EnvProfile:       "creator",
		EnvDisabledTools: "post_tweet, delete_tweet",
		EnvEnabledTools:  "send_dm,delete_tweet,not_a_tool",
	})
	m := NewManager(src)
	assert.False(t, m.IsEnabled("post_tweet"))
	// enabled overrides apply after disabled ones
	assert.True(t, m.IsEnabled("delete_tweet"))
	assert.True(t, m.IsEnabled("send_dm"))
	assert.Contains(t, m.EnabledTools(), "not_a_tool")
}

func TestResolveMatchesSetFormula(t *testing.T) {
	sigs := []Signature{
		{Profile: "researcher", Groups: "research"},
		{Profile: "manager", Groups: "research", Disabled: "follow_user"},
		{Profile: "custom", Groups: "lists,dms", Enabled: "get_me"},
		{Profile: "automation", Disabled: "send_dm,update_banner"},
		{Profile: "", Groups: ""},
	}
	for _, sig := range sigs {
		res := Resolve(sig)
		want := map[string]bool{}
		for _, g := range res.Groups {
			for _, tool := range catalog.ToolsIn(g) {
				want[tool] = true
			}
		}
		for _, tool := range splitList(sig.Disabled) {
			delete(want, tool)
		}
		for _, tool := range splitList(sig.Enabled) {
			want[tool] = true
		}
		m := NewManager(NewMapSource(map[string]string{
			EnvProfile:       sig.Profile,
			EnvGroups:        sig.Groups,
			EnvDisabledTools: sig.Disabled,
			EnvEnabledTools:  sig.Enabled,
		}))
		for _, tool := range catalog.AllTools() {
			assert.Equalf(t, want[tool], m.IsEnabled(tool), "sig=%+v tool=%s", sig, tool)
		}
	}
}

func TestRefreshReportsRecompute(t *testing.T) {
	src := NewMapSource(nil)
	m := NewManager(src)
	assert.True(t, m.Refresh())
	assert.False(t, m.Refresh())
	src.Set(EnvDisabledTools, "search_twitter")
	assert.True(t, m.Refresh())
	assert.False(t, m.IsEnabled("search_twitter"))
}

func TestUnrecognizedTokensAreLoggedOncePerSignature(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	src := NewMapSource(map[string]string{EnvProfile: "custom", EnvGroups: "research,beta"})
	m := NewManager(src, WithLogger(logger))

	m.IsEnabled("search_twitter")
	m.IsEnabled("search_twitter")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("unrecognized")))
	assert.Contains(t, buf.String(), "group:beta")
}

func TestStatus(t *testing.T) {
	m := NewManager(NewMapSource(nil))
	st := m.Status()
	assert.Equal(t, catalog.ProfileResearcher, st.Profile)
	assert.Equal(t, len(st.EnabledTools), st.EnabledToolsCount)
	assert.IsNonDecreasing(t, st.EnabledTools)
}

func TestConcurrentQueries(t *testing.T) {
	src := NewMapSource(nil)
	m := NewManager(src)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				src.Set(EnvProfile, "creator")
			} else {
				src.Set(EnvProfile, "manager")
			}
			for j := 0; j < 50; j++ {
				// post_tweet is enabled by both profiles
				assert.True(t, m.IsEnabled("post_tweet"))
			}
		}(i)
	}
	wg.Wait()
}
