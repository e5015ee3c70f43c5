package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsAreDisjointAndCoverCatalog(t *testing.T) {
	seen := map[string]Group{}
	for _, g := range AllGroups() {
		for _, tool := range ToolsIn(g) {
			prev, dup := seen[tool]
			require.Falsef(t, dup, "tool %q in both %s and %s", tool, prev, g)
			seen[tool] = g
		}
	}
	assert.Len(t, AllTools(), len(seen))
	for tool, g := range seen {
		got, ok := GroupOf(tool)
		require.True(t, ok)
		assert.Equal(t, g, got)
	}
}

func TestGroupOfUnknown(t *testing.T) {
	_, ok := GroupOf("get_status")
	assert.False(t, ok)
}

func TestProfilesReferenceKnownGroups(t *testing.T) {
	for _, p := range AllProfiles() {
		assert.NotEmpty(t, p.Description(), p)
		for _, g := range GroupsOf(p) {
			_, ok := ParseGroup(string(g))
			assert.Truef(t, ok, "profile %s references unknown group %s", p, g)
		}
	}
	assert.Empty(t, GroupsOf(ProfileCustom))
	assert.Len(t, GroupsOf(ProfileAutomation), len(AllGroups()))
}

func TestParse(t *testing.T) {
	p, ok := ParseProfile("  Creator ")
	require.True(t, ok)
	assert.Equal(t, ProfileCreator, p)

	_, ok = ParseProfile("admin")
	assert.False(t, ok)

	g, ok := ParseGroup(" ENGAGE")
	require.True(t, ok)
	assert.Equal(t, GroupEngage, g)
	assert.Equal(t, RiskLow, g.Risk())
	assert.Equal(t, "Like, bookmark, retweet", g.Description())
}

func TestToolsInReturnsCopy(t *testing.T) {
	tools := ToolsIn(GroupDMs)
	tools[0] = "mutated"
	assert.Equal(t, "send_dm", ToolsIn(GroupDMs)[0])
}

func TestDescribe(t *testing.T) {
	snap := Describe()
	require.Len(t, snap.Groups, len(AllGroups()))
	require.Len(t, snap.Profiles, len(AllProfiles()))

	total := 0
	for _, g := range snap.Groups {
		total += len(g.Tools)
	}
	assert.Equal(t, len(AllTools()), total)

	byName := map[Profile]ProfileInfo{}
	for _, p := range snap.Profiles {
		byName[p.Name] = p
	}
	assert.Equal(t, len(AllTools()), byName[ProfileAutomation].ToolCount)
	assert.Zero(t, byName[ProfileCustom].ToolCount)
	assert.Less(t, byName[ProfileResearcher].ToolCount, byName[ProfileCreator].ToolCount)
}
