package catalog

import "strings"

// Profile is a named preset selecting which groups are active.
type Profile string

const (
	ProfileResearcher Profile = "researcher"
	ProfileCreator    Profile = "creator"
	ProfileManager    Profile = "manager"
	ProfileAutomation Profile = "automation"
	ProfileCustom     Profile = "custom"
)

// DefaultProfile is the safest built-in profile and the fallback for
// missing or unrecognized profile names.
const DefaultProfile = ProfileResearcher

var profileOrder = []Profile{
	ProfileResearcher,
	ProfileCreator,
	ProfileManager,
	ProfileAutomation,
	ProfileCustom,
}

var profileGroups = map[Profile][]Group{
	ProfileResearcher: {GroupResearch, GroupConversations},
	ProfileCreator:    {GroupResearch, GroupEngage, GroupPublish, GroupConversations},
	ProfileManager: {
		GroupResearch, GroupEngage, GroupPublish, GroupConversations,
		GroupSocial, GroupLists,
	},
	ProfileAutomation: {
		GroupResearch, GroupEngage, GroupPublish, GroupConversations,
		GroupSocial, GroupLists, GroupDMs, GroupAccount,
	},
	// custom groups come from configuration
	ProfileCustom: {},
}

var profileDescriptions = map[Profile]string{
	ProfileResearcher: "Read-only access for research, monitoring, and analysis. Safe for automation.",
	ProfileCreator:    "Post content and engage with your audience. No social actions (follow/block).",
	ProfileManager:    "Full account management including social actions and lists.",
	ProfileAutomation: "Full API access including DMs. Use with caution.",
	ProfileCustom:     "Specify exactly which tool groups to enable via X_MCP_GROUPS.",
}

// GroupsOf returns the fixed groups of a profile in activation order.
// The custom profile returns an empty set.
func GroupsOf(p Profile) []Group {
	groups := profileGroups[p]
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

// ParseProfile matches a trimmed, case-insensitive profile name.
func ParseProfile(s string) (Profile, bool) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	_, ok := profileGroups[p]
	return p, ok
}

// AllProfiles returns every profile, safest first.
func AllProfiles() []Profile {
	out := make([]Profile, len(profileOrder))
	copy(out, profileOrder)
	return out
}

// Description returns the human readable summary of the profile.
func (p Profile) Description() string { return profileDescriptions[p] }

func (p Profile) String() string { return string(p) }
