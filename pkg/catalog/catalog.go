// Package catalog holds the static tool catalog: every exposed operation,
// the group it belongs to, and the profiles that switch groups on.
package catalog

import "strings"

// Group is a named partition of the operation catalog.
type Group string

const (
	GroupResearch      Group = "research"
	GroupEngage        Group = "engage"
	GroupPublish       Group = "publish"
	GroupSocial        Group = "social"
	GroupConversations Group = "conversations"
	GroupLists         Group = "lists"
	GroupDMs           Group = "dms"
	GroupAccount       Group = "account"
)

// Risk is the advisory risk tier of a group.
type Risk string

const (
	RiskSafe       Risk = "safe"
	RiskLow        Risk = "low"
	RiskMedium     Risk = "medium"
	RiskMediumHigh Risk = "medium-high"
	RiskHigh       Risk = "high"
)

// groupOrder fixes iteration order for listings.
var groupOrder = []Group{
	GroupResearch,
	GroupEngage,
	GroupPublish,
	GroupSocial,
	GroupConversations,
	GroupLists,
	GroupDMs,
	GroupAccount,
}

var groupTools = map[Group][]string{
	GroupResearch: {
		"search_twitter",
		"search_articles",
		"get_trends",
		"get_article",
		"get_user_profile",
		"get_user_by_screen_name",
		"get_user_by_id",
		"get_user_followers",
		"get_user_following",
		"get_user_followers_you_know",
		"get_user_subscriptions",
		"get_tweet_details",
		"get_user_tweets",
		"get_liked_tweets",
		"get_timeline",
		"get_latest_timeline",
		"get_user_mentions",
		"get_highlights_tweets",
	},
	GroupEngage: {
		"favorite_tweet",
		"unfavorite_tweet",
		"bookmark_tweet",
		"delete_bookmark",
		"delete_all_bookmarks",
		"get_bookmarks",
		"retweet",
		"unretweet",
		"get_retweets",
	},
	GroupPublish: {
		"post_tweet",
		"delete_tweet",
		"quote_tweet",
		"create_thread",
		"create_poll_tweet",
		"vote_on_poll",
		"schedule_tweet",
		"get_scheduled_tweets",
		"delete_scheduled_tweet",
	},
	GroupSocial: {
		"follow_user",
		"unfollow_user",
		"block_user",
		"unblock_user",
		"get_blocked_users",
		"mute_user",
		"unmute_user",
		"get_muted_users",
	},
	GroupConversations: {
		"get_conversation",
		"get_replies",
		"get_quote_tweets",
		"hide_reply",
		"unhide_reply",
	},
	GroupLists: {
		"create_list",
		"delete_list",
		"update_list",
		"get_list",
		"get_user_lists",
		"get_list_tweets",
		"get_list_members",
		"add_list_member",
		"remove_list_member",
		"follow_list",
		"unfollow_list",
		"pin_list",
		"unpin_list",
	},
	GroupDMs: {
		"send_dm",
		"get_dm_conversations",
		"get_dm_events",
		"delete_dm",
	},
	GroupAccount: {
		"get_me",
		"update_profile",
		"update_profile_image",
		"update_banner",
	},
}

var groupDescriptions = map[Group]string{
	GroupResearch:      "Search, lookup users/tweets, read timelines",
	GroupEngage:        "Like, bookmark, retweet",
	GroupPublish:       "Post tweets, threads, polls",
	GroupSocial:        "Follow, block, mute users",
	GroupConversations: "Read threads, manage replies",
	GroupLists:         "Create and manage lists",
	GroupDMs:           "Send and read direct messages",
	GroupAccount:       "Update profile and settings",
}

var groupRisks = map[Group]Risk{
	GroupResearch:      RiskSafe,
	GroupEngage:        RiskLow,
	GroupPublish:       RiskMedium,
	GroupSocial:        RiskMediumHigh,
	GroupConversations: RiskSafe,
	GroupLists:         RiskLow,
	GroupDMs:           RiskHigh,
	GroupAccount:       RiskHigh,
}

// toolGroup is the inverse of groupTools, built once at init.
var toolGroup = func() map[string]Group {
	out := make(map[string]Group)
	for _, g := range groupOrder {
		for _, name := range groupTools[g] {
			out[name] = g
		}
	}
	return out
}()

// GroupOf returns the group an operation belongs to.
// Operations outside every group report false and are never enabled.
func GroupOf(tool string) (Group, bool) {
	g, ok := toolGroup[tool]
	return g, ok
}

// ToolsIn returns the operations of a group in catalog order.
func ToolsIn(g Group) []string {
	tools := groupTools[g]
	out := make([]string, len(tools))
	copy(out, tools)
	return out
}

// AllGroups returns every group in catalog order.
func AllGroups() []Group {
	out := make([]Group, len(groupOrder))
	copy(out, groupOrder)
	return out
}

// AllTools returns every catalogued operation, grouped in catalog order.
func AllTools() []string {
	out := make([]string, 0, len(toolGroup))
	for _, g := range groupOrder {
		out = append(out, groupTools[g]...)
	}
	return out
}

// ParseGroup matches a trimmed, case-insensitive group name.
func ParseGroup(s string) (Group, bool) {
	g := Group(strings.ToLower(strings.TrimSpace(s)))
	_, ok := groupTools[g]
	return g, ok
}

// Description returns the human readable summary of the group.
func (g Group) Description() string { return groupDescriptions[g] }

// Risk returns the risk tier of the group.
func (g Group) Risk() Risk { return groupRisks[g] }

func (g Group) String() string { return string(g) }
