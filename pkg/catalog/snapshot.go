package catalog

// GroupInfo describes one group for listings.
type GroupInfo struct {
	Name        Group    `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Risk        Risk     `json:"risk" yaml:"risk"`
	Tools       []string `json:"tools" yaml:"tools"`
}

// ProfileInfo describes one profile for listings.
type ProfileInfo struct {
	Name        Profile `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Groups      []Group `json:"groups" yaml:"groups"`
	ToolCount   int     `json:"tool_count" yaml:"tool_count"`
}

// Snapshot is the whole catalog in display order.
type Snapshot struct {
	Groups   []GroupInfo   `json:"groups" yaml:"groups"`
	Profiles []ProfileInfo `json:"profiles" yaml:"profiles"`
}

// Groups lists every group with its tools.
func Groups() []GroupInfo {
	out := make([]GroupInfo, 0, len(groupOrder))
	for _, g := range groupOrder {
		out = append(out, GroupInfo{Name: g, Description: g.Description(), Risk: g.Risk(), Tools: ToolsIn(g)})
	}
	return out
}

// Profiles lists every profile with its groups.
func Profiles() []ProfileInfo {
	out := make([]ProfileInfo, 0, len(profileOrder))
	for _, p := range profileOrder {
		groups := GroupsOf(p)
		n := 0
		for _, g := range groups {
			n += len(groupTools[g])
		}
		out = append(out, ProfileInfo{Name: p, Description: p.Description(), Groups: groups, ToolCount: n})
	}
	return out
}

// Describe returns the catalog snapshot.
func Describe() Snapshot {
	return Snapshot{Groups: Groups(), Profiles: Profiles()}
}
