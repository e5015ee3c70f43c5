package permissions

import (
	"sort"
	"strings"

	"github.com/wilhg/xmcp/pkg/catalog"
)

// Resolution is the enabled set derived from one Signature.
type Resolution struct {
	Profile catalog.Profile
	Groups  []catalog.Group
	Enabled map[string]struct{}
	// Unrecognized lists tokens that matched nothing in the catalog.
	// They are reported, never rejected.
	Unrecognized []string
}

// Resolve computes the enabled set for a signature. It is a pure function of
// its input and the static catalog.
func Resolve(sig Signature) Resolution {
	var res Resolution

	p, ok := catalog.ParseProfile(sig.Profile)
	if !ok {
		if strings.TrimSpace(sig.Profile) != "" {
			res.Unrecognized = append(res.Unrecognized, "profile:"+strings.TrimSpace(sig.Profile))
		}
		p = catalog.DefaultProfile
	}
	res.Profile = p

	if p == catalog.ProfileCustom {
		seen := map[catalog.Group]bool{}
		for _, tok := range splitList(sig.Groups) {
			g, ok := catalog.ParseGroup(tok)
			if !ok {
				res.Unrecognized = append(res.Unrecognized, "group:"+tok)
				continue
			}
			if !seen[g] {
				seen[g] = true
				res.Groups = append(res.Groups, g)
			}
		}
	} else {
		res.Groups = catalog.GroupsOf(p)
	}

	res.Enabled = make(map[string]struct{})
	for _, g := range res.Groups {
		for _, tool := range catalog.ToolsIn(g) {
			res.Enabled[tool] = struct{}{}
		}
	}
	for _, tool := range splitList(sig.Disabled) {
		if _, known := catalog.GroupOf(tool); !known {
			res.Unrecognized = append(res.Unrecognized, "disabled:"+tool)
		}
		delete(res.Enabled, tool)
	}
	for _, tool := range splitList(sig.Enabled) {
		if _, known := catalog.GroupOf(tool); !known {
			res.Unrecognized = append(res.Unrecognized, "enabled:"+tool)
		}
		res.Enabled[tool] = struct{}{}
	}
	return res
}

// Sorted returns the enabled tool names in lexical order.
func (r Resolution) Sorted() []string {
	out := make([]string, 0, len(r.Enabled))
	for name := range r.Enabled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
