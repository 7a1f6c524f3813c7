package session

import (
	"sort"
	"strings"

	"github.com/harun/sessionkey/internal/observability"
)

// IdentityLink declares that every alias names the same real-world peer.
// Aliases may be bare ids ("u1") or channel-scoped ("slack:u1").
type IdentityLink struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
}

// IdentityLinks is an ordered link table. When aliases overlap, the
// earliest entry wins.
type IdentityLinks []IdentityLink

// IdentityLinksFromMap converts an unordered canonical -> aliases map into a
// table ordered by canonical name, so resolution stays deterministic.
func IdentityLinksFromMap(m map[string][]string) IdentityLinks {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	links := make(IdentityLinks, 0, len(names))
	for _, name := range names {
		links = append(links, IdentityLink{Canonical: name, Aliases: m[name]})
	}
	return links
}

// Resolve returns the canonical name linked to peerID, matching either the
// bare id or "{channel}:{peerID}". The table is never modified.
func (l IdentityLinks) Resolve(channel, peerID string) (string, bool) {
	if len(l) == 0 {
		return "", false
	}
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return "", false
	}

	candidates := make(map[string]struct{}, 2)
	if raw := normalizeToken(peerID); raw != "" {
		candidates[raw] = struct{}{}
	}
	if ch := normalizeToken(channel); ch != "" {
		if scoped := normalizeToken(ch + ":" + peerID); scoped != "" {
			candidates[scoped] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	for _, link := range l {
		canonical := strings.TrimSpace(link.Canonical)
		if canonical == "" {
			continue
		}
		for _, alias := range link.Aliases {
			normalized := normalizeToken(alias)
			if normalized == "" {
				continue
			}
			if _, ok := candidates[normalized]; ok {
				observability.RecordIdentityLinkResolution(true)
				return canonical, true
			}
		}
	}

	observability.RecordIdentityLinkResolution(false)
	return "", false
}
