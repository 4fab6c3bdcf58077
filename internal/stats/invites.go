package stats

import "sync"

// InviteUse is one invite's use counter at a point in time.
type InviteUse struct {
	Code      string
	InviterID string
	Uses      int
}

// InviteTracker caches per-guild invite use counts so a member join can
// be attributed to the invite whose counter moved.
type InviteTracker struct {
	mu     sync.Mutex
	guilds map[string]map[string]InviteUse
}

func NewInviteTracker() *InviteTracker {
	return &InviteTracker{guilds: make(map[string]map[string]InviteUse)}
}

// Snapshot replaces the cached counters for a guild.
func (t *InviteTracker) Snapshot(guildID string, invites []InviteUse) {
	byCode := make(map[string]InviteUse, len(invites))
	for _, invite := range invites {
		byCode[invite.Code] = invite
	}
	t.mu.Lock()
	t.guilds[guildID] = byCode
	t.mu.Unlock()
}

// Forget drops a guild's cached counters.
func (t *InviteTracker) Forget(guildID string) {
	t.mu.Lock()
	delete(t.guilds, guildID)
	t.mu.Unlock()
}

// Diff compares fresh counters against the cache, returns the invite
// whose use count increased, and updates the cache to the fresh state.
// Ambiguous diffs (zero or several moved counters, no prior snapshot)
// return ok false.
func (t *InviteTracker) Diff(guildID string, current []InviteUse) (code, inviterID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, known := t.guilds[guildID]

	byCode := make(map[string]InviteUse, len(current))
	for _, invite := range current {
		byCode[invite.Code] = invite
	}
	t.guilds[guildID] = byCode

	if !known {
		return "", "", false
	}

	var moved []InviteUse
	for _, invite := range current {
		prior, seen := previous[invite.Code]
		if (!seen && invite.Uses > 0) || (seen && invite.Uses > prior.Uses) {
			moved = append(moved, invite)
		}
	}
	if len(moved) != 1 {
		return "", "", false
	}
	return moved[0].Code, moved[0].InviterID, true
}
