package detection

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// maxAltCandidates bounds the candidate list surfaced to moderators.
const maxAltCandidates = 4

// altJoinCluster is how close two join times must be to count as
// clustered arrivals, and altNameDistance the edit distance under which
// usernames count as a shared naming pattern.
const (
	altJoinCluster  = 10 * time.Minute
	altNameDistance = 3
)

// AltResult is the alt-account correlation verdict for a new member.
type AltResult struct {
	IsLikelyAlt   bool
	PotentialAlts []string
}

// CheckAltEvasion scans the guild's retained join history for accounts
// correlated with the new member: near-identical join timing paired
// with a shared naming pattern, or accounts created within minutes of
// each other. Deterministic for the same history, candidates capped.
// History lookup failure reads as no correlation.
func (s *Service) CheckAltEvasion(ctx context.Context, member Member) AltResult {
	lookback := time.Duration(s.policy.RecentJoinHours) * time.Hour
	history, err := s.store.RecentJoins(ctx, member.GuildID, s.now().Add(-lookback))
	if err != nil {
		s.logger.Warn("join history lookup failed", zap.String("guild_id", member.GuildID), zap.Error(err))
		return AltResult{PotentialAlts: []string{}}
	}

	var candidates []string
	for _, prior := range history {
		if prior.UserID == member.UserID {
			continue
		}

		joinDelta := member.JoinedAt.Sub(prior.JoinedAt)
		if joinDelta < 0 {
			joinDelta = -joinDelta
		}
		clustered := joinDelta <= altJoinCluster

		createdDelta := member.AccountCreatedAt.Sub(prior.AccountCreatedAt)
		if createdDelta < 0 {
			createdDelta = -createdDelta
		}
		batchCreated := createdDelta <= altJoinCluster

		similarName := namesCorrelate(member.Username, prior.Username)

		if (clustered && similarName) || (clustered && batchCreated) {
			candidates = append(candidates, prior.UserID)
		}
	}

	sort.Strings(candidates)
	if len(candidates) > maxAltCandidates {
		candidates = candidates[:maxAltCandidates]
	}
	if candidates == nil {
		candidates = []string{}
	}
	return AltResult{IsLikelyAlt: len(candidates) > 0, PotentialAlts: candidates}
}

// namesCorrelate compares usernames with trailing digit runs stripped,
// so "crypto_deals7712" and "crypto_deals9001" correlate.
func namesCorrelate(a, b string) bool {
	a = strings.ToLower(strings.TrimRight(a, "0123456789"))
	b = strings.ToLower(strings.TrimRight(b, "0123456789"))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return levenshtein(a, b) <= altNameDistance
}

// levenshtein computes edit distance over lowercased runes with a
// single-row cost buffer.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return utf8.RuneCountInString(b)
	}
	if len(b) == 0 {
		return utf8.RuneCountInString(a)
	}
	if a == b {
		return 0
	}

	s1 := []rune(strings.ToLower(a))
	s2 := []rune(strings.ToLower(b))
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}

	row := make([]int, len(s1)+1)
	for i := range row {
		row[i] = i
	}

	for i := 1; i <= len(s2); i++ {
		prev := i
		for j := 1; j <= len(s1); j++ {
			current := row[j-1]
			if s2[i-1] != s1[j-1] {
				current = minOf(row[j-1]+1, prev+1, row[j]+1)
			}
			row[j-1] = prev
			prev = current
		}
		row[len(s1)] = prev
	}
	return row[len(s1)]
}

func minOf(values ...int) int {
	least := values[0]
	for _, v := range values[1:] {
		if v < least {
			least = v
		}
	}
	return least
}
