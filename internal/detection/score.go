package detection

import (
	"regexp"
	"time"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

// ScoreResult is the output of confidence scoring: a clamped score and
// the machine-readable tags of every rule that fired, in evaluation
// order.
type ScoreResult struct {
	Confidence int
	Reasons    []string
}

// scoreRule is one scoring heuristic. Age tiers are evaluated tightest
// first and only the first matching tier fires, so overlapping tiers
// never double count. Each tier reaches to the next tier's boundary,
// not its own: the tightest enabled tier claims the account, and
// disabling a tier leaves no gap below a week.
type scoreRule struct {
	tag     string
	weight  int
	ageTier bool
	enabled func(storage.DetectionChecks) bool
	match   func(Member, time.Time) bool
}

var generatedNamePattern = regexp.MustCompile(`(?i)^(user|member|guest)?[a-z]*\d{5,}$`)

func ageUnder(limit time.Duration) func(Member, time.Time) bool {
	return func(m Member, now time.Time) bool {
		return now.Sub(m.AccountCreatedAt) < limit
	}
}

var scoreRules = []scoreRule{
	{
		tag:     "default_avatar",
		weight:  20,
		enabled: func(c storage.DetectionChecks) bool { return c.DefaultAvatar },
		match:   func(m Member, _ time.Time) bool { return !m.HasAvatar },
	},
	{
		tag:     "account_age_10m",
		weight:  40,
		ageTier: true,
		enabled: func(c storage.DetectionChecks) bool { return c.AccountAge10m },
		match:   ageUnder(time.Hour),
	},
	{
		tag:     "account_age_1h",
		weight:  30,
		ageTier: true,
		enabled: func(c storage.DetectionChecks) bool { return c.AccountAge1h },
		match:   ageUnder(24 * time.Hour),
	},
	{
		tag:     "account_age_1d",
		weight:  20,
		ageTier: true,
		enabled: func(c storage.DetectionChecks) bool { return c.AccountAge1d },
		match:   ageUnder(7 * 24 * time.Hour),
	},
	{
		tag:     "account_age_1w",
		weight:  10,
		ageTier: true,
		enabled: func(c storage.DetectionChecks) bool { return c.AccountAge1w },
		match:   ageUnder(7 * 24 * time.Hour),
	},
	{
		tag:     "suspicious_username",
		weight:  25,
		enabled: func(c storage.DetectionChecks) bool { return c.SuspiciousUsername },
		match:   func(m Member, _ time.Time) bool { return generatedNamePattern.MatchString(m.Username) },
	},
}

// ComputeConfidence scores a member snapshot against the guild's
// enabled checks. Pure: no storage reads, no side effects. The global
// ledger bonus is applied separately by AddGlobalInfractionFactor.
func (s *Service) ComputeConfidence(member Member, settings storage.DetectionSettings) ScoreResult {
	now := s.now()
	result := ScoreResult{Reasons: []string{}}

	ageMatched := false
	for _, rule := range scoreRules {
		if rule.ageTier && ageMatched {
			continue
		}
		if !rule.enabled(settings.Checks) {
			continue
		}
		if !rule.match(member, now) {
			continue
		}
		if rule.ageTier {
			ageMatched = true
		}
		result.Confidence += rule.weight
		result.Reasons = append(result.Reasons, rule.tag)
	}

	if result.Confidence > 100 {
		result.Confidence = 100
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	return result
}
