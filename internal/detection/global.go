package detection

import (
	"context"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

// AddGlobalInfractionFactor folds the user's cross-guild ledger into a
// base confidence. The bonus grows with the infraction count, is capped
// by policy, and the total never exceeds 100. A ledger read failure
// leaves the confidence unchanged. Returns the adjusted confidence and
// the raw global count for labeling.
func (s *Service) AddGlobalInfractionFactor(ctx context.Context, userID string, confidence int) (int, int) {
	inf, found, err := s.store.GetGlobalInfraction(ctx, userID)
	if err != nil {
		s.logger.Warn("global infraction lookup failed", zap.String("user_id", userID), zap.Error(err))
		return confidence, 0
	}
	if !found || inf.InfractionCount <= 0 {
		return confidence, 0
	}

	bonus := inf.InfractionCount * s.policy.GlobalBonusStep
	if bonus > s.policy.GlobalBonusCap {
		bonus = s.policy.GlobalBonusCap
	}
	confidence += bonus
	if confidence > 100 {
		confidence = 100
	}
	return confidence, inf.InfractionCount
}

// RiskLevel buckets a global infraction count for display.
func RiskLevel(globalCount int) string {
	switch {
	case globalCount >= 5:
		return "high"
	case globalCount >= 2:
		return "medium"
	default:
		return "low"
	}
}

// TrackGlobalInfraction records a detection trigger against the user's
// cross-guild ledger, adding this guild to its server set. Failures are
// logged; the ledger is a heuristic signal, not a ledger of record.
func (s *Service) TrackGlobalInfraction(ctx context.Context, userID, guildID string) (storage.GlobalInfraction, bool) {
	inf, err := s.store.IncrementGlobalInfraction(ctx, userID, guildID)
	if err != nil {
		s.logger.Warn("track global infraction failed",
			zap.String("user_id", userID), zap.String("guild_id", guildID), zap.Error(err))
		return storage.GlobalInfraction{}, false
	}
	return inf, true
}
