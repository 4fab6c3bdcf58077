package detection

import "github.com/DevSeige-Studios/WaterfallBot/internal/storage"

// Action is the enforcement decision for a join assessment, ordered by
// severity.
type Action int

const (
	ActionNone Action = iota
	ActionLog
	ActionTimeout
	ActionKick
)

func (a Action) String() string {
	switch a {
	case ActionLog:
		return "log"
	case ActionTimeout:
		return "timeout"
	case ActionKick:
		return "kick"
	default:
		return "none"
	}
}

// ActionFromConfidence maps a confidence score to an action under the
// guild's permission flags. Monotonic: higher confidence never yields a
// weaker action. When the indicated action is not allowed, the
// strongest allowed weaker action applies.
func (s *Service) ActionFromConfidence(confidence int, settings storage.DetectionSettings) Action {
	switch {
	case confidence >= s.policy.KickThreshold:
		if settings.AllowKick {
			return ActionKick
		}
		fallthrough
	case confidence >= s.policy.TimeoutThreshold:
		if settings.AllowTimeout {
			return ActionTimeout
		}
		fallthrough
	case confidence >= s.policy.AlertThreshold:
		return ActionLog
	default:
		return ActionNone
	}
}
