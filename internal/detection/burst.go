package detection

import (
	"sync"
	"time"

	"github.com/DevSeige-Studios/WaterfallBot/internal/utils"
)

// MessageRef locates a message for downstream bulk deletion.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// BurstResult is the cross-channel spam verdict for one message.
type BurstResult struct {
	IsSpam   bool
	Messages []MessageRef
	Reasons  []string
}

type burstEvent struct {
	at        time.Time
	channelID string
	messageID string
	url       string
}

// burstRecorder keeps the recent link history per member in memory.
// History starts empty on process start; a member whose earlier
// messages predate the process simply reads as not spamming.
type burstRecorder struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	events map[string][]burstEvent
}

func newBurstRecorder(window time.Duration, now func() time.Time) *burstRecorder {
	return &burstRecorder{
		window: window,
		now:    now,
		events: make(map[string][]burstEvent),
	}
}

func (r *burstRecorder) record(key string, events []burstEvent) []burstEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	kept := r.events[key][:0]
	for _, event := range r.events[key] {
		if event.at.After(cutoff) {
			kept = append(kept, event)
		}
	}
	kept = append(kept, events...)
	if len(kept) == 0 {
		delete(r.events, key)
		return nil
	}
	r.events[key] = kept

	out := make([]burstEvent, len(kept))
	copy(out, kept)
	return out
}

// CheckCrossChannelLinkSpam records the message's links and reports
// whether the member has now posted the same destination in enough
// distinct channels inside the trailing window. Messages without links
// only age out history. Partial history reads as not spam.
func (s *Service) CheckCrossChannelLinkSpam(guildID, userID, channelID, messageID, content string) BurstResult {
	result := BurstResult{Messages: []MessageRef{}, Reasons: []string{}}

	now := s.now()
	var incoming []burstEvent
	for _, raw := range utils.ExtractURLs(content) {
		normalized, _, err := utils.NormalizeURL(raw)
		if err != nil {
			continue
		}
		incoming = append(incoming, burstEvent{
			at:        now,
			channelID: channelID,
			messageID: messageID,
			url:       normalized,
		})
	}

	key := guildID + ":" + userID
	history := s.bursts.record(key, incoming)
	if len(incoming) == 0 {
		return result
	}

	byURL := make(map[string]map[string]MessageRef)
	for _, event := range history {
		channels := byURL[event.url]
		if channels == nil {
			channels = make(map[string]MessageRef)
			byURL[event.url] = channels
		}
		if _, seen := channels[event.channelID]; !seen {
			channels[event.channelID] = MessageRef{ChannelID: event.channelID, MessageID: event.messageID}
		}
	}

	spamURLs := make(map[string]bool)
	for url, channels := range byURL {
		if len(channels) >= s.policy.SpamChannels {
			spamURLs[url] = true
		}
	}
	if len(spamURLs) == 0 {
		return result
	}

	// Return every recorded posting of the offending links, one ref per
	// message, so the caller can bulk delete.
	seen := make(map[string]bool)
	for _, event := range history {
		if !spamURLs[event.url] {
			continue
		}
		refKey := event.channelID + ":" + event.messageID
		if seen[refKey] {
			continue
		}
		seen[refKey] = true
		result.Messages = append(result.Messages, MessageRef{ChannelID: event.channelID, MessageID: event.messageID})
	}
	result.IsSpam = true
	result.Reasons = append(result.Reasons, "cross_channel_link_spam")
	return result
}
