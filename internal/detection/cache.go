package detection

import (
	"context"
	"sync"
	"time"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

type cachedSettings struct {
	settings  storage.DetectionSettings
	fetchedAt time.Time
}

// settingsCache is a read-through TTL cache over detection settings.
// The clock is injected so expiry is testable.
type settingsCache struct {
	mu      sync.Mutex
	store   *storage.Store
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedSettings
}

func newSettingsCache(store *storage.Store, ttl time.Duration, now func() time.Time) *settingsCache {
	return &settingsCache{
		store:   store,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cachedSettings),
	}
}

func (c *settingsCache) get(ctx context.Context, guildID string) (storage.DetectionSettings, error) {
	c.mu.Lock()
	entry, ok := c.entries[guildID]
	now := c.now()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return entry.settings, nil
	}
	c.mu.Unlock()

	settings, found, err := c.store.GetDetectionSettings(ctx, guildID)
	if err != nil {
		return storage.DetectionSettings{}, err
	}
	if !found {
		settings = storage.DefaultDetectionSettings(guildID)
	}

	c.mu.Lock()
	c.entries[guildID] = cachedSettings{settings: settings, fetchedAt: now}
	c.mu.Unlock()
	return settings, nil
}

func (c *settingsCache) invalidate(guildID string) {
	c.mu.Lock()
	delete(c.entries, guildID)
	c.mu.Unlock()
}
