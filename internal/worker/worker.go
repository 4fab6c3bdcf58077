// Package worker runs periodic maintenance: TTL cleanup for detection
// data, stats retention, and purging guilds past their deletion grace
// period. A database lease keeps exactly one instance doing the work
// when several bots share a database.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

const lockKey = "hourly-maintenance"

type Worker struct {
	store    *storage.Store
	logger   *zap.Logger
	interval time.Duration
	lease    time.Duration
	holder   string
	snapshot func(ctx context.Context, guildID string) error
}

func New(store *storage.Store, cfg config.WorkerConfig, logger *zap.Logger) *Worker {
	return &Worker{
		store:    store,
		logger:   logger,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		lease:    time.Duration(cfg.LockMinutes) * time.Minute,
		holder:   uuid.NewString(),
	}
}

// SnapshotWith installs the per-guild daily snapshot callback. Each
// maintenance pass runs it for every stats-enabled guild; the snapshot
// upserts today's row, so hourly passes refresh it in place and the
// table keeps one row per guild per day.
func (w *Worker) SnapshotWith(fn func(ctx context.Context, guildID string) error) {
	w.snapshot = fn
}

// Run ticks until the context is canceled. One pass runs immediately.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	acquired, err := w.store.AcquireLock(ctx, lockKey, w.holder, w.lease)
	if err != nil {
		w.logger.Warn("maintenance lock acquire failed", zap.Error(err))
		return
	}
	if !acquired {
		w.logger.Debug("maintenance lease held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := w.store.ReleaseLock(ctx, lockKey, w.holder); err != nil {
			w.logger.Warn("maintenance lock release failed", zap.Error(err))
		}
	}()

	start := time.Now()

	globals, err := w.store.PurgeExpiredGlobalInfractions(ctx)
	if err != nil {
		w.logger.Warn("global infraction cleanup failed", zap.Error(err))
	}
	tracking, err := w.store.PurgeExpiredTracking(ctx)
	if err != nil {
		w.logger.Warn("tracking cleanup failed", zap.Error(err))
	}
	infractions, err := w.store.PurgeExpiredInfractions(ctx)
	if err != nil {
		w.logger.Warn("infraction cleanup failed", zap.Error(err))
	}
	joins, err := w.store.PurgeOldJoins(ctx, storage.StatsRetention)
	if err != nil {
		w.logger.Warn("join history cleanup failed", zap.Error(err))
	}
	if err := w.store.CleanupStats(ctx); err != nil {
		w.logger.Warn("stats cleanup failed", zap.Error(err))
	}
	purgedGuilds, err := w.store.PurgeDeletedGuilds(ctx)
	if err != nil {
		w.logger.Warn("guild purge failed", zap.Error(err))
	}

	snapshots := 0
	if w.snapshot != nil {
		guildIDs, err := w.store.ListStatsGuilds(ctx)
		if err != nil {
			w.logger.Warn("stats guild list failed", zap.Error(err))
		}
		for _, guildID := range guildIDs {
			if err := w.snapshot(ctx, guildID); err != nil {
				w.logger.Warn("daily snapshot failed", zap.String("guild_id", guildID), zap.Error(err))
				continue
			}
			snapshots++
		}
	}

	w.logger.Info("maintenance pass complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("global_infractions", globals),
		zap.Int64("behavior_tracking", tracking),
		zap.Int64("infractions", infractions),
		zap.Int64("join_history", joins),
		zap.Int("purged_guilds", len(purgedGuilds)),
		zap.Int("daily_snapshots", snapshots),
	)

	w.logRuntime(ctx)
}

// logRuntime emits a host health line alongside each pass so an
// operator can correlate bot misbehavior with resource pressure.
func (w *Worker) logRuntime(ctx context.Context) {
	fields := make([]zap.Field, 0, 4)

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		fields = append(fields, zap.Uint64("host_uptime_sec", uptime))
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields = append(fields, zap.Float64("mem_used_pct", vm.UsedPercent))
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		fields = append(fields, zap.Float64("cpu_pct", percents[0]))
	}
	if len(fields) > 0 {
		w.logger.Info("host runtime", fields...)
	}
}
