package stats

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(store, zap.NewNop()), store
}

func TestEnabledRespectsExclusions(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	if service.Enabled(ctx, "g1", "c1") {
		t.Fatal("expected stats off for unknown guild")
	}

	if err := store.UpsertGuild(ctx, storage.Guild{GuildID: "g1", Language: "en"}); err != nil {
		t.Fatalf("upsert guild: %v", err)
	}
	if err := store.SetStatsEnabled(ctx, "g1", true, []string{"c-secret"}); err != nil {
		t.Fatalf("enable stats: %v", err)
	}

	if !service.Enabled(ctx, "g1", "c1") {
		t.Fatal("expected stats on")
	}
	if service.Enabled(ctx, "g1", "c-secret") {
		t.Fatal("expected excluded channel off")
	}
}

func TestInviteTrackerDiff(t *testing.T) {
	tracker := NewInviteTracker()

	tracker.Snapshot("g1", []InviteUse{
		{Code: "abc", InviterID: "u1", Uses: 3},
		{Code: "def", InviterID: "u2", Uses: 0},
	})

	code, inviter, ok := tracker.Diff("g1", []InviteUse{
		{Code: "abc", InviterID: "u1", Uses: 4},
		{Code: "def", InviterID: "u2", Uses: 0},
	})
	if !ok {
		t.Fatal("expected single moved counter to attribute")
	}
	if code != "abc" || inviter != "u1" {
		t.Fatalf("expected abc/u1, got %s/%s", code, inviter)
	}

	// No movement is ambiguous.
	if _, _, ok := tracker.Diff("g1", []InviteUse{{Code: "abc", InviterID: "u1", Uses: 4}}); ok {
		t.Fatal("expected no attribution without movement")
	}
}

func TestInviteTrackerUnknownGuild(t *testing.T) {
	tracker := NewInviteTracker()

	if _, _, ok := tracker.Diff("g1", []InviteUse{{Code: "abc", InviterID: "u1", Uses: 1}}); ok {
		t.Fatal("expected no attribution without prior snapshot")
	}
	// The diff primed the cache; the next movement attributes.
	code, _, ok := tracker.Diff("g1", []InviteUse{{Code: "abc", InviterID: "u1", Uses: 2}})
	if !ok || code != "abc" {
		t.Fatalf("expected attribution after priming, got ok=%v code=%s", ok, code)
	}
}

func TestInviteTrackerNewInviteFirstUse(t *testing.T) {
	tracker := NewInviteTracker()

	tracker.Snapshot("g1", []InviteUse{{Code: "abc", InviterID: "u1", Uses: 3}})
	code, inviter, ok := tracker.Diff("g1", []InviteUse{
		{Code: "abc", InviterID: "u1", Uses: 3},
		{Code: "xyz", InviterID: "u9", Uses: 1},
	})
	if !ok || code != "xyz" || inviter != "u9" {
		t.Fatalf("expected fresh invite attribution, got ok=%v %s/%s", ok, code, inviter)
	}
}

func TestRenderActivityChart(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()

	if err := store.TrackMessage(ctx, "g1", "c1", "u1"); err != nil {
		t.Fatalf("track message: %v", err)
	}
	if _, err := RenderActivityChart(nil); err == nil {
		t.Fatal("expected error with no buckets")
	}
}

func TestRenderActivityChartPNG(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	buckets := []storage.BucketCount{
		{Bucket: base, Count: 3},
		{Bucket: base.Add(time.Hour), Count: 7},
		{Bucket: base.Add(2 * time.Hour), Count: 1},
	}
	png, err := RenderActivityChart(buckets)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected PNG output, got %d bytes", len(png))
	}
}
