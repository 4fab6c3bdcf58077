package detection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Store, *time.Time) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	store.WithNow(now)

	service := NewService(store, config.DefaultConfig().Detection, zap.NewNop())
	service.WithNow(now)
	return service, store, &current
}

func allChecks() storage.DetectionSettings {
	settings := storage.DefaultDetectionSettings("g1")
	settings.Enabled = true
	settings.Checks.AccountAge1w = true
	return settings
}

func TestComputeConfidenceCleanMember(t *testing.T) {
	service, _, current := newTestService(t)

	member := Member{
		GuildID:          "g1",
		UserID:           "u1",
		Username:         "gardenlover",
		HasAvatar:        true,
		AccountCreatedAt: current.Add(-30 * 24 * time.Hour),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, allChecks())
	if result.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %d", result.Confidence)
	}
	if len(result.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", result.Reasons)
	}
}

func TestComputeConfidenceAgeTiersExclusive(t *testing.T) {
	service, _, current := newTestService(t)

	member := Member{
		Username:         "someone",
		HasAvatar:        true,
		AccountCreatedAt: current.Add(-5 * time.Minute),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, allChecks())

	ageReasons := 0
	for _, reason := range result.Reasons {
		if reason == "account_age_10m" || reason == "account_age_1h" ||
			reason == "account_age_1d" || reason == "account_age_1w" {
			ageReasons++
		}
	}
	if ageReasons != 1 {
		t.Fatalf("expected exactly one age reason, got %v", result.Reasons)
	}
	if result.Reasons[0] != "account_age_10m" {
		t.Fatalf("expected tightest tier account_age_10m, got %v", result.Reasons)
	}
}

func TestComputeConfidenceNextEnabledTierFires(t *testing.T) {
	service, _, current := newTestService(t)

	settings := allChecks()
	settings.Checks.AccountAge10m = false

	member := Member{
		Username:         "someone",
		HasAvatar:        true,
		AccountCreatedAt: current.Add(-5 * time.Minute),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, settings)
	if len(result.Reasons) != 1 || result.Reasons[0] != "account_age_1h" {
		t.Fatalf("expected account_age_1h with 10m tier disabled, got %v", result.Reasons)
	}
}

func TestComputeConfidenceAgeTierReach(t *testing.T) {
	service, _, current := newTestService(t)

	settings := storage.DefaultDetectionSettings("g1")
	settings.Enabled = true
	settings.Checks = storage.DetectionChecks{AccountAge1d: true}

	member := Member{
		Username:         "someone",
		HasAvatar:        true,
		AccountCreatedAt: current.Add(-3 * 24 * time.Hour),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, settings)
	if len(result.Reasons) != 1 || result.Reasons[0] != "account_age_1d" {
		t.Fatalf("expected account_age_1d for a 3-day account, got %v", result.Reasons)
	}

	member.AccountCreatedAt = current.Add(-8 * 24 * time.Hour)
	result = service.ComputeConfidence(member, settings)
	if len(result.Reasons) != 0 {
		t.Fatalf("expected no age reason past a week, got %v", result.Reasons)
	}
}

func TestComputeConfidenceGeneratedAccountScenario(t *testing.T) {
	service, _, current := newTestService(t)

	settings := allChecks()
	settings.Checks.AccountAge1w = false

	member := Member{
		Username:         "User38291744",
		HasAvatar:        false,
		AccountCreatedAt: current.Add(-3 * 24 * time.Hour),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, settings)
	if result.Confidence <= 0 {
		t.Fatalf("expected positive confidence, got %d", result.Confidence)
	}

	expected := map[string]bool{"default_avatar": false, "account_age_1d": false, "suspicious_username": false}
	for _, reason := range result.Reasons {
		if _, ok := expected[reason]; ok {
			expected[reason] = true
		}
	}
	for tag, seen := range expected {
		if !seen {
			t.Fatalf("expected reason %q in %v", tag, result.Reasons)
		}
	}
}

func TestComputeConfidenceClamped(t *testing.T) {
	service, _, current := newTestService(t)

	member := Member{
		Username:         "User38291744",
		HasAvatar:        false,
		AccountCreatedAt: current.Add(-time.Minute),
		JoinedAt:         *current,
	}
	result := service.ComputeConfidence(member, allChecks())
	if result.Confidence < 0 || result.Confidence > 100 {
		t.Fatalf("confidence out of range: %d", result.Confidence)
	}
}

func TestAddGlobalInfractionFactorMonotonic(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	previous := 0
	for i := 0; i < 8; i++ {
		service.TrackGlobalInfraction(ctx, "u1", fmt.Sprintf("g%d", i))
		confidence, count := service.AddGlobalInfractionFactor(ctx, "u1", 50)
		if confidence < previous {
			t.Fatalf("confidence decreased from %d to %d at count %d", previous, confidence, count)
		}
		if confidence > 100 {
			t.Fatalf("confidence exceeds 100: %d", confidence)
		}
		if count != i+1 {
			t.Fatalf("expected global count %d, got %d", i+1, count)
		}
		previous = confidence
	}
}

func TestAddGlobalInfractionFactorNoLedger(t *testing.T) {
	service, _, _ := newTestService(t)

	confidence, count := service.AddGlobalInfractionFactor(context.Background(), "unknown", 35)
	if confidence != 35 || count != 0 {
		t.Fatalf("expected unchanged confidence, got %d count %d", confidence, count)
	}
}

func TestActionFromConfidenceMonotonic(t *testing.T) {
	service, _, _ := newTestService(t)

	variants := []storage.DetectionSettings{
		{AllowTimeout: true, AllowKick: true},
		{AllowTimeout: true, AllowKick: false},
		{AllowTimeout: false, AllowKick: true},
		{AllowTimeout: false, AllowKick: false},
	}
	for _, settings := range variants {
		previous := ActionNone
		for confidence := 0; confidence <= 100; confidence++ {
			action := service.ActionFromConfidence(confidence, settings)
			if action < previous {
				t.Fatalf("action weakened from %v to %v at confidence %d (settings %+v)",
					previous, action, confidence, settings)
			}
			previous = action
		}
	}
}

func TestActionFromConfidenceFallsBack(t *testing.T) {
	service, _, _ := newTestService(t)

	settings := storage.DetectionSettings{AllowTimeout: false, AllowKick: false}
	if action := service.ActionFromConfidence(100, settings); action != ActionLog {
		t.Fatalf("expected log fallback with all actions disabled, got %v", action)
	}

	settings = storage.DetectionSettings{AllowTimeout: true, AllowKick: false}
	if action := service.ActionFromConfidence(100, settings); action != ActionTimeout {
		t.Fatalf("expected timeout fallback with kick disabled, got %v", action)
	}
}

func TestRiskLevel(t *testing.T) {
	if RiskLevel(0) != "low" || RiskLevel(1) != "low" {
		t.Fatal("expected low risk for counts under 2")
	}
	if RiskLevel(2) != "medium" || RiskLevel(4) != "medium" {
		t.Fatal("expected medium risk for counts 2-4")
	}
	if RiskLevel(5) != "high" || RiskLevel(20) != "high" {
		t.Fatal("expected high risk from count 5")
	}
}

func TestCrossChannelLinkSpam(t *testing.T) {
	service, _, current := newTestService(t)

	content := "free nitro https://scam.example/claim"
	start := *current
	var result BurstResult
	for i := 0; i < 4; i++ {
		*current = start.Add(time.Duration(i) * 15 * time.Second)
		result = service.CheckCrossChannelLinkSpam("g1", "u1",
			fmt.Sprintf("c%d", i), fmt.Sprintf("m%d", i), content)
	}
	if !result.IsSpam {
		t.Fatal("expected spam verdict after 4 channels")
	}
	if len(result.Messages) != 4 {
		t.Fatalf("expected all 4 message refs, got %v", result.Messages)
	}
}

func TestCrossChannelLinkSpamSameChannel(t *testing.T) {
	service, _, _ := newTestService(t)

	content := "look at https://example.com/page"
	var result BurstResult
	for i := 0; i < 5; i++ {
		result = service.CheckCrossChannelLinkSpam("g1", "u1", "c1", fmt.Sprintf("m%d", i), content)
	}
	if result.IsSpam {
		t.Fatal("expected no spam verdict for a single channel")
	}
}

func TestCrossChannelLinkSpamWindowExpires(t *testing.T) {
	service, _, current := newTestService(t)

	content := "https://scam.example/claim"
	start := *current
	service.CheckCrossChannelLinkSpam("g1", "u1", "c1", "m1", content)
	service.CheckCrossChannelLinkSpam("g1", "u1", "c2", "m2", content)

	// Two early posts fall out of the window before the burst completes.
	*current = start.Add(5 * time.Minute)
	service.CheckCrossChannelLinkSpam("g1", "u1", "c3", "m3", content)
	result := service.CheckCrossChannelLinkSpam("g1", "u1", "c4", "m4", content)
	if result.IsSpam {
		t.Fatal("expected stale history to age out of the window")
	}
}

func TestCrossChannelLinkSpamNoHistory(t *testing.T) {
	service, _, _ := newTestService(t)

	result := service.CheckCrossChannelLinkSpam("g1", "u1", "c1", "m1", "hello there")
	if result.IsSpam || len(result.Messages) != 0 {
		t.Fatalf("expected empty verdict without links, got %+v", result)
	}
}

func TestCheckAltEvasion(t *testing.T) {
	service, store, current := newTestService(t)
	ctx := context.Background()

	created := current.Add(-time.Hour)
	if err := store.RecordJoin(ctx, "g1", "alt1", "crypto_deals7712", created, current.Add(-2*time.Minute)); err != nil {
		t.Fatalf("record join: %v", err)
	}
	if err := store.RecordJoin(ctx, "g1", "vet1", "longtime_regular", current.Add(-300*24*time.Hour), current.Add(-90*time.Minute)); err != nil {
		t.Fatalf("record join: %v", err)
	}

	member := Member{
		GuildID:          "g1",
		UserID:           "newbie",
		Username:         "crypto_deals9001",
		AccountCreatedAt: created.Add(time.Minute),
		JoinedAt:         *current,
	}
	result := service.CheckAltEvasion(ctx, member)
	if !result.IsLikelyAlt {
		t.Fatal("expected alt correlation")
	}
	if len(result.PotentialAlts) != 1 || result.PotentialAlts[0] != "alt1" {
		t.Fatalf("expected [alt1], got %v", result.PotentialAlts)
	}

	// Same inputs, same answer.
	again := service.CheckAltEvasion(ctx, member)
	if len(again.PotentialAlts) != len(result.PotentialAlts) {
		t.Fatal("expected deterministic correlation")
	}
}

func TestCheckAltEvasionCandidateCap(t *testing.T) {
	service, store, current := newTestService(t)
	ctx := context.Background()

	created := current.Add(-30 * time.Minute)
	for i := 0; i < 8; i++ {
		userID := fmt.Sprintf("bot%d", i)
		username := fmt.Sprintf("crypto_deals%d", 1000+i)
		if err := store.RecordJoin(ctx, "g1", userID, username, created, current.Add(-time.Minute)); err != nil {
			t.Fatalf("record join: %v", err)
		}
	}

	member := Member{
		GuildID:          "g1",
		UserID:           "newbie",
		Username:         "crypto_deals9999",
		AccountCreatedAt: created,
		JoinedAt:         *current,
	}
	result := service.CheckAltEvasion(ctx, member)
	if len(result.PotentialAlts) != 4 {
		t.Fatalf("expected candidate list capped at 4, got %d", len(result.PotentialAlts))
	}
}

func TestSettingsCacheExpiryRefetches(t *testing.T) {
	service, store, current := newTestService(t)
	ctx := context.Background()

	settings := storage.DefaultDetectionSettings("g1")
	settings.Enabled = true
	if err := store.UpsertDetectionSettings(ctx, settings); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := service.GetSettings(ctx, "g1"); !got.Enabled {
		t.Fatal("expected enabled settings")
	}

	// Direct store write bypasses the cache; the stale copy is served
	// until its TTL lapses.
	settings.Enabled = false
	if err := store.UpsertDetectionSettings(ctx, settings); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := service.GetSettings(ctx, "g1"); !got.Enabled {
		t.Fatal("expected cached copy before expiry")
	}

	*current = current.Add(time.Duration(config.DefaultConfig().Detection.SettingsCacheMinutes+1) * time.Minute)
	if got := service.GetSettings(ctx, "g1"); got.Enabled {
		t.Fatal("expected fresh fetch after cache expiry")
	}
}

func TestSaveSettingsInvalidatesCache(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if got := service.GetSettings(ctx, "g1"); got.Enabled {
		t.Fatal("expected defaults disabled")
	}

	settings := storage.DefaultDetectionSettings("g1")
	settings.Enabled = true
	if err := service.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if got := service.GetSettings(ctx, "g1"); !got.Enabled {
		t.Fatal("expected save to drop the cached copy")
	}
}

func TestRecentlyJoined(t *testing.T) {
	service, _, current := newTestService(t)

	if !service.RecentlyJoined(current.Add(-time.Hour)) {
		t.Fatal("expected 1h-old join inside window")
	}
	if service.RecentlyJoined(current.Add(-3 * time.Hour)) {
		t.Fatal("expected 3h-old join outside window")
	}
}
