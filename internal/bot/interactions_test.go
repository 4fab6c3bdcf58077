package bot

import (
	"testing"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

func TestApplyCheckOption(t *testing.T) {
	cases := []struct {
		name string
		get  func(storage.DetectionChecks) bool
	}{
		{"default_avatar", func(c storage.DetectionChecks) bool { return c.DefaultAvatar }},
		{"account_age_10m", func(c storage.DetectionChecks) bool { return c.AccountAge10m }},
		{"account_age_1h", func(c storage.DetectionChecks) bool { return c.AccountAge1h }},
		{"account_age_1d", func(c storage.DetectionChecks) bool { return c.AccountAge1d }},
		{"account_age_1w", func(c storage.DetectionChecks) bool { return c.AccountAge1w }},
		{"suspicious_username", func(c storage.DetectionChecks) bool { return c.SuspiciousUsername }},
		{"message_behavior", func(c storage.DetectionChecks) bool { return c.MessageBehavior }},
	}
	for _, tc := range cases {
		var checks storage.DetectionChecks
		if !applyCheckOption(&checks, tc.name, true) {
			t.Fatalf("expected %q to be a known check", tc.name)
		}
		if !tc.get(checks) {
			t.Fatalf("expected %q set", tc.name)
		}
		if !applyCheckOption(&checks, tc.name, false) {
			t.Fatalf("expected %q to clear", tc.name)
		}
		if tc.get(checks) {
			t.Fatalf("expected %q cleared", tc.name)
		}
	}

	var checks storage.DetectionChecks
	if applyCheckOption(&checks, "no_such_check", true) {
		t.Fatal("expected unknown check rejected")
	}
}
