package utils

import (
	"testing"
	"time"
)

func TestNormalizeURLStripsTracking(t *testing.T) {
	normalized, host, err := NormalizeURL("https://Example.com/path?utm_source=x&b=2&a=1#frag")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if host != "example.com" {
		t.Fatalf("expected host example.com, got %q", host)
	}
	if normalized != "https://example.com/path?a=1&b=2" {
		t.Fatalf("unexpected normalized URL %q", normalized)
	}
}

func TestNormalizeURLSameDestination(t *testing.T) {
	first, _, err := NormalizeURL("https://scam.example/free?gclid=abc")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, _, err := NormalizeURL("https://SCAM.example/free")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if first != second {
		t.Fatalf("expected equal normalization, got %q vs %q", first, second)
	}
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("check https://a.example and http://b.example/x now")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
}

func TestMessageFingerprint(t *testing.T) {
	if got := MessageFingerprint("hi there"); got != "" {
		t.Fatalf("expected no fingerprint for short message, got %q", got)
	}

	// Suffix variation past the truncation point does not change the key.
	first := MessageFingerprint("FREE NITRO GIVEAWAY click here https://scam.example/claim-your-reward now")
	second := MessageFingerprint("free nitro giveaway CLICK here https://scam.example/claim-your-reward everyone")
	if first == "" {
		t.Fatal("expected fingerprint for long message")
	}
	if len(first) != fingerprintLength {
		t.Fatalf("expected %d-char fingerprint, got %d", fingerprintLength, len(first))
	}
	if first != second {
		t.Fatalf("expected matching fingerprints, got %q vs %q", first, second)
	}

	if other := MessageFingerprint("totally unrelated announcement about the weekly game night"); other == first {
		t.Fatal("expected distinct content to fingerprint differently")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"10m", 10 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"1d 2h", 26 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %v, got %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "10", "5x"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(90 * time.Minute); got != "1h 30m" {
		t.Fatalf("expected 1h 30m, got %q", got)
	}
	if got := FormatDuration(45 * time.Second); got != "45s" {
		t.Fatalf("expected 45s, got %q", got)
	}
	if got := FormatDuration(8 * 24 * time.Hour); got != "1w 1d" {
		t.Fatalf("expected 1w 1d, got %q", got)
	}
}
