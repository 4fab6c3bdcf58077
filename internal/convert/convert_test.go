package convert

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

func TestUnit(t *testing.T) {
	cases := []struct {
		value    float64
		from, to string
		want     float64
	}{
		{1000, "m", "km", 1},
		{1, "mi", "km", 1.609344},
		{2, "kg", "lb", 4.40924524},
		{1, "gal", "l", 3.785411784},
		{1, "hp", "w", 745.69987158227},
	}
	for _, tc := range cases {
		got, err := Unit(tc.value, tc.from, tc.to)
		if err != nil {
			t.Fatalf("convert %v %s to %s: %v", tc.value, tc.from, tc.to, err)
		}
		if !almostEqual(got, tc.want) {
			t.Fatalf("convert %v %s to %s: expected %v, got %v", tc.value, tc.from, tc.to, tc.want, got)
		}
	}
}

func TestUnitMismatchedCategories(t *testing.T) {
	if _, err := Unit(1, "kg", "km"); err == nil {
		t.Fatal("expected error for cross-category conversion")
	}
	if _, err := Unit(1, "blorp", "km"); err == nil {
		t.Fatal("expected error for unknown unit")
	}
}

func TestTimezone(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out, err := Timezone(at, "UTC")
	if err != nil {
		t.Fatalf("timezone: %v", err)
	}
	if out == "" {
		t.Fatal("expected formatted time")
	}
	if _, err := Timezone(at, "Not/AZone"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestCurrencyConvertCaches(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.1,"GBP":0.85}}`))
	}))
	defer server.Close()

	converter := NewCurrencyConverter(server.URL, 12*time.Hour)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	converter.now = func() time.Time { return current }

	got, err := converter.Convert(context.Background(), 110, "USD", "EUR")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !almostEqual(got, 100) {
		t.Fatalf("expected 100 EUR, got %v", got)
	}

	// Inside the cache window no refetch happens.
	current = base.Add(6 * time.Hour)
	if _, err := converter.Convert(context.Background(), 1, "GBP", "USD"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls.Load())
	}

	current = base.Add(13 * time.Hour)
	if _, err := converter.Convert(context.Background(), 1, "USD", "GBP"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after cache expiry, got %d", calls.Load())
	}
}

func TestCurrencyConvertUnknownCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"USD":1.1}}`))
	}))
	defer server.Close()

	converter := NewCurrencyConverter(server.URL, time.Hour)
	if _, err := converter.Convert(context.Background(), 1, "ZZZ", "USD"); err == nil {
		t.Fatal("expected error for unknown currency")
	}
}
