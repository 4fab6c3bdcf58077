package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errBadDuration = errors.New("invalid duration")

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration reads human moderation durations like "10m", "1h30m"
// or "1d 2h". Units are seconds through weeks.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.ToLower(strings.ReplaceAll(input, " ", ""))
	if input == "" {
		return 0, errBadDuration
	}

	var total time.Duration
	start := 0
	for start < len(input) {
		end := start
		for end < len(input) && input[end] >= '0' && input[end] <= '9' {
			end++
		}
		if end == start || end == len(input) {
			return 0, errBadDuration
		}
		value, err := strconv.Atoi(input[start:end])
		if err != nil {
			return 0, errBadDuration
		}
		unit, ok := durationUnits[string(input[end])]
		if !ok {
			return 0, errBadDuration
		}
		total += time.Duration(value) * unit
		start = end + 1
	}
	if total <= 0 {
		return 0, errBadDuration
	}
	return total, nil
}

// FormatDuration renders a duration for embeds, largest two units.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	type unit struct {
		name string
		size time.Duration
	}
	units := []unit{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
	}

	var parts []string
	for _, u := range units {
		if d >= u.size {
			parts = append(parts, fmt.Sprintf("%d%s", int(d/u.size), u.name))
			d %= u.size
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}
