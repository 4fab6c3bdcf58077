// Package convert backs the unit, timezone and currency conversion
// commands.
package convert

import (
	"fmt"
	"strings"
	"time"
)

// Unit tables are factor maps into a base unit per category, so any
// pair inside a category converts through one division.
var unitTables = map[string]map[string]float64{
	"length": {
		"mm": 0.001, "cm": 0.01, "m": 1, "km": 1000,
		"in": 0.0254, "ft": 0.3048, "yd": 0.9144, "mi": 1609.344,
	},
	"mass": {
		"mg": 0.000001, "g": 0.001, "kg": 1, "t": 1000,
		"oz": 0.028349523125, "lb": 0.45359237, "st": 6.35029318,
	},
	"area": {
		"cm2": 0.0001, "m2": 1, "km2": 1000000,
		"ft2": 0.09290304, "ac": 4046.8564224, "ha": 10000,
	},
	"volume": {
		"ml": 0.001, "l": 1, "m3": 1000,
		"floz": 0.0295735295625, "pt": 0.473176473, "gal": 3.785411784,
	},
	"power": {
		"w": 1, "kw": 1000, "mw": 1000000, "hp": 745.69987158227,
	},
}

// Unit converts value between two units of the same category.
func Unit(value float64, from, to string) (float64, error) {
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	for _, table := range unitTables {
		fromFactor, okFrom := table[from]
		toFactor, okTo := table[to]
		if okFrom && okTo {
			return value * fromFactor / toFactor, nil
		}
		if okFrom || okTo {
			return 0, fmt.Errorf("cannot convert %s to %s: different unit categories", from, to)
		}
	}
	return 0, fmt.Errorf("unknown units %s and %s", from, to)
}

// UnitCategories lists the supported units per category for help text.
func UnitCategories() map[string][]string {
	out := make(map[string][]string, len(unitTables))
	for category, table := range unitTables {
		units := make([]string, 0, len(table))
		for unit := range table {
			units = append(units, unit)
		}
		out[category] = units
	}
	return out
}

// Timezone renders the given instant in the named IANA zone.
func Timezone(at time.Time, zone string) (string, error) {
	location, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q", zone)
	}
	return at.In(location).Format("Mon Jan 2 15:04 MST"), nil
}
