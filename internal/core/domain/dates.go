package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical format written by the editor.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2.1.2006",
	"2. 1. 2006",
	"2 January 2006",
	"2. January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// Czech month names in the genitive case, as written in "5. března 2025".
var czechMonths = map[string]int{
	"ledna": 1, "února": 2, "března": 3, "dubna": 4, "května": 5, "června": 6,
	"července": 7, "srpna": 8, "září": 9, "října": 10, "listopadu": 11, "prosince": 12,
}

// ParseDate reads a date in any of the formats users type into the editor.
// The result is midnight UTC of that calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	if t, ok := parseCzech(s); ok {
		return t, true
	}
	return time.Time{}, false
}

func parseCzech(s string) (time.Time, bool) {
	parts := strings.Fields(strings.ToLower(s))
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, ok := czechMonths[parts[1]]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(strings.TrimSuffix(parts[0], "."))
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate writes t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns whole calendar days from a to b, negative when b is
// earlier.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// NightsBetween is the number of nights spent between two authored dates.
func NightsBetween(from, to string) int {
	f, ok := ParseDate(from)
	if !ok {
		return 0
	}
	t, ok := ParseDate(to)
	if !ok {
		return 0
	}
	return max(0, DaysBetween(f, t))
}

// ShortDateRange renders "2 Mar – 5 Mar", a single day when only one date is
// readable, or "" when neither is.
func ShortDateRange(from, to string) string {
	f, okFrom := ParseDate(from)
	t, okTo := ParseDate(to)
	switch {
	case okFrom && okTo:
		if f.Equal(t) {
			return f.Format("2 Jan")
		}
		return f.Format("2 Jan") + " – " + t.Format("2 Jan")
	case okFrom:
		return f.Format("2 Jan")
	case okTo:
		return t.Format("2 Jan")
	default:
		return ""
	}
}
