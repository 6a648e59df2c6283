// Package timeutil provides shared time parsing utilities.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// CompactLayout is the vendor's 14-digit timestamp form, used both in
// archive member names and for operator-supplied start/end times.
const CompactLayout = "20060102150405"

// MillisPerHour is one hour expressed in epoch milliseconds.
const MillisPerHour int64 = 3600000

// Pre-compiled regexes for relative ("2h") and digit-only inputs
var (
	relativeTimeRe = regexp.MustCompile(`^(\d+)([mhd])$`)
	digitsRe       = regexp.MustCompile(`^\d+$`)
)

// Parse parses a time string in any of the forms the relay accepts.
//
// Examples:
//   - "now" or "" -> current time
//   - "2h" -> 2 hours ago
//   - "30m" -> 30 minutes ago
//   - "7d" -> 7 days ago
//   - "2025-12-02T06:00:00Z" -> specific RFC3339 time
//   - "20200615120000" -> compact vendor form (UTC)
//   - "1592222400000" -> epoch milliseconds
func Parse(input string) (time.Time, error) {
	if input == "" || input == "now" {
		return time.Now().UTC(), nil
	}

	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	if digitsRe.MatchString(input) {
		switch len(input) {
		case len(CompactLayout):
			return ParseCompact(input)
		case 13:
			ms, _ := strconv.ParseInt(input, 10, 64)
			return FromMillis(ms), nil
		default:
			return time.Time{}, fmt.Errorf("numeric time %q is neither a 14-digit compact timestamp nor 13-digit epoch milliseconds", input)
		}
	}

	// Parse relative (e.g., "2h", "30m", "7d") using pre-compiled regex
	matches := relativeTimeRe.FindStringSubmatch(input)
	if matches != nil {
		value, _ := strconv.Atoi(matches[1])
		unit := matches[2]
		var duration time.Duration
		switch unit {
		case "m":
			duration = time.Duration(value) * time.Minute
		case "h":
			duration = time.Duration(value) * time.Hour
		case "d":
			duration = time.Duration(value) * 24 * time.Hour
		}
		return time.Now().UTC().Add(-duration), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s - use RFC3339 (2025-12-02T06:00:00Z), compact (20251202060000), epoch ms, or relative (2h, 30m, 7d)", input)
}

// ParseCompact parses the vendor's 14-digit YYYYMMDDHHMMSS form as UTC.
func ParseCompact(s string) (time.Time, error) {
	t, err := time.Parse(CompactLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid compact timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatCompact renders a time in the vendor's 14-digit form, UTC.
func FormatCompact(t time.Time) string {
	return t.UTC().Format(CompactLayout)
}

// ToMillis converts a time to epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// FloorToHourMS truncates an epoch-millisecond value down to the exact
// hour boundary. The sync API rejects start times that are not hour-aligned.
func FloorToHourMS(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	return ms - ms%MillisPerHour
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// TimeRangeWarning represents a validation warning for a requested sync range.
type TimeRangeWarning struct {
	Message string
	Level   string // "warning" or "info"
}

// ValidateTimeRange checks a sync range for potential operator mistakes and
// returns warnings. This helps catch typos without blocking the run.
func ValidateTimeRange(start, end time.Time) []TimeRangeWarning {
	var warnings []TimeRangeWarning
	now := time.Now()

	// An end time in the future usually means a typo in the year; the
	// upstream API rejects future end dates outright.
	if end.After(now.Add(time.Minute)) {
		futureBy := end.Sub(now)
		warnings = append(warnings, TimeRangeWarning{
			Message: fmt.Sprintf("end time is %s in the future - the sync API rejects future end dates", FormatDuration(futureBy)),
			Level:   "warning",
		})
	}

	if start.After(now.Add(time.Minute)) {
		warnings = append(warnings, TimeRangeWarning{
			Message: "start time is in the future - no archives will be returned",
			Level:   "warning",
		})
	}

	// Very large ranges mean a long initial catch-up before live tailing
	duration := end.Sub(start)
	if duration > 30*24*time.Hour {
		warnings = append(warnings, TimeRangeWarning{
			Message: fmt.Sprintf("syncing %s of history - the initial catch-up may take hours", FormatDuration(duration)),
			Level:   "info",
		})
	}

	if duration < time.Hour && duration > 0 {
		warnings = append(warnings, TimeRangeWarning{
			Message: fmt.Sprintf("range is only %s - start times are floored to the hour, so this may collapse to a single request", FormatDuration(duration)),
			Level:   "info",
		})
	}

	return warnings
}

// FormatBytes converts bytes to human-readable format (e.g., "1.5 MB").
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
