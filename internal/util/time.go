package util

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// statsPeriodRe matches relative lookback tokens such as "90m", "24h",
// "14d" or "4w".
var statsPeriodRe = regexp.MustCompile(`^\d+[smhdw]$`)

// ValidStatsPeriod reports whether s is a well-formed relative period.
func ValidStatsPeriod(s string) bool {
	return statsPeriodRe.MatchString(s)
}

// ParseTimeFlexible accepts RFC3339 (with or without sub-second
// precision) or epoch milliseconds and normalizes to UTC.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, timeStr)
	if err == nil {
		return t.UTC(), nil
	}

	ms, err := strconv.ParseInt(timeStr, 10, 64)
	if err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}
