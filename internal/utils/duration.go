// internal/utils/duration.go
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration reads "mm:ss" (or "hh:mm:ss") into seconds.
func ParseDuration(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q: want mm:ss", s)
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid duration %q: field out of range", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatDuration renders seconds as zero-padded "mm:ss". Minutes are not
// wrapped into hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// SumDurations adds up mm:ss values and returns the total as mm:ss.
func SumDurations(durations []string) (string, error) {
	total := 0
	for _, d := range durations {
		secs, err := ParseDuration(d)
		if err != nil {
			return "", err
		}
		total += secs
	}
	return FormatDuration(total), nil
}
