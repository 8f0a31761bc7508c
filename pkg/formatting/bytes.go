// Package formatting parses human-entered sizes and model-produced JSON.
package formatting

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

var unitShift = map[string]uint{
	"":   0,
	"B":  0,
	"KB": 10,
	"MB": 20,
	"GB": 30,
	"TB": 40,
}

// FormatBytes renders n using base-1024 units with one decimal place.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	f := float64(n)
	for _, unit := range []string{"KB", "MB", "GB"} {
		f /= 1024
		if f < 1024 {
			return fmt.Sprintf("%.1f %s", f, unit)
		}
	}
	return fmt.Sprintf("%.1f TB", f/1024)
}

// ParseBytes parses a size such as "200MB" or "1.5 GB" (base-1024,
// case-insensitive). A bare number is a byte count.
func ParseBytes(s string) (int64, error) {
	m := bytesPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	shift, ok := unitShift[strings.ToUpper(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	return int64(value * float64(uint64(1)<<shift)), nil
}
