// Package duration parses retention periods written the way people type
// them on a command line: "12h", "7d", "4w", "3m".
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^(\d+)([hdwm])$`)

const day = 24 * time.Hour

// Parse parses Nh (hours), Nd (days), Nw (weeks) or Nm (months of 30 days).
func Parse(s string) (time.Duration, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q (use 12h, 7d, 4w or 3m)", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d := time.Duration(n)
	switch m[2] {
	case "h":
		return d * time.Hour, nil
	case "d":
		return d * day, nil
	case "w":
		return d * 7 * day, nil
	default:
		return d * 30 * day, nil
	}
}

// Before returns the instant s ago, relative to now.
func Before(now time.Time, s string) (time.Time, error) {
	d, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}
