package main

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// durationPattern matches relative date strings like "7d", "2w", "3m"
var durationPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// parseWhen turns a CLI date argument into a time. Accepts an absolute
// date ("2026-09-15"), a relative duration from today ("14d", "2w",
// "3m", "1y"), or "today"/"tomorrow".
func parseWhen(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	switch s {
	case "today":
		return now, nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}

	matches := durationPattern.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or a duration like 14d, 2w, 3m, 1y)", s)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil || num < 0 {
		return time.Time{}, fmt.Errorf("invalid number in duration: %s", matches[1])
	}

	switch matches[2] {
	case "d":
		return now.AddDate(0, 0, num), nil
	case "w":
		return now.AddDate(0, 0, num*7), nil
	case "m":
		return now.AddDate(0, num, 0), nil
	case "y":
		return now.AddDate(num, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid duration unit: %s (expected d, w, m, or y)", matches[2])
}
