package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSameDay(t *testing.T) {
	base := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		a, b   time.Time
		expect bool
	}{
		{"same instant", base, base, true},
		{"same day different hours", base, base.Add(-20 * time.Hour), true},
		{"calendar comparison, not elapsed 24h", base, base.Add(time.Hour), false},
		{"different days", base, base.AddDate(0, 0, -1), false},
		{"a year apart", base, base.AddDate(1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, SameDay(tt.a, tt.b))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		from   time.Time
		to     time.Time
		expect int
	}{
		{"same day", base, base.Add(3 * time.Hour), 0},
		{"ten days ahead", base, base.AddDate(0, 0, 10), 10},
		{"time of day does not matter", base, base.AddDate(0, 0, 10).Add(-17 * time.Hour), 10},
		{"negative when to is earlier", base, base.AddDate(0, 0, -4), -4},
		{"across a month boundary", base, time.Date(2026, 9, 2, 1, 0, 0, 0, time.UTC), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, DaysBetween(tt.from, tt.to))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	got := StartOfDay(time.Date(2026, 8, 29, 18, 45, 12, 999, time.UTC))
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), got)
}
