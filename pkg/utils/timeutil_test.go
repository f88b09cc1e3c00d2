package utils

import (
	"testing"
	"time"
)

// et builds an Eastern timestamp for a given date and clock time.
func et(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, Eastern)
}

func TestSessionBands(t *testing.T) {
	// 2026-02-18 is a Wednesday.
	tests := []struct {
		name string
		at   time.Time
		want MarketSession
	}{
		{"midnight", et(2026, 2, 18, 0, 0), SessionClosed},
		{"3:59 before premarket", et(2026, 2, 18, 3, 59), SessionClosed},
		{"4:00 premarket open", et(2026, 2, 18, 4, 0), SessionPremarket},
		{"9:29 still premarket", et(2026, 2, 18, 9, 29), SessionPremarket},
		{"9:30 regular open", et(2026, 2, 18, 9, 30), SessionRegular},
		{"noon", et(2026, 2, 18, 12, 0), SessionRegular},
		{"15:59 still regular", et(2026, 2, 18, 15, 59), SessionRegular},
		{"16:00 after-hours", et(2026, 2, 18, 16, 0), SessionAfterHours},
		{"19:59 still after-hours", et(2026, 2, 18, 19, 59), SessionAfterHours},
		{"20:00 closed", et(2026, 2, 18, 20, 0), SessionClosed},
		{"23:30 closed", et(2026, 2, 18, 23, 30), SessionClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Session(tt.at); got != tt.want {
				t.Errorf("Session(%v) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestSessionWeekend(t *testing.T) {
	// 2026-02-21 is a Saturday, 2026-02-22 a Sunday. Any time of day is closed.
	for _, day := range []int{21, 22} {
		for _, hour := range []int{0, 5, 10, 14, 17, 21} {
			at := et(2026, 2, day, hour, 15)
			if got := Session(at); got != SessionClosed {
				t.Errorf("Session(%v) = %s, want closed on weekend", at, got)
			}
		}
	}
}

func TestSessionConvertsToEastern(t *testing.T) {
	// 14:30 UTC in winter is 09:30 Eastern — regular open.
	utc := time.Date(2026, 2, 18, 14, 30, 0, 0, time.UTC)
	if got := Session(utc); got != SessionRegular {
		t.Errorf("Session(14:30 UTC) = %s, want regular", got)
	}
}

func TestTradingDayWeekdays(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{et(2026, 2, 16, 10, 0), "Monday"},
		{et(2026, 2, 17, 10, 0), "Tuesday"},
		{et(2026, 2, 18, 10, 0), "Wednesday"},
		{et(2026, 2, 19, 10, 0), "Thursday"},
		{et(2026, 2, 20, 10, 0), "Friday"},
	}
	for _, tt := range tests {
		if got := TradingDay(tt.at); got != tt.want {
			t.Errorf("TradingDay(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestTradingDayNeverWeekend(t *testing.T) {
	// Walk every day of a month; the resolver must never emit a weekend name.
	for day := 1; day <= 28; day++ {
		got := TradingDay(et(2026, 2, day, 12, 0))
		if got == "Saturday" || got == "Sunday" {
			t.Fatalf("TradingDay(Feb %d) = %q; weekend names must collapse to Friday", day, got)
		}
	}

	if got := TradingDay(et(2026, 2, 21, 12, 0)); got != "Friday" {
		t.Errorf("TradingDay(Saturday) = %q, want Friday", got)
	}
	if got := TradingDay(et(2026, 2, 22, 12, 0)); got != "Friday" {
		t.Errorf("TradingDay(Sunday) = %q, want Friday", got)
	}
}
