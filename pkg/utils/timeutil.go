package utils

import (
	"time"
)

// Eastern is the US exchange time zone (America/New_York).
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Last resort when the tz database is absent. Pins EST, so
		// session boundaries run an hour late while daylight saving
		// is in effect.
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// MarketSession identifies which trading session a wall-clock instant
// falls into on the exchange's local clock.
type MarketSession string

const (
	SessionPremarket  MarketSession = "premarket"
	SessionRegular    MarketSession = "regular"
	SessionAfterHours MarketSession = "afterhours"
	SessionClosed     MarketSession = "closed"
)

// Session bands in minutes since midnight, Eastern.
// Premarket [04:00, 09:30), regular [09:30, 16:00), after-hours [16:00, 20:00).
const (
	premarketOpenMin = 4 * 60
	regularOpenMin   = 9*60 + 30
	regularCloseMin  = 16 * 60
	afterHoursEndMin = 20 * 60
)

// Session classifies the given instant into a market session. The instant
// is converted to Eastern; weekends are always closed. Session takes the
// clock explicitly so tests never depend on the real time of day.
func Session(t time.Time) MarketSession {
	et := t.In(Eastern)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return SessionClosed
	}

	minute := et.Hour()*60 + et.Minute()
	switch {
	case minute >= premarketOpenMin && minute < regularOpenMin:
		return SessionPremarket
	case minute >= regularOpenMin && minute < regularCloseMin:
		return SessionRegular
	case minute >= regularCloseMin && minute < afterHoursEndMin:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// TradingDay returns the weekday name to attribute price action to.
// Saturday and Sunday collapse to "Friday": published copy must never
// claim markets moved on a weekend.
func TradingDay(t time.Time) string {
	et := t.In(Eastern)
	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return "Friday"
	default:
		return et.Weekday().String()
	}
}

// NowEastern returns the current time in the exchange time zone.
func NowEastern() time.Time {
	return time.Now().In(Eastern)
}

// FormatDateTimeEastern formats a time.Time to "2006-01-02 15:04:05 ET".
func FormatDateTimeEastern(t time.Time) string {
	return t.In(Eastern).Format("2006-01-02 15:04:05 ET")
}
