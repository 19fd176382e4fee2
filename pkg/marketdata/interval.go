package marketdata

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

// Interval is the bar duration requested from a source, in the compact
// "1m"/"1h"/"1d" form both Polygon and Binance accept (after translation).
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalOneHour        Interval = "1h"
	IntervalFourHours      Interval = "4h"
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1w"
)

// Multiplier returns the count part of the interval for the Polygon API.
func (i Interval) Multiplier() int {
	switch i {
	case IntervalFiveMinutes:
		return 5
	case IntervalFifteenMinutes:
		return 15
	case IntervalThirtyMinutes:
		return 30
	case IntervalFourHours:
		return 4
	default:
		return 1
	}
}

// Timespan returns the unit part of the interval for the Polygon API.
func (i Interval) Timespan() models.Timespan {
	switch i {
	case IntervalOneMinute, IntervalFiveMinutes, IntervalFifteenMinutes, IntervalThirtyMinutes:
		return models.Minute
	case IntervalOneHour, IntervalFourHours:
		return models.Hour
	case IntervalOneWeek:
		return models.Week
	default:
		return models.Day
	}
}

// Duration returns the wall-clock length of one bar.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalOneMinute:
		return time.Minute
	case IntervalFiveMinutes:
		return 5 * time.Minute
	case IntervalFifteenMinutes:
		return 15 * time.Minute
	case IntervalThirtyMinutes:
		return 30 * time.Minute
	case IntervalOneHour:
		return time.Hour
	case IntervalFourHours:
		return 4 * time.Hour
	case IntervalOneWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
