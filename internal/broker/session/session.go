// Package session computes exchange session clocks from fixed weekday hours.
// Exchange holidays are not modelled.
package session

import (
	"time"
	_ "time/tzdata"

	"sentiment-trading-bot/internal/types"
)

// Hours is a weekday session [Open, Close) in the exchange's timezone.
type Hours struct {
	Location    string
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

var (
	NYSE = Hours{Location: "America/New_York", OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0}
	NSE  = Hours{Location: "Asia/Kolkata", OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30}
)

// Now returns the current time in the exchange timezone.
func (h Hours) Now() (time.Time, error) {
	loc, err := time.LoadLocation(h.Location)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}

// Clock computes open/next-open/next-close for now, which must already be in
// the exchange's location.
func Clock(now time.Time, h Hours) types.Clock {
	at := func(t time.Time, hour, minute int) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
	}
	weekday := func(t time.Time) bool {
		return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
	}

	opens, closes := at(now, h.OpenHour, h.OpenMinute), at(now, h.CloseHour, h.CloseMinute)
	c := types.Clock{Timestamp: now}
	if weekday(now) && !now.Before(opens) && now.Before(closes) {
		c.IsOpen = true
		c.NextClose = closes
	}

	next := opens
	if !weekday(now) || !now.Before(opens) {
		next = opens.AddDate(0, 0, 1)
	}
	for !weekday(next) {
		next = next.AddDate(0, 0, 1)
	}
	c.NextOpen = next
	if !c.IsOpen {
		c.NextClose = at(next, h.CloseHour, h.CloseMinute)
	}
	return c
}
