// Package calendar holds the A-share trading calendar and the date arithmetic
// built on it: nearest-trading-day resolution and N-session offsets.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Calendar is an immutable, strictly increasing list of trading dates.
// Entries are UTC midnights; see Normalize.
type Calendar struct {
	days []time.Time
}

// DayStatus is one provider row: a calendar date and whether the market opened.
type DayStatus struct {
	Date   time.Time
	IsOpen bool
}

// New normalizes, sorts and deduplicates dates. The input slice is not retained.
func New(dates []time.Time) (*Calendar, error) {
	if len(dates) == 0 {
		return nil, ErrEmptyCalendar
	}
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		days = append(days, Normalize(d))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := days[:1]
	for _, d := range days[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return &Calendar{days: out}, nil
}

// FromStatuses keeps the open days of rows and builds a Calendar from them.
func FromStatuses(rows []DayStatus) (*Calendar, error) {
	open := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		if r.IsOpen {
			open = append(open, r.Date)
		}
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("%w: no open days among %d rows", ErrEmptyCalendar, len(rows))
	}
	return New(open)
}

func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.days)
}

// First returns the earliest trading day, or the zero time for an empty calendar.
func (c *Calendar) First() time.Time {
	if c.Len() == 0 {
		return time.Time{}
	}
	return c.days[0]
}

// Last returns the latest trading day, or the zero time for an empty calendar.
func (c *Calendar) Last() time.Time {
	if c.Len() == 0 {
		return time.Time{}
	}
	return c.days[len(c.days)-1]
}

// At returns the i-th trading day. It panics if i is out of bounds, like a slice.
func (c *Calendar) At(i int) time.Time {
	return c.days[i]
}

// IndexOf reports the position of d (normalized) in the calendar.
func (c *Calendar) IndexOf(d time.Time) (int, bool) {
	if c.Len() == 0 {
		return -1, false
	}
	d = Normalize(d)
	i := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(d) })
	if i < len(c.days) && c.days[i].Equal(d) {
		return i, true
	}
	return -1, false
}

// Contains reports whether d is a trading day.
func (c *Calendar) Contains(d time.Time) bool {
	_, ok := c.IndexOf(d)
	return ok
}

// Dates returns a copy of the trading days.
func (c *Calendar) Dates() []time.Time {
	if c.Len() == 0 {
		return nil
	}
	out := make([]time.Time, len(c.days))
	copy(out, c.days)
	return out
}

// Strings returns the trading days as YYYY-MM-DD.
func (c *Calendar) Strings() []string {
	out := make([]string, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		out = append(out, c.days[i].Format(DateLayout))
	}
	return out
}

// Equal reports whether both calendars hold the same days in the same order.
func (c *Calendar) Equal(o *Calendar) bool {
	if c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if !c.days[i].Equal(o.days[i]) {
			return false
		}
	}
	return true
}

func (c *Calendar) String() string {
	if c.Len() == 0 {
		return "calendar(empty)"
	}
	return fmt.Sprintf("calendar(%s..%s, %d days)", FormatDate(c.First()), FormatDate(c.Last()), c.Len())
}

func (c *Calendar) checkLoaded() error {
	if c.Len() == 0 {
		return ErrEmptyCalendar
	}
	return nil
}
