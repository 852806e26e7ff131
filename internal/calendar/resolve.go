package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Direction selects which way Resolve steps from a non-trading day.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Backward:
		return "backward"
	case Forward:
		return "forward"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func (d Direction) valid() bool {
	return d == Backward || d == Forward
}

// ParseDirection accepts backward/back/prev/-1 and forward/fwd/next/1.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "backward", "back", "prev", "-1":
		return Backward, nil
	case "forward", "fwd", "next", "1", "+1":
		return Forward, nil
	}
	return 0, fmt.Errorf("%w: direction %q", ErrInvalidArgument, s)
}

// Resolve returns d itself when it is a trading day, otherwise the nearest
// trading day in direction dir.
//
// Resolve walks one calendar day at a time, so the cost is the gap to the
// next trading day: at most about ten days, around the Spring Festival.
func (c *Calendar) Resolve(d time.Time, dir Direction) (time.Time, error) {
	if !dir.valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidArgument, dir)
	}
	if err := c.checkLoaded(); err != nil {
		return time.Time{}, err
	}

	d = Normalize(d)
	if c.Contains(d) {
		return d, nil
	}
	first, last := c.First(), c.Last()
	if d.Before(first) || d.After(last) {
		return time.Time{}, c.outOfRange(d)
	}

	for {
		d = d.AddDate(0, 0, int(dir))
		if c.Contains(d) {
			return d, nil
		}
		// Unreachable after the entry check, kept as a hard stop.
		if d.Before(first) || d.After(last) {
			return time.Time{}, c.outOfRange(d)
		}
	}
}

func (c *Calendar) outOfRange(d time.Time) error {
	return fmt.Errorf("%w: %s not within [%s, %s]", ErrOutOfRange,
		FormatDate(d), FormatDate(c.First()), FormatDate(c.Last()))
}
