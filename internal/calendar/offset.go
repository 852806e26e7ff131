package calendar

import (
	"fmt"
	"time"
)

// SessionsBefore returns the trading day n sessions back from d.
//
// When d is a trading day, inclusive counts d itself as session 1
// (n=1 returns d); exclusive starts counting at the previous session.
// When d is not a trading day it is first resolved backward, and the resolved
// day is always session 1 whatever inclusive says.
func (c *Calendar) SessionsBefore(d time.Time, n int, inclusive bool) (time.Time, error) {
	return c.offset(d, n, inclusive, Backward)
}

// SessionsAfter mirrors SessionsBefore looking forward.
func (c *Calendar) SessionsAfter(d time.Time, n int, inclusive bool) (time.Time, error) {
	return c.offset(d, n, inclusive, Forward)
}

func (c *Calendar) offset(d time.Time, n int, inclusive bool, dir Direction) (time.Time, error) {
	if n <= 0 {
		return time.Time{}, fmt.Errorf("%w: n must be a positive integer, got %d", ErrInvalidArgument, n)
	}
	if err := c.checkLoaded(); err != nil {
		return time.Time{}, err
	}

	d = Normalize(d)
	steps := n - 1
	idx, ok := c.IndexOf(d)
	if ok {
		if !inclusive {
			steps = n
		}
	} else {
		resolved, err := c.Resolve(d, dir)
		if err != nil {
			return time.Time{}, err
		}
		idx, _ = c.IndexOf(resolved)
	}

	target := idx + int(dir)*steps
	if target < 0 || target >= c.Len() {
		return time.Time{}, fmt.Errorf("%w: %d sessions %s %s leaves [%s, %s]", ErrOutOfRange,
			n, dirWord(dir), FormatDate(d), FormatDate(c.First()), FormatDate(c.Last()))
	}
	return c.days[target], nil
}

func dirWord(dir Direction) string {
	if dir == Backward {
		return "before"
	}
	return "after"
}
