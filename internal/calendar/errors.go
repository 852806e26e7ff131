package calendar

import "errors"

var (
	// ErrConfiguration: credential file missing, unreadable, or lacking tushare.token.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider: the calendar provider failed or stayed empty after one retry.
	ErrProvider = errors.New("calendar provider error")
	// ErrOutOfRange: a date or computed offset falls outside the loaded calendar.
	ErrOutOfRange = errors.New("date out of calendar range")
	// ErrInvalidArgument: non-positive step count, unknown direction, bad date string.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCacheMiss: no persisted calendar at the requested path.
	ErrCacheMiss = errors.New("calendar cache miss")
	// ErrEmptyCalendar: a calendar needs at least one trading day.
	ErrEmptyCalendar = errors.New("empty trading calendar")
)
