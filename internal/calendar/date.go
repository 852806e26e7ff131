package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ParamLayout = "20060102"
)

// Epoch is the first day requested from the provider when no start is given.
var Epoch = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Normalize strips the time of day. The calendar date is read in t's own
// location and returned as UTC midnight, which is how calendar entries are stored.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Normalize(t).Format(DateLayout)
}

var dateLayouts = []string{
	DateLayout,
	ParamLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate accepts the date spellings used by vendors and users
// ("2023-01-13", "20230113", "2023/01/13", timestamps) and returns the date only.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidArgument)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidArgument, s)
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"20060102 15:04:05",
	"20060102150405",
}

// ParseTime parses a wall-clock timestamp in loc. RFC3339 input keeps its own offset.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidArgument)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidArgument, s)
}

// Range bounds a provider request. Zero fields mean "use the default".
type Range struct {
	Start time.Time
	End   time.Time
}

// DefaultRange spans Epoch through December 31 of now's year.
func DefaultRange(now time.Time) Range {
	return Range{
		Start: Epoch,
		End:   time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Normalize fills zero bounds from DefaultRange and strips times of day.
func (r Range) Normalize(now time.Time) Range {
	def := DefaultRange(now)
	if r.Start.IsZero() {
		r.Start = def.Start
	}
	if r.End.IsZero() {
		r.End = def.End
	}
	r.Start = Normalize(r.Start)
	r.End = Normalize(r.End)
	return r
}

func (r Range) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: range start %s after end %s", ErrInvalidArgument, FormatDate(r.Start), FormatDate(r.End))
	}
	return nil
}

func (r Range) StartParam() string { return r.Start.Format(ParamLayout) }
func (r Range) EndParam() string   { return r.End.Format(ParamLayout) }

func (r Range) String() string {
	return r.StartParam() + "_" + r.EndParam()
}
