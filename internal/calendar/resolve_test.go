package calendar

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	cal := fixture(t)
	cases := []struct {
		in   string
		dir  Direction
		want string
	}{
		{"2022-12-31", Backward, "2022-12-30"},
		{"2022-12-31", Forward, "2023-01-03"},
		{"2023-01-01", Backward, "2022-12-30"},
		{"2023-01-02", Forward, "2023-01-03"},
		{"2023-01-07", Backward, "2023-01-06"},
		{"2023-01-08", Forward, "2023-01-09"},
		{"2023-01-15", Backward, "2023-01-13"},
		{"2023-01-13", Forward, "2023-01-13"},
	}
	for _, tc := range cases {
		got, err := cal.Resolve(day(t, tc.in), tc.dir)
		if err != nil {
			t.Fatalf("in=%s dir=%s: %v", tc.in, tc.dir, err)
		}
		if FormatDate(got) != tc.want {
			t.Fatalf("in=%s dir=%s: got=%s want=%s", tc.in, tc.dir, FormatDate(got), tc.want)
		}
	}
}

func TestResolveTradingDayIsIdentity(t *testing.T) {
	cal := fixture(t)
	for _, d := range cal.Dates() {
		for _, dir := range []Direction{Backward, Forward} {
			got, err := cal.Resolve(d, dir)
			if err != nil {
				t.Fatalf("%s %s: %v", FormatDate(d), dir, err)
			}
			if !got.Equal(d) {
				t.Fatalf("%s %s: got %s", FormatDate(d), dir, FormatDate(got))
			}
		}
	}
}

func TestResolveOutOfRange(t *testing.T) {
	cal := fixture(t)
	for _, in := range []string{"2022-12-29", "2021-06-01", "2023-01-21", "2024-01-01"} {
		for _, dir := range []Direction{Backward, Forward} {
			if _, err := cal.Resolve(day(t, in), dir); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("in=%s dir=%s: expected ErrOutOfRange, got %v", in, dir, err)
			}
		}
	}
}

func TestResolveRejectsUnknownDirection(t *testing.T) {
	cal := fixture(t)
	for _, dir := range []Direction{0, 2, -2} {
		if _, err := cal.Resolve(day(t, "2023-01-13"), dir); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("dir=%d: expected ErrInvalidArgument, got %v", dir, err)
		}
	}
}

func TestResolveEmptyCalendar(t *testing.T) {
	var cal *Calendar
	if _, err := cal.Resolve(day(t, "2023-01-13"), Backward); !errors.Is(err, ErrEmptyCalendar) {
		t.Fatalf("expected ErrEmptyCalendar, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"backward": Backward, "-1": Backward, "Prev": Backward, "forward": Forward, "1": Forward, "next": Forward} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Fatalf("in=%s: got=%v err=%v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
