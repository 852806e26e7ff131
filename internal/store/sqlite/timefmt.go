package sqlite

import "time"

const tradeDateLayout = "2006-01-02"

// formatTradeDate renders the calendar date of t with fixed width,
// so TEXT ordering matches date ordering.
func formatTradeDate(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(tradeDateLayout)
}

func parseTradeDate(s string) (time.Time, error) {
	return time.Parse(tradeDateLayout, s)
}
