package calcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pcdogyu/tradecal/internal/calendar"
	"github.com/pcdogyu/tradecal/internal/store/sqlite"
)

// SQLite keeps the calendar in the trade_cal table of a SQLite file.
type SQLite struct{}

func (SQLite) Load(path string) (*calendar.Calendar, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", calendar.ErrCacheMiss, path)
		}
		return nil, err
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		return nil, err
	}

	dates, err := sqlite.LoadTradeDates(db)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: %s holds no days", calendar.ErrCacheMiss, path)
	}
	return calendar.New(dates)
}

func (SQLite) Save(path string, cal *calendar.Calendar) error {
	if cal.Len() == 0 {
		return calendar.ErrEmptyCalendar
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlite.Migrate(db); err != nil {
		return err
	}
	return sqlite.ReplaceTradeDates(db, cal.Dates())
}
