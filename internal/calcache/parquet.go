package calcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/pcdogyu/tradecal/internal/calendar"
)

// DayRecord is the Parquet schema of a cached calendar: one row per open day.
type DayRecord struct {
	CalDate int64 `parquet:"cal_date,timestamp(millisecond)"` // Unix ms of UTC midnight
}

// Parquet stores the calendar as a single-column Parquet file.
type Parquet struct{}

func (Parquet) Load(path string) (*calendar.Calendar, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", calendar.ErrCacheMiss, path)
		}
		return nil, err
	}
	records, err := parquet.ReadFile[DayRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s holds no days", calendar.ErrCacheMiss, path)
	}
	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		dates = append(dates, time.UnixMilli(r.CalDate).UTC())
	}
	return calendar.New(dates)
}

// Save writes to a temporary sibling and renames it over path.
func (Parquet) Save(path string, cal *calendar.Calendar) error {
	if cal.Len() == 0 {
		return calendar.ErrEmptyCalendar
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]DayRecord, 0, cal.Len())
	for _, d := range cal.Dates() {
		records = append(records, DayRecord{CalDate: d.UnixMilli()})
	}

	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
