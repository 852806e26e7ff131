// Package calcache persists trading calendars on disk. The file extension
// picks the format: .db/.sqlite/.sqlite3 use SQLite, anything else Parquet.
package calcache

import (
	"path/filepath"
	"strings"

	"github.com/pcdogyu/tradecal/internal/calendar"
)

// Compile-time interface checks.
var (
	_ calendar.Cache = Auto{}
	_ calendar.Cache = Parquet{}
	_ calendar.Cache = SQLite{}
)

// ForPath returns the backend matching path's extension.
func ForPath(path string) calendar.Cache {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SQLite{}
	default:
		return Parquet{}
	}
}

// Auto dispatches every call through ForPath.
type Auto struct{}

func (Auto) Load(path string) (*calendar.Calendar, error) {
	return ForPath(path).Load(path)
}

func (Auto) Save(path string, cal *calendar.Calendar) error {
	return ForPath(path).Save(path, cal)
}
