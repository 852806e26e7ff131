// Package credentials reads the tushare token from the user's info file:
//
//	[tushare]
//	token = "xxxx"
//
// The file is TOML by default; viper picks other formats by extension.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pcdogyu/tradecal/internal/calendar"
)

const DefaultPath = "~/.config/user_info.toml"

var _ calendar.CredentialSource = (*File)(nil)

// File is a credential file on disk. An empty Path means DefaultPath.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

// Token returns tushare.token. A missing file, an unreadable file, a missing
// [tushare] table or an empty token all wrap calendar.ErrConfiguration.
func (f *File) Token() (string, error) {
	path := f.Path
	if path == "" {
		path = DefaultPath
	}
	path, err := calendar.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", calendar.ErrConfiguration, err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: no credential file at %s", calendar.ErrConfiguration, path)
		}
		return "", fmt.Errorf("%w: %w", calendar.ErrConfiguration, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("%w: read %s: %w", calendar.ErrConfiguration, path, err)
	}
	if !v.IsSet("tushare") {
		return "", fmt.Errorf("%w: no tushare section in %s", calendar.ErrConfiguration, path)
	}
	tok := strings.TrimSpace(v.GetString("tushare.token"))
	if tok == "" {
		return "", fmt.Errorf("%w: tushare.token missing in %s", calendar.ErrConfiguration, path)
	}
	return tok, nil
}
