package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pcdogyu/tradecal/internal/calendar"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestToken(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"user_info.toml", "[tushare]\ntoken = \"abc123\"\n"},
		{"user_info.yaml", "tushare:\n  token: abc123\n"},
		{"user_info", "[tushare]\ntoken = \"abc123\"\n"},
	}
	for _, tc := range cases {
		tok, err := NewFile(write(t, tc.name, tc.body)).Token()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if tok != "abc123" {
			t.Fatalf("%s: got=%q", tc.name, tok)
		}
	}
}

func TestTokenConfigurationErrors(t *testing.T) {
	paths := []string{
		filepath.Join(t.TempDir(), "missing.toml"),
		write(t, "no_section.toml", "[joinquant]\nuser = \"x\"\n"),
		write(t, "no_token.toml", "[tushare]\nuser = \"x\"\n"),
		write(t, "empty_token.toml", "[tushare]\ntoken = \"  \"\n"),
		write(t, "broken.toml", "[tushare\ntoken = \n"),
	}
	for _, p := range paths {
		_, err := NewFile(p).Token()
		if !errors.Is(err, calendar.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", filepath.Base(p), err)
		}
	}
}
