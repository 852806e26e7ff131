package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/pcdogyu/tradecal/internal/config"
)

func TestNewLevelsAndFormats(t *testing.T) {
	l, c, err := New(config.LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level=%v", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter=%T", l.Formatter)
	}

	if _, _, err := New(config.LogConfig{Level: "nope", Format: "text"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestNewWritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "tradecal.log")
	l, c, err := New(config.LogConfig{Level: "info", Format: "text", File: p, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.WithField("k", "v").Info("hello")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "hello") || !strings.Contains(string(b), "k=v") {
		t.Fatalf("log=%q", b)
	}
}

func TestSetLevel(t *testing.T) {
	l := logrus.New()
	if err := SetLevel(l, "warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level=%v", l.GetLevel())
	}
	if err := SetLevel(l, "bogus"); err == nil {
		t.Fatalf("expected error")
	}
}
