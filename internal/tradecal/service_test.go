package tradecal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pcdogyu/tradecal/internal/calcache"
	"github.com/pcdogyu/tradecal/internal/calendar"
	"github.com/pcdogyu/tradecal/internal/config"
	"github.com/pcdogyu/tradecal/internal/market"
	"github.com/pcdogyu/tradecal/internal/symbol"
)

var fixtureDays = []string{
	"2022-12-30",
	"2023-01-03", "2023-01-04", "2023-01-05", "2023-01-06",
	"2023-01-09", "2023-01-10", "2023-01-11", "2023-01-12", "2023-01-13",
	"2023-01-16", "2023-01-17", "2023-01-18", "2023-01-19", "2023-01-20",
}

func day(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type env struct {
	svc   *Service
	cfg   config.Config
	calls *int32
}

// newEnv writes the fixture calendar to a parquet cache and points the
// provider at a stub that serves two open days.
func newEnv(t *testing.T, seed bool) env {
	t.Helper()
	dir := t.TempDir()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"code":0,"data":{"fields":["cal_date","is_open"],"items":[["20240102",1],["20240103",1],["20240106",0]]}}`))
	}))
	t.Cleanup(srv.Close)

	creds := filepath.Join(dir, "user_info.toml")
	if err := os.WriteFile(creds, []byte("[tushare]\ntoken = \"tok\"\n"), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}

	cfg := config.Config{
		CachePath:       filepath.Join(dir, "trade_cal.parquet"),
		CredentialsPath: creds,
		Provider:        config.ProviderConfig{URL: srv.URL, RetryDelaySeconds: -1},
	}
	if err := config.NormalizeAndValidate(&cfg); err != nil {
		t.Fatalf("config: %v", err)
	}

	if seed {
		var ds []time.Time
		for _, s := range fixtureDays {
			ds = append(ds, day(s))
		}
		cal, err := calendar.New(ds)
		if err != nil {
			t.Fatalf("calendar: %v", err)
		}
		if err := (calcache.Parquet{}).Save(cfg.CachePath, cal); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	svc, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return env{svc: svc, cfg: cfg, calls: &calls}
}

func TestServiceQueries(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	got, err := e.svc.ResolveTradingDate(ctx, day("2023-01-07"), calendar.Forward)
	if err != nil || got != "2023-01-09" {
		t.Fatalf("resolve forward=%q err=%v", got, err)
	}
	got, err = e.svc.ResolveTradingDate(ctx, day("2023-01-07"), calendar.Backward)
	if err != nil || got != "2023-01-06" {
		t.Fatalf("resolve backward=%q err=%v", got, err)
	}
	got, err = e.svc.SessionsBefore(ctx, day("2023-01-10"), 3, true)
	if err != nil || got != "2023-01-06" {
		t.Fatalf("before=%q err=%v", got, err)
	}
	got, err = e.svc.SessionsAfter(ctx, day("2023-01-10"), 3, false)
	if err != nil || got != "2023-01-13" {
		t.Fatalf("after=%q err=%v", got, err)
	}
	open, err := e.svc.IsTradingDay(ctx, day("2023-01-08"))
	if err != nil || open {
		t.Fatalf("trading day=%v err=%v", open, err)
	}
	if _, err := e.svc.SessionsAfter(ctx, day("2023-01-18"), 5, true); !errors.Is(err, calendar.ErrOutOfRange) {
		t.Fatalf("err=%v", err)
	}
	if n := atomic.LoadInt32(e.calls); n != 0 {
		t.Fatalf("provider called %d times with a warm cache", n)
	}
}

func TestServiceSessionPhase(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	loc := market.ShanghaiLocation()

	cases := []struct {
		ts   time.Time
		want market.Phase
	}{
		{time.Date(2023, 1, 9, 9, 22, 0, 0, loc), market.PreAuction2},
		{time.Date(2023, 1, 9, 10, 0, 0, 0, loc), market.Continuous},
		{time.Date(2023, 1, 9, 14, 58, 0, 0, loc), market.PreAuction4},
		{time.Date(2023, 1, 8, 10, 0, 0, 0, loc), market.Other},
	}
	for _, tc := range cases {
		got, err := e.svc.SessionPhase(ctx, tc.ts)
		if err != nil {
			t.Fatalf("SessionPhase(%v): %v", tc.ts, err)
		}
		if got != tc.want {
			t.Fatalf("SessionPhase(%v)=%v want %v", tc.ts, got, tc.want)
		}
	}
}

func TestServiceFetchesOnMiss(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	cal, err := e.svc.LoadCalendar(ctx)
	if err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if strings.Join(cal.Strings(), ",") != "2024-01-02,2024-01-03" {
		t.Fatalf("cal=%v", cal.Strings())
	}
	if _, err := os.Stat(e.cfg.CachePath); err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if _, err := e.svc.LoadCalendar(ctx); err != nil {
		t.Fatalf("LoadCalendar again: %v", err)
	}
	if n := atomic.LoadInt32(e.calls); n != 1 {
		t.Fatalf("provider calls=%d", n)
	}
}

func TestServiceReloadAndRefresh(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	if _, err := e.svc.LoadCalendar(ctx); err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	cal, err := e.svc.Reload(ctx)
	if err != nil || cal.Len() != len(fixtureDays) {
		t.Fatalf("Reload len=%d err=%v", cal.Len(), err)
	}

	cal, err = e.svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cal.Len() != 2 {
		t.Fatalf("refreshed len=%d", cal.Len())
	}
	got, err := e.svc.ResolveTradingDate(ctx, day("2024-01-02"), calendar.Forward)
	if err != nil || got != "2024-01-02" {
		t.Fatalf("after refresh=%q err=%v", got, err)
	}
}

func TestServiceMissingCredentials(t *testing.T) {
	e := newEnv(t, false)
	e.cfg.CredentialsPath = filepath.Join(t.TempDir(), "absent.toml")
	svc, err := New(e.cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := svc.LoadCalendar(context.Background()); !errors.Is(err, calendar.ErrConfiguration) {
		t.Fatalf("err=%v", err)
	}
}

func TestServiceSymbols(t *testing.T) {
	e := newEnv(t, true)
	got, err := e.svc.FormatSymbols([]string{"600000", "000001.SZ"}, symbol.Goldminer)
	if err != nil {
		t.Fatalf("FormatSymbols: %v", err)
	}
	if fmt.Sprint(got) != "[SHSE.600000 SZSE.000001]" {
		t.Fatalf("got=%v", got)
	}
	one, err := e.svc.FormatSymbol("600000", symbol.JoinQuant)
	if err != nil || one != "600000.XSHG" {
		t.Fatalf("one=%q err=%v", one, err)
	}
}

func TestServiceToday(t *testing.T) {
	e := newEnv(t, true)
	e.svc.now = func() time.Time { return time.Date(2023, 1, 8, 20, 0, 0, 0, time.UTC) }
	if got := calendar.FormatDate(e.svc.Today()); got != "2023-01-09" {
		t.Fatalf("today=%q", got)
	}
}

func TestServiceIsTradingTime(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	loc := market.ShanghaiLocation()

	cases := []struct {
		ts   time.Time
		want bool
	}{
		{time.Date(2023, 1, 9, 10, 0, 0, 0, loc), true},
		{time.Date(2023, 1, 9, 2, 0, 0, 0, time.UTC), true}, // 10:00 Shanghai
		{time.Date(2023, 1, 9, 12, 0, 0, 0, loc), false},
		{time.Date(2023, 1, 9, 9, 26, 0, 0, loc), false},
		{time.Date(2023, 1, 8, 10, 0, 0, 0, loc), false},
	}
	for _, tc := range cases {
		got, err := e.svc.IsTradingTime(ctx, tc.ts)
		if err != nil {
			t.Fatalf("IsTradingTime(%v): %v", tc.ts, err)
		}
		if got != tc.want {
			t.Fatalf("IsTradingTime(%v)=%v want %v", tc.ts, got, tc.want)
		}
	}
}
