// Package tradecal is the entry point used by the CLI and the HTTP server.
// It wires the calendar store to tushare, the credential file and the
// on-disk cache, and answers date questions as YYYY-MM-DD strings.
package tradecal

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pcdogyu/tradecal/internal/calcache"
	"github.com/pcdogyu/tradecal/internal/calendar"
	"github.com/pcdogyu/tradecal/internal/config"
	"github.com/pcdogyu/tradecal/internal/credentials"
	"github.com/pcdogyu/tradecal/internal/market"
	"github.com/pcdogyu/tradecal/internal/symbol"
	"github.com/pcdogyu/tradecal/internal/tushare"
)

type Service struct {
	store *calendar.Store
	path  string
	now   func() time.Time
}

// New builds a Service from application config.
func New(cfg config.Config, log logrus.FieldLogger) (*Service, error) {
	client := tushare.NewClient(tushare.Options{
		URL:           cfg.Provider.URL,
		Timeout:       cfg.Provider.Timeout(),
		MaxAttempts:   cfg.Provider.MaxAttempts,
		RatePerMinute: cfg.Provider.RatePerMinute,
		Logger:        log,
	})
	store, err := calendar.NewStore(calendar.StoreOptions{
		Provider:    client,
		Credentials: credentials.NewFile(cfg.CredentialsPath),
		Cache:       calcache.Auto{},
		DefaultPath: cfg.CachePath,
		RetryDelay:  cfg.Provider.RetryDelay(),
	})
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, ""), nil
}

// NewWithStore serves the calendar stored at path; empty means the store's default.
func NewWithStore(store *calendar.Store, path string) *Service {
	return &Service{store: store, path: path, now: time.Now}
}

func (s *Service) Store() *calendar.Store { return s.store }

// Today is the current date in Asia/Shanghai, the default cursor.
func (s *Service) Today() time.Time {
	return calendar.Normalize(s.now().In(market.ShanghaiLocation()))
}

// Now is the current instant in Asia/Shanghai.
func (s *Service) Now() time.Time {
	return s.now().In(market.ShanghaiLocation())
}

// LoadCalendar returns the memoized calendar, reading or fetching it on first use.
func (s *Service) LoadCalendar(ctx context.Context) (*calendar.Calendar, error) {
	return s.store.LoadOrFetch(ctx, s.path)
}

func (s *Service) ResolveTradingDate(ctx context.Context, d time.Time, dir calendar.Direction) (string, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return "", err
	}
	got, err := cal.Resolve(d, dir)
	if err != nil {
		return "", err
	}
	return calendar.FormatDate(got), nil
}

func (s *Service) SessionsBefore(ctx context.Context, d time.Time, n int, inclusive bool) (string, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return "", err
	}
	got, err := cal.SessionsBefore(d, n, inclusive)
	if err != nil {
		return "", err
	}
	return calendar.FormatDate(got), nil
}

func (s *Service) SessionsAfter(ctx context.Context, d time.Time, n int, inclusive bool) (string, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return "", err
	}
	got, err := cal.SessionsAfter(d, n, inclusive)
	if err != nil {
		return "", err
	}
	return calendar.FormatDate(got), nil
}

func (s *Service) IsTradingDay(ctx context.Context, d time.Time) (bool, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return false, err
	}
	return cal.Contains(d), nil
}

// SessionPhase classifies t by its own wall clock.
func (s *Service) SessionPhase(ctx context.Context, t time.Time) (market.Phase, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return market.Other, err
	}
	return market.Classify(t, cal), nil
}

// IsTradingTime reports whether t (converted to Asia/Shanghai) falls in a
// continuous session of a trading day.
func (s *Service) IsTradingTime(ctx context.Context, t time.Time) (bool, error) {
	cal, err := s.LoadCalendar(ctx)
	if err != nil {
		return false, err
	}
	return market.IsCNTradingTime(t, cal), nil
}

func (s *Service) FormatSymbol(sym string, style symbol.Style) (string, error) {
	return symbol.Format(sym, style)
}

func (s *Service) FormatSymbols(syms []string, style symbol.Style) ([]string, error) {
	return symbol.FormatAll(syms, style)
}

// Reload drops the memoized calendar and reads it again from disk.
func (s *Service) Reload(ctx context.Context) (*calendar.Calendar, error) {
	return s.store.Reload(ctx, s.path)
}

// Refresh re-fetches the default range from tushare and overwrites the cache.
func (s *Service) Refresh(ctx context.Context) (*calendar.Calendar, error) {
	return s.store.Refresh(ctx, s.path)
}
