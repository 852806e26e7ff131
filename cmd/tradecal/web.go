package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pcdogyu/tradecal/internal/calendar"
	"github.com/pcdogyu/tradecal/internal/config"
	"github.com/pcdogyu/tradecal/internal/logging"
	"github.com/pcdogyu/tradecal/internal/market"
	"github.com/pcdogyu/tradecal/internal/runtimecfg"
	"github.com/pcdogyu/tradecal/internal/symbol"
	"github.com/pcdogyu/tradecal/internal/tradecal"
)

func newWebServer(mgr *runtimecfg.Manager, svc *tradecal.Service, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// GET /api/calendar[?dates=1]
	mux.HandleFunc("/api/calendar", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		cal, err := svc.LoadCalendar(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCalendarView(cal, parseFlag(r.URL.Query().Get("dates"), false)))
	})

	// GET /api/trading-day?date=2023-01-13
	mux.HandleFunc("/api/trading-day", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d, err := dateParam(svc, r)
		if err != nil {
			writeError(w, err)
			return
		}
		open, err := svc.IsTradingDay(r.Context(), d)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": calendar.FormatDate(d), "is_trading_day": open})
	})

	// GET /api/resolve?date=2023-01-07[&direction=forward], backward by default
	mux.HandleFunc("/api/resolve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d, err := dateParam(svc, r)
		if err != nil {
			writeError(w, err)
			return
		}
		dir := calendar.Backward
		if s := r.URL.Query().Get("direction"); s != "" {
			if dir, err = calendar.ParseDirection(s); err != nil {
				writeError(w, err)
				return
			}
		}
		got, err := svc.ResolveTradingDate(r.Context(), d, dir)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": calendar.FormatDate(d), "direction": dir.String(), "trading_day": got})
	})

	// GET /api/before?date=2023-01-15&n=2&inclusive=false
	mux.HandleFunc("/api/before", offsetHandler(svc, svc.SessionsBefore))
	mux.HandleFunc("/api/after", offsetHandler(svc, svc.SessionsAfter))

	// GET /api/phase?ts=2023-01-13T09:22:00 (Asia/Shanghai unless an offset is given)
	mux.HandleFunc("/api/phase", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ts := svc.Now()
		if s := r.URL.Query().Get("ts"); s != "" {
			t, err := calendar.ParseTime(s, market.ShanghaiLocation())
			if err != nil {
				writeError(w, err)
				return
			}
			ts = t.In(market.ShanghaiLocation())
		}
		phase, err := svc.SessionPhase(r.Context(), ts)
		if err != nil {
			writeError(w, err)
			return
		}
		trading, err := svc.IsTradingTime(r.Context(), ts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ts":         ts.Format(time.RFC3339),
			"phase":      phase,
			"auction":    market.IsAuction(phase),
			"can_cancel": market.CanCancel(phase),
			"trading":    trading,
		})
	})

	// GET /api/symbols?s=600000,000001&style=gm
	mux.HandleFunc("/api/symbols", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		style, err := symbol.ParseStyle(r.URL.Query().Get("style"))
		if err != nil {
			writeError(w, err)
			return
		}
		raw := r.URL.Query().Get("s")
		if strings.TrimSpace(raw) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "s is required (e.g. 600000,000001)"})
			return
		}
		syms := strings.Split(raw, ",")
		out, err := svc.FormatSymbols(syms, style)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"style": style.String(), "symbols": out})
	})

	// POST /api/reload[?fetch=1] re-reads the cache, or re-fetches from tushare.
	mux.HandleFunc("/api/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var (
			cal *calendar.Calendar
			err error
		)
		if parseFlag(r.URL.Query().Get("fetch"), false) {
			cal, err = svc.Refresh(r.Context())
		} else {
			cal, err = svc.Reload(r.Context())
		}
		if err != nil {
			writeError(w, err)
			return
		}
		log.WithField("len", cal.Len()).Info("calendar reloaded")
		writeJSON(w, http.StatusOK, toCalendarView(cal, false))
	})

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, toConfigView(mgr.Get()))
		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			var p runtimecfg.Patch
			if err := json.Unmarshal(body, &p); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			cfg, err := mgr.Update(p)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			if err := logging.SetLevel(log, cfg.Log.Level); err != nil {
				log.WithError(err).Warn("log level not applied")
			}
			writeJSON(w, http.StatusOK, toConfigView(cfg))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	return logRequests(log, mux)
}

type offsetFunc func(ctx context.Context, d time.Time, n int, inclusive bool) (string, error)

func offsetHandler(svc *tradecal.Service, fn offsetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d, err := dateParam(svc, r)
		if err != nil {
			writeError(w, err)
			return
		}
		n := 1
		if s := r.URL.Query().Get("n"); s != "" {
			if n, err = strconv.Atoi(s); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "n must be an integer"})
				return
			}
		}
		inclusive := parseFlag(r.URL.Query().Get("inclusive"), false)
		got, err := fn(r.Context(), d, n, inclusive)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":        calendar.FormatDate(d),
			"n":           n,
			"inclusive":   inclusive,
			"trading_day": got,
		})
	}
}

// dateParam reads ?date=, defaulting to today in Asia/Shanghai.
func dateParam(svc *tradecal.Service, r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return svc.Today(), nil
	}
	return calendar.ParseDate(s)
}

func logRequests(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"ms":     time.Since(start).Milliseconds(),
		}).Debug("http request")
	})
}

type calendarView struct {
	First string   `json:"first"`
	Last  string   `json:"last"`
	Len   int      `json:"len"`
	Dates []string `json:"dates,omitempty"`
}

func toCalendarView(cal *calendar.Calendar, withDates bool) calendarView {
	v := calendarView{
		First: calendar.FormatDate(cal.First()),
		Last:  calendar.FormatDate(cal.Last()),
		Len:   cal.Len(),
	}
	if withDates {
		v.Dates = cal.Strings()
	}
	return v
}

type configView struct {
	CachePath       string `json:"cache_path"`
	CredentialsPath string `json:"credentials_path"`
	ProviderURL     string `json:"provider_url"`
	RefreshAt       string `json:"refresh_at"`
	RefreshEnabled  bool   `json:"refresh_enabled"`
	LogLevel        string `json:"log_level"`
}

func toConfigView(cfg config.Config) configView {
	return configView{
		CachePath:       cfg.CachePath,
		CredentialsPath: cfg.CredentialsPath,
		ProviderURL:     cfg.Provider.URL,
		RefreshAt:       cfg.Server.RefreshAt,
		RefreshEnabled:  cfg.Server.Refresh(),
		LogLevel:        cfg.Log.Level,
	}
}

// statusFor maps calendar and symbol errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, calendar.ErrInvalidArgument),
		errors.Is(err, symbol.ErrUnsupportedStyle),
		errors.Is(err, symbol.ErrInvalidSymbol):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseFlag reads 1/0/true/false; anything else yields def.
func parseFlag(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
