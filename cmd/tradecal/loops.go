package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pcdogyu/tradecal/internal/config"
	"github.com/pcdogyu/tradecal/internal/market"
)

type cfgProvider interface {
	Get() config.Config
}

// refreshFunc re-fetches the calendar and reports its length.
type refreshFunc func(ctx context.Context) (int, error)

// runRefreshLoop re-fetches the calendar once per day after server.refresh_at
// (Asia/Shanghai). Settings are re-read every tick.
func runRefreshLoop(ctx context.Context, cfgp cfgProvider, refresh refreshFunc, log logrus.FieldLogger, now func() time.Time, tick time.Duration) {
	loc := market.ShanghaiLocation()
	var lastRunDay string

	for {
		cfg := cfgp.Get()
		if cfg.Server.Refresh() {
			t := now().In(loc)
			today := t.Format("2006-01-02")
			if lastRunDay != today && !t.Before(nextRunTimeToday(t, cfg.Server.RefreshAt)) {
				n, err := refresh(ctx)
				if err != nil {
					log.WithError(err).Warn("calendar refresh failed")
				} else {
					log.WithField("len", n).Info("calendar refreshed")
				}
				lastRunDay = today
			}
		}

		// Tick at minute granularity; this is a once-per-day job.
		select {
		case <-ctx.Done():
			return
		case <-time.After(tick):
		}
	}
}

func nextRunTimeToday(now time.Time, runAt string) time.Time {
	// runAt: "HH:MM" Asia/Shanghai
	h, m := 8, 30
	if len(runAt) == 5 && runAt[2] == ':' {
		if v, err := time.Parse("15:04", runAt); err == nil {
			h = v.Hour()
			m = v.Minute()
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
}
