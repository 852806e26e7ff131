// Package tushare is a minimal client for the tushare pro HTTP API.
package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pcdogyu/tradecal/internal/calendar"
)

const DefaultURL = "http://api.tushare.pro"

var _ calendar.Provider = (*Client)(nil)

type Options struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	// RatePerMinute paces requests; zero disables pacing.
	RatePerMinute int
	Logger        logrus.FieldLogger
	HTTPClient    *http.Client
}

type Client struct {
	url         string
	hc          *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	log         logrus.FieldLogger
}

func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: opts.Timeout,
		}
	}
	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		url:         opts.URL,
		hc:          hc,
		limiter:     limiter,
		maxAttempts: opts.MaxAttempts,
		log:         log,
	}
}

// TradeCal queries trade_cal for r. The result may be empty; the caller
// decides whether that is an error.
func (c *Client) TradeCal(ctx context.Context, token string, r calendar.Range) ([]calendar.DayStatus, error) {
	params := map[string]any{
		"exchange":   "",
		"start_date": r.StartParam(),
		"end_date":   r.EndParam(),
	}
	tbl, err := c.Query(ctx, token, "trade_cal", params, "exchange,cal_date,is_open,pretrade_date")
	if err != nil {
		return nil, err
	}
	if len(tbl.Items) == 0 {
		return nil, nil
	}

	dateCol, err := tbl.column("cal_date")
	if err != nil {
		return nil, err
	}
	openCol, err := tbl.column("is_open")
	if err != nil {
		return nil, err
	}

	out := make([]calendar.DayStatus, 0, len(tbl.Items))
	for _, row := range tbl.Items {
		if len(row) <= dateCol || len(row) <= openCol {
			return nil, fmt.Errorf("tushare trade_cal: short row %v", row)
		}
		d, err := time.Parse(calendar.ParamLayout, asString(row[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("tushare trade_cal: cal_date: %w", err)
		}
		open, err := asFlag(row[openCol])
		if err != nil {
			return nil, fmt.Errorf("tushare trade_cal: is_open: %w", err)
		}
		out = append(out, calendar.DayStatus{Date: d, IsOpen: open})
	}
	return out, nil
}

// Query calls apiName and returns its table. A non-zero response code is an error.
func (c *Client) Query(ctx context.Context, token, apiName string, params map[string]any, fields string) (*Table, error) {
	body, err := json.Marshal(request{APIName: apiName, Token: token, Params: params, Fields: fields})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := c.postJSON(ctx, body, &resp); err != nil {
		return nil, fmt.Errorf("tushare %s: %w", apiName, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tushare %s: code=%d msg=%s", apiName, resp.Code, resp.Msg)
	}
	if resp.Data == nil {
		return &Table{}, nil
	}
	return resp.Data, nil
}

func (c *Client) postJSON(ctx context.Context, body []byte, out any) error {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.log.WithFields(logrus.Fields{"attempt": attempt + 1, "err": lastErr}).Debug("tushare retry")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 3
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		var attemptErr error
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			attemptErr = fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
		} else {
			dec := json.NewDecoder(resp.Body)
			dec.UseNumber()
			attemptErr = dec.Decode(out)
		}
		_ = resp.Body.Close()

		if attemptErr == nil {
			return nil
		}

		// Retry on common transient codes.
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = attemptErr
			continue
		}
		// For other status codes, don't retry. For decode errors we do retry.
		if resp.StatusCode != http.StatusOK {
			return attemptErr
		}
		lastErr = attemptErr
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("unknown error")
	}
	return lastErr
}
