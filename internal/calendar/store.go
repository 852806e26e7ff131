package calendar

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRetryDelay = 60 * time.Second
	DefaultMemoSize   = 8
)

// Provider returns open/closed rows for every calendar date in r.
// An empty result is legal and is treated by Store as a transient failure.
type Provider interface {
	TradeCal(ctx context.Context, token string, r Range) ([]DayStatus, error)
}

// CredentialSource yields the provider token.
type CredentialSource interface {
	Token() (string, error)
}

// Cache persists calendars by path. Load returns an error wrapping
// ErrCacheMiss when nothing is stored at path.
type Cache interface {
	Load(path string) (*Calendar, error)
	Save(path string, cal *Calendar) error
}

type StoreOptions struct {
	Provider    Provider
	Credentials CredentialSource
	Cache       Cache

	// DefaultPath is used when callers pass an empty path. "~" is expanded.
	DefaultPath string
	// RetryDelay is the pause before the single retry on an empty provider
	// result. Zero means DefaultRetryDelay; negative retries immediately.
	RetryDelay time.Duration
	// MemoSize bounds the number of distinct paths kept in memory.
	MemoSize int
	Now      func() time.Time
}

// Store loads calendars from the cache, fetches them from the provider on a
// miss and keeps loaded calendars in memory keyed by resolved path.
// Memo entries live until Invalidate, InvalidateAll, Reload or Refresh.
//
// Concurrent loads of one path share a single cache read, and concurrent
// fetches of one path and range share a single provider call. A shared fetch
// runs detached from the callers' contexts, so one caller giving up does not
// fail the others. A cache read still in flight when Invalidate runs does not
// repopulate the memo.
type Store struct {
	provider    Provider
	creds       CredentialSource
	cache       Cache
	defaultPath string
	retryDelay  time.Duration
	now         func() time.Time

	memo  *lru.Cache[string, *Calendar]
	group singleflight.Group
	// gen is bumped by every invalidation; reads started under an older
	// generation are not memoized.
	gen atomic.Uint64
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("%w: store needs a cache", ErrInvalidArgument)
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.MemoSize <= 0 {
		opts.MemoSize = DefaultMemoSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	memo, err := lru.New[string, *Calendar](opts.MemoSize)
	if err != nil {
		return nil, err
	}
	return &Store{
		provider:    opts.Provider,
		creds:       opts.Credentials,
		cache:       opts.Cache,
		defaultPath: opts.DefaultPath,
		retryDelay:  opts.RetryDelay,
		now:         opts.Now,
		memo:        memo,
	}, nil
}

// ResolvePath maps a caller path to the memo key: empty means DefaultPath,
// "~" is expanded and the result is absolute.
func (s *Store) ResolvePath(path string) (string, error) {
	if path == "" {
		path = s.defaultPath
	}
	if path == "" {
		return "", fmt.Errorf("%w: no calendar cache path", ErrConfiguration)
	}
	p, err := ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return filepath.Abs(p)
}

// RangePath names the cache file for r. The default range maps to DefaultPath;
// any other range to trade_cal_<start>_<end> beside it with the same extension.
func (s *Store) RangePath(r Range) string {
	r = r.Normalize(s.now())
	def := DefaultRange(s.now())
	if (r.Start.Equal(def.Start) && r.End.Equal(def.End)) || s.defaultPath == "" {
		return s.defaultPath
	}
	ext := filepath.Ext(s.defaultPath)
	name := "trade_cal_" + r.String() + ext
	return filepath.Join(filepath.Dir(s.defaultPath), name)
}

// LoadCached returns the memoized calendar for path or reads it from the cache.
func (s *Store) LoadCached(ctx context.Context, path string) (*Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if cal, ok := s.memo.Get(p); ok {
		return cal, nil
	}

	gen := s.gen.Load()
	key := "load:" + p + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if cal, ok := s.memo.Get(p); ok {
			return cal, nil
		}
		cal, err := s.cache.Load(p)
		if err != nil {
			return nil, err
		}
		if s.gen.Load() == gen {
			s.memo.Add(p, cal)
		}
		return cal, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Calendar), nil
}

// FetchAndPersist pulls r from the provider, keeps the open days, writes the
// result to outputPath (overwriting it) and memoizes it. An empty outputPath
// means RangePath(r). If ctx ends first the call returns ctx.Err() while the
// shared fetch runs on for any other waiters.
func (s *Store) FetchAndPersist(ctx context.Context, r Range, outputPath string) (*Calendar, error) {
	r = r.Normalize(s.now())
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if outputPath == "" {
		outputPath = s.RangePath(r)
	}
	p, err := s.ResolvePath(outputPath)
	if err != nil {
		return nil, err
	}

	work := context.WithoutCancel(ctx)
	ch := s.group.DoChan("fetch:"+p+":"+r.String(), func() (any, error) {
		return s.fetchAndPersist(work, r, p)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Calendar), nil
	}
}

func (s *Store) fetchAndPersist(ctx context.Context, r Range, path string) (*Calendar, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no calendar provider", ErrConfiguration)
	}

	rows, err := s.provider.TradeCal(ctx, token, r)
	if err == nil && len(rows) == 0 {
		if err := sleepCtx(ctx, s.retryDelay); err != nil {
			return nil, err
		}
		rows, err = s.provider.TradeCal(ctx, token, r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: trade_cal %s: %w", ErrProvider, r, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: trade_cal %s returned no rows after retry", ErrProvider, r)
	}

	cal, err := FromStatuses(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: trade_cal %s: %w", ErrProvider, r, err)
	}
	if err := s.cache.Save(path, cal); err != nil {
		return nil, fmt.Errorf("save calendar %s: %w", path, err)
	}
	s.memo.Add(path, cal)
	return cal, nil
}

func (s *Store) token() (string, error) {
	if s.creds == nil {
		return "", fmt.Errorf("%w: no credential source", ErrConfiguration)
	}
	tok, err := s.creds.Token()
	if err != nil {
		if errors.Is(err, ErrConfiguration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if strings.TrimSpace(tok) == "" {
		return "", fmt.Errorf("%w: empty tushare token", ErrConfiguration)
	}
	return tok, nil
}

// LoadOrFetch is LoadCached falling back to FetchAndPersist over the default
// range when the cache has nothing at path.
func (s *Store) LoadOrFetch(ctx context.Context, path string) (*Calendar, error) {
	cal, err := s.LoadCached(ctx, path)
	if err == nil {
		return cal, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}
	return s.FetchAndPersist(ctx, DefaultRange(s.now()), path)
}

// Invalidate drops the memo entry for path. The persisted file is untouched.
func (s *Store) Invalidate(path string) {
	p, err := s.ResolvePath(path)
	if err != nil {
		return
	}
	s.gen.Add(1)
	s.memo.Remove(p)
}

func (s *Store) InvalidateAll() {
	s.gen.Add(1)
	s.memo.Purge()
}

// Reload forgets the memoized calendar and loads it again, from disk first.
func (s *Store) Reload(ctx context.Context, path string) (*Calendar, error) {
	s.Invalidate(path)
	return s.LoadOrFetch(ctx, path)
}

// Refresh forgets the memoized calendar and fetches the default range anew,
// overwriting the file at path.
func (s *Store) Refresh(ctx context.Context, path string) (*Calendar, error) {
	s.Invalidate(path)
	return s.FetchAndPersist(ctx, DefaultRange(s.now()), path)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
