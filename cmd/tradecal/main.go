// Command tradecal answers A-share trading calendar questions from the
// command line or over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pcdogyu/tradecal/internal/calendar"
	"github.com/pcdogyu/tradecal/internal/config"
	"github.com/pcdogyu/tradecal/internal/logging"
	"github.com/pcdogyu/tradecal/internal/market"
	"github.com/pcdogyu/tradecal/internal/runtimecfg"
	"github.com/pcdogyu/tradecal/internal/symbol"
	"github.com/pcdogyu/tradecal/internal/tradecal"
)

type app struct {
	cfgPath string
	mgr     *runtimecfg.Manager
	log     *logrus.Logger
	closer  io.Closer
	svc     *tradecal.Service
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cachePath, logLevel string

	root := &cobra.Command{
		Use:           "tradecal",
		Short:         "A-share trading calendar lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
			}
			return a.init(cachePath, logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closer != nil {
				_ = a.closer.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "configs/config.yaml", "config path (YAML)")
	root.PersistentFlags().StringVar(&cachePath, "cache", "", "calendar cache path (.parquet, .db)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		a.fetchCmd(),
		a.loadCmd(),
		a.resolveCmd(),
		a.offsetCmd("before", "Trading day N sessions before DATE"),
		a.offsetCmd("after", "Trading day N sessions after DATE"),
		a.phaseCmd(),
		a.symbolCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) init(cachePath, logLevel string) error {
	mgr, err := runtimecfg.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cachePath != "" || logLevel != "" {
		cfg := mgr.Get()
		if cachePath != "" {
			cfg.CachePath = cachePath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := config.NormalizeAndValidate(&cfg); err != nil {
			return err
		}
		// Flag overrides are not written back to the config file.
		mgr = runtimecfg.NewStatic(cfg)
	}
	a.mgr = mgr

	cfg := mgr.Get()
	a.log, a.closer, err = logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.svc, err = tradecal.New(cfg, a.log)
	return err
}

func (a *app) fetchCmd() *cobra.Command {
	var start, end, output string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the trading calendar from tushare and cache it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r calendar.Range
			var err error
			if start != "" {
				if r.Start, err = calendar.ParseDate(start); err != nil {
					return err
				}
			}
			if end != "" {
				if r.End, err = calendar.ParseDate(end); err != nil {
					return err
				}
			}
			store := a.svc.Store()
			if output == "" {
				output = store.RangePath(r)
			}
			cal, err := store.FetchAndPersist(cmd.Context(), r, output)
			if err != nil {
				return err
			}
			path, _ := store.ResolvePath(output)
			a.log.WithFields(logrus.Fields{"path": path, "len": cal.Len()}).Info("calendar saved")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s..%s (%d trading days)\n", path,
				calendar.FormatDate(cal.First()), calendar.FormatDate(cal.Last()), cal.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date (default 1990-01-01)")
	cmd.Flags().StringVar(&end, "end", "", "last date (default Dec 31 of this year)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default derived from the range)")
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	var dates bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the cached calendar, fetching it if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := a.svc.LoadCalendar(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dates {
				for _, s := range cal.Strings() {
					fmt.Fprintln(out, s)
				}
				return nil
			}
			fmt.Fprintf(out, "%s..%s (%d trading days)\n",
				calendar.FormatDate(cal.First()), calendar.FormatDate(cal.Last()), cal.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dates, "dates", false, "print every trading day")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "resolve [DATE]",
		Short: "Nearest trading day on or around DATE (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dateArg(args)
			if err != nil {
				return err
			}
			dir, err := calendar.ParseDirection(direction)
			if err != nil {
				return err
			}
			got, err := a.svc.ResolveTradingDate(cmd.Context(), d, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), got)
			return nil
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "d", "backward", "backward or forward")
	return cmd
}

func (a *app) offsetCmd(name, short string) *cobra.Command {
	var n int
	var inclusive bool
	cmd := &cobra.Command{
		Use:   name + " [DATE]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dateArg(args)
			if err != nil {
				return err
			}
			fn := a.svc.SessionsBefore
			if name == "after" {
				fn = a.svc.SessionsAfter
			}
			got, err := fn(cmd.Context(), d, n, inclusive)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), got)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 1, "number of sessions")
	cmd.Flags().BoolVar(&inclusive, "inclusive", false, "count DATE itself as the first session")
	return cmd
}

func (a *app) phaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phase [DATE [TIME]]",
		Short: "Session phase at a timestamp (Asia/Shanghai, default now)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts := a.svc.Now()
			if len(args) > 0 {
				t, err := calendar.ParseTime(strings.Join(args, " "), market.ShanghaiLocation())
				if err != nil {
					return err
				}
				ts = t.In(market.ShanghaiLocation())
			}
			phase, err := a.svc.SessionPhase(cmd.Context(), ts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), phase)
			return nil
		},
	}
}

func (a *app) symbolCmd() *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "symbol SYMBOL...",
		Short: "Rewrite security codes in a vendor convention",
		Args:  cobra.MinimumNArgs(1),
		// No calendar or config needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := symbol.ParseStyle(style)
			if err != nil {
				return err
			}
			out, err := symbol.FormatAll(args, st)
			if err != nil {
				return err
			}
			for _, s := range out {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "plain", "plain, goldminer|gm, tushare|ts, wind|wd, joinquant|jq")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar over HTTP and refresh it daily",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := a.mgr.Get()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			if _, err := a.svc.LoadCalendar(ctx); err != nil {
				a.log.WithError(err).Warn("calendar not loaded at startup")
			}

			go runRefreshLoop(ctx, a.mgr, func(ctx context.Context) (int, error) {
				cal, err := a.svc.Refresh(ctx)
				if err != nil {
					return 0, err
				}
				return cal.Len(), nil
			}, a.log, time.Now, time.Minute)

			srv := &http.Server{
				Addr:              addr,
				Handler:           newWebServer(a.mgr, a.svc, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			a.log.WithField("addr", addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

// dateArg parses the optional DATE argument, defaulting to today in Asia/Shanghai.
func (a *app) dateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return a.svc.Today(), nil
	}
	return calendar.ParseDate(args[0])
}
