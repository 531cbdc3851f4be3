package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/config"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/logger"
	"github.com/baiirun/bidtrack/internal/reconcile"
)

// app holds what a command needs for one run.
type app struct {
	cfg    *config.Config
	db     *db.DB
	cal    calendar.BusinessCalendar
	gw     *calendar.Gateway // nil when offline
	rdb    *redis.Client
	rec    *reconcile.Reconciler
	logger *zap.Logger
	now    func() time.Time
}

func openApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagDB != "" {
		cfg.DB.Path = flagDB
	}
	if flagOffline {
		cfg.Calendar.Offline = true
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	path := cfg.DB.Path
	if path == "" {
		if path, err = db.DefaultPath(); err != nil {
			return nil, err
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Init(); err != nil {
		database.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: database, logger: log, now: time.Now}
	a.setupCalendar()
	a.rec = reconcile.New(database, a.cal, reconcile.WithLogger(log), reconcile.WithClock(a.now))
	return a, nil
}

// setupCalendar picks the business-day source. Redis is used for the
// holiday cache only when an address is configured.
func (a *app) setupCalendar() {
	if a.cfg.Calendar.Offline {
		a.cal = calendar.Weekdays{}
		return
	}

	var cache calendar.Cache
	if r := a.cfg.Redis; r.Addr != "" {
		a.rdb = calendar.NewRedisClient(r.Addr, r.Password, r.DB)
		cache = calendar.NewRedisCache(a.rdb, a.logger)
	}
	a.gw = calendar.NewGateway(calendar.Options{
		BaseURL:  a.cfg.Calendar.BaseURL,
		Timeout:  a.cfg.Calendar.Timeout,
		CacheTTL: a.cfg.Calendar.CacheTTL,
		Cache:    cache,
		Logger:   a.logger,
	})
	a.cal = a.gw
}

func (a *app) Close() error {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.logger.Sync()
	return a.db.Close()
}

// withApp opens the app, runs fn and closes it again.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}

func (a *app) timestamp() string {
	return a.now().Format(time.RFC3339)
}
