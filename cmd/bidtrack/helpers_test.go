package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/calendar"
	"github.com/baiirun/bidtrack/internal/config"
	"github.com/baiirun/bidtrack/internal/db"
	"github.com/baiirun/bidtrack/internal/reconcile"
)

// Friday 1 March 2024
var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// setupTestApp wires an offline app over a fresh database with a fixed clock.
func setupTestApp(t *testing.T) *app {
	t.Helper()
	database := setupTestDB(t)
	now := func() time.Time { return fixedNow }
	a := &app{
		cfg:    config.Default(),
		db:     database,
		cal:    calendar.Weekdays{},
		logger: zap.NewNop(),
		now:    now,
	}
	a.rec = reconcile.New(database, a.cal, reconcile.WithClock(now))
	return a
}

// captureOutput returns what f writes to stdout.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	return <-done
}
