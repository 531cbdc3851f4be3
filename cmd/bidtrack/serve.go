package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh priorities on a schedule and expose metrics",
	Long: `Run in the foreground, refreshing task priorities on the configured cron
schedule (scheduler.spec) and serving Prometheus metrics and calendar health
on metrics.addr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(runServe)
	},
}

// healthHandler reports the holiday service's health. Offline mode has no
// remote dependency and is always healthy.
func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	var body any = map[string]string{"status": "ok", "calendar": "offline"}
	if a.gw != nil {
		h := a.gw.Health()
		if !h.Healthy() {
			status = http.StatusServiceUnavailable
		}
		body = h
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, body)
}

func newServeMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", a.healthHandler)
	return mux
}

func runServe(ctx context.Context, a *app) error {
	log := a.logger

	sched, err := scheduler.New(a.cfg.Scheduler.Spec, a.rec, a.db, log)
	if err != nil {
		return err
	}
	if err := sched.RunOnce(ctx); err != nil {
		log.Error("Initial refresh failed", zap.Error(err))
	}
	sched.Start()

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           newServeMux(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Metrics server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		log.Info("Shutting down")
	case runErr = <-serveErr:
		log.Error("Metrics server failed", zap.Error(runErr))
	}

	<-sched.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown error", zap.Error(err))
	}
	return runErr
}
