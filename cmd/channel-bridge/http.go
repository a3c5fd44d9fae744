package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
)

type statsSource interface {
	Stats(ctx context.Context) (bridge.Stats, error)
}

// newRouter 暴露 /healthz 和 Prometheus 指标
func newRouter(src statsSource, gatherer prometheus.Gatherer, metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthHandler(src))
	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func healthHandler(src statsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		stats, err := src.Stats(ctx)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		status := "ok"
		if !stats.Connected {
			status = "disconnected"
		}
		_ = json.NewEncoder(w).Encode(struct {
			Status string `json:"status"`
			bridge.Stats
		}{Status: status, Stats: stats})
	}
}
