package app

import (
	"net/http"

	"inlet/cmd/internal/api"
	"inlet/cmd/internal/metrics"
)

func registerHTTP(mux *http.ServeMux, cfg Config, handler *api.Handler, m *metrics.Metrics) {
	handler.Register(mux)

	// Exposition is toggleable; the counters are always maintained so a
	// restart with metrics enabled starts from live state, not a blind spot.
	if cfg.EnableMetrics {
		mux.Handle("/metrics", m.Handler())
		return
	}
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}
