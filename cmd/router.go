package main

import (
	"net/http"

	"github.com/angeloszaimis/circuit-gate/internal/admin"
)

func setupRouter(a *app) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", a.breaker)
	admin.New(a.log, a.engine, a.store, a.upstream).Register(mux)
	mux.Handle("GET /admin/events", a.collector.Handler())
	mux.Handle("GET /metrics/prometheus", a.prometheus.Handler())

	return mux
}
