package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
)

func Router(h *Handler, lg *logger.Logger, m *metrics.Pipeline, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, httpx.Logging(lg), httpx.Instrument(m))

	r.Get("/healthz", httpx.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(g))

	c := h.CartHandler
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", c.Products)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", c.Get)
			r.Delete("/", c.Clear)
			r.Put("/customer", c.SetCustomer)
			r.Post("/submit", c.Submit)
			r.Get("/diagnostics", c.Diagnostics)
			r.Post("/lines", c.AddLine)
			r.Route("/lines/{index}", func(r chi.Router) {
				r.Put("/", c.EditLine)
				r.Delete("/", c.RemoveLine)
				r.Post("/ready", c.ToggleReady)
				r.Post("/increment", c.Increment)
				r.Post("/decrement", c.Decrement)
			})
		})
	})
	return r
}
