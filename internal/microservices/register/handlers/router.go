package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	orderhandlers "counter-pos/internal/microservices/order/handlers"
	ordersvc "counter-pos/internal/microservices/order/service"
	"counter-pos/internal/microservices/register/service"
	trackerhandler "counter-pos/internal/microservices/tracker/handler"
	trackersvc "counter-pos/internal/microservices/tracker/service"
)

type Handler struct {
	OrdersHandler  *OrdersHandler
	Lookup         *orderhandlers.OrderHandler
	TrackerHandler *trackerhandler.TrackerHandler
}

func New(st *service.Station, orders ordersvc.OrderServiceInterface, timeline trackersvc.TrackerServiceInterface, lg *logger.Logger) *Handler {
	return &Handler{
		OrdersHandler:  NewOrdersHandler(st, lg),
		Lookup:         orderhandlers.NewOrderHandler(orders),
		TrackerHandler: trackerhandler.NewTrackerHandler(timeline),
	}
}

func Router(h *Handler, lg *logger.Logger, m *metrics.Pipeline, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, httpx.Logging(lg))

	r.Get("/healthz", httpx.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(g))

	o := h.OrdersHandler
	r.Route("/api/v1/orders", func(r chi.Router) {
		// the stream stays open; keep it out of the latency histogram
		r.Get("/stream", o.Stream)
		r.Group(func(r chi.Router) {
			r.Use(httpx.Instrument(m))
			r.Get("/sent", o.Sent)
			r.Get("/completed", o.Completed)
			r.Get("/{id}", h.Lookup.GetOrder)
			r.Get("/{id}/status", h.TrackerHandler.GetStatus)
			r.Get("/{id}/timeline", h.TrackerHandler.GetTimeline)
			r.Post("/{id}/complete", o.Complete)
		})
	})
	return r
}
