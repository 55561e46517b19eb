package counter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"counter-pos/internal/catalog"
	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/microservices/counter/draft"
	"counter-pos/internal/microservices/counter/handlers"
	"counter-pos/internal/microservices/counter/service"
)

// Run restores the draft, then serves the authoring API on addr until ctx
// ends. One process is one counter station.
func Run(ctx context.Context, addr string, store draft.Store, orders service.Submitter, cat catalog.Catalog,
	lg *logger.Logger, m *metrics.Pipeline, g prometheus.Gatherer) error {
	session := service.NewSession(ctx, store, orders, cat, lg, m)
	h := handlers.New(session, cat)

	lg.Info("service_started", map[string]any{"service": "counter-api", "addr": addr, "lines": len(session.View().Lines)})
	return httpx.New(addr, handlers.Router(h, lg, m, g)).Run(ctx)
}
