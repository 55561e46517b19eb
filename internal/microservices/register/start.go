package register

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/feed"
	ordersvc "counter-pos/internal/microservices/order/service"
	"counter-pos/internal/microservices/register/handlers"
	"counter-pos/internal/microservices/register/service"
	trackersvc "counter-pos/internal/microservices/tracker/service"
)

const (
	resubscribeMin = time.Second
	resubscribeMax = 30 * time.Second
)

// Run serves the fulfillment API and keeps the station subscribed to the
// feed until ctx ends.
func Run(ctx context.Context, addr, station string, orders ordersvc.OrderServiceInterface,
	timeline trackersvc.TrackerServiceInterface, sub feed.Subscriber,
	lg *logger.Logger, m *metrics.Pipeline, g prometheus.Gatherer) error {
	lg = lg.With("station", station)
	st := service.NewStation(station, orders, sub, lg, m)
	srv := httpx.New(addr, handlers.Router(handlers.New(st, orders, timeline, lg), lg, m, g))

	lg.Info("service_started", map[string]any{"service": "register-station", "addr": addr})
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Run(ctx) })
	eg.Go(func() error { return follow(ctx, st, lg, resubscribeMin, resubscribeMax) })
	return eg.Wait()
}

// follow reruns the station after every feed drop, doubling the pause up
// to limit. A run that lasted longer than limit resets the pause.
func follow(ctx context.Context, st *service.Station, lg *logger.Logger, base, limit time.Duration) error {
	wait := base
	for {
		started := time.Now()
		err := st.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > limit {
			wait = base
		}
		lg.Warn("feed_resubscribe", map[string]any{"error": errString(err), "backoff_ms": wait.Milliseconds()})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait *= 2
		if wait > limit {
			wait = limit
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
