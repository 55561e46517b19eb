package notificator

import (
	"context"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/feed"
	"counter-pos/internal/microservices/notificator/service"
)

// Start blocks until ctx ends or the feed drops.
func Start(ctx context.Context, sub feed.Subscriber, orders service.OrderReader, lg *logger.Logger) error {
	svc := service.New(sub, orders, lg)
	lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
	return svc.NotificatorService.Notify(ctx)
}
