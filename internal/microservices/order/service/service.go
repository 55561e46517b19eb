package service

import (
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/feed"
	"counter-pos/internal/microservices/order/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(db repository.Repository, pub feed.Publisher, lg *logger.Logger, m *metrics.Pipeline) *Service {
	return &Service{
		OrderService: NewOrderService(db.OrderRepo, pub, lg, m),
	}
}
