package service

import (
	"counter-pos/internal/common/logger"
	"counter-pos/internal/feed"
)

type Service struct {
	NotificatorService *NotificatorService
}

func New(sub feed.Subscriber, orders OrderReader, lg *logger.Logger) *Service {
	return &Service{NotificatorService: NewNotificatorService(sub, orders, lg)}
}
