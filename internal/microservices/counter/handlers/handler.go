package handlers

import (
	"counter-pos/internal/catalog"
	"counter-pos/internal/microservices/counter/service"
)

type Handler struct {
	CartHandler *CartHandler
}

func New(s *service.Session, c catalog.Catalog) *Handler {
	return &Handler{
		CartHandler: NewCartHandler(s, c),
	}
}
