package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventOrderSent      EventKind = "order.sent"
	EventOrderCompleted EventKind = "order.completed"
)

// OrderEvent is a change notification on the shared queue. Consumers treat
// it as a hint and re-read the queue.
type OrderEvent struct {
	Kind       EventKind   `json:"kind"`
	OrderID    uuid.UUID   `json:"order_id"`
	Status     OrderStatus `json:"status"`
	ChangedBy  string      `json:"changed_by,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
