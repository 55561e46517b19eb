package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductComplete ProductStatus = "complete"
)

// Product is owned by the catalog; the pipeline only reads it.
type Product struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Units    []UnitKind    `json:"units"`
	Location *string       `json:"location,omitempty"`
	Status   ProductStatus `json:"status"`
}

// Supports reports whether kind is one of the declared units. A product
// without declared units is sold by count.
func (p Product) Supports(kind UnitKind) bool {
	if len(p.Units) == 0 {
		return kind == UnitCount
	}
	for _, u := range p.Units {
		if u == kind {
			return true
		}
	}
	return false
}

// DefaultUnit is the first declared unit, or count.
func (p Product) DefaultUnit() UnitKind {
	if len(p.Units) == 0 {
		return UnitCount
	}
	return p.Units[0]
}

// LocationName returns the trimmed location or "" when the product has none.
func (p Product) LocationName() string {
	if p.Location == nil {
		return ""
	}
	return strings.TrimSpace(*p.Location)
}

// Employee is handed to the pipeline already authenticated.
type Employee struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusSent      OrderStatus = "sent"
	StatusCompleted OrderStatus = "completed"
)

type OrderHeader struct {
	ID           uuid.UUID   `json:"id"`
	CustomerName string      `json:"customer_name"`
	EmployeeID   *uuid.UUID  `json:"employee_id,omitempty"`
	Status       OrderStatus `json:"status"`
	SentAt       *time.Time  `json:"sent_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// OrderLine is written once at submission. ProductName is a copy taken at
// that moment so history survives catalog renames and deletes.
type OrderLine struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	Position    int        `json:"position"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Unit        UnitKind   `json:"unit"`
	QuantityFields
	Detail    string    `json:"detail,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders the line the same way the counter rendered it.
func (l OrderLine) Label() string {
	q, err := l.QuantityFields.Restore(l.Unit)
	if err != nil {
		return l.ProductName
	}
	return q.Label(l.ProductName)
}

// NewOrderLine copies the product name and quantity payload verbatim.
func NewOrderLine(p Product, q Quantity, note string) OrderLine {
	line := OrderLine{
		ProductName:    p.Name,
		Unit:           q.Kind(),
		QuantityFields: FieldsOf(q),
		Note:           strings.TrimSpace(note),
	}
	if p.ID != uuid.Nil {
		id := p.ID
		line.ProductID = &id
	}
	if c, ok := q.(Container); ok {
		line.Detail = c.Detail()
	}
	return line
}

// StatusChange is one row of an order's status log.
type StatusChange struct {
	OrderID   uuid.UUID   `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}

// Order is the read model handed to fulfillment stations.
type Order struct {
	OrderHeader
	EmployeeName string      `json:"employee_name"`
	Lines        []OrderLine `json:"items"`
}

// Submission is a populated cart leaving the authoring session.
type Submission struct {
	CustomerName string
	Employee     *Employee
	Lines        []OrderLine
}
