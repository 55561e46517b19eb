package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuantityRequest struct {
	Quantity *int             `json:"quantity,omitempty"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
	Approx   string           `json:"approx,omitempty"`
	Volume   *decimal.Decimal `json:"volume,omitempty"`
	Whole    int              `json:"whole,omitempty"`
	Fraction string           `json:"fraction,omitempty"`
	Extra    int              `json:"extra,omitempty"`
}

// Input converts the request body; an omitted count defaults to 1.
func (r QuantityRequest) Input() (QuantityInput, error) {
	frac, err := ParseFraction(r.Fraction)
	if err != nil {
		return QuantityInput{}, err
	}
	in := QuantityInput{
		Count:    1,
		Approx:   r.Approx,
		Whole:    r.Whole,
		Fraction: frac,
		Extra:    r.Extra,
	}
	if r.Quantity != nil {
		in.Count = *r.Quantity
	}
	if r.Weight != nil {
		in.Weight = r.Weight.String()
	}
	if r.Volume != nil {
		in.Volume = r.Volume.String()
	}
	return in, nil
}

type AddLineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Unit      string    `json:"unit"`
	QuantityRequest
	Note string `json:"note,omitempty"`
}

type EditLineRequest struct {
	Unit string `json:"unit"`
	QuantityRequest
	Note string `json:"note,omitempty"`
}

type CustomerRequest struct {
	Name string `json:"name"`
}

func (r CustomerRequest) Trimmed() string { return strings.TrimSpace(r.Name) }

type SubmitResponse struct {
	OrderID      uuid.UUID   `json:"order_id"`
	CustomerName string      `json:"customer_name"`
	Status       OrderStatus `json:"status"`
	Lines        int         `json:"lines"`
}
