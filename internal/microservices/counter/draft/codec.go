package draft

import (
	"encoding/json"
	"fmt"

	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/counter/cart"
)

type record struct {
	Product domain.Product  `json:"product"`
	Unit    domain.UnitKind `json:"unit"`
	domain.QuantityFields
	Note  string `json:"note,omitempty"`
	Ready bool   `json:"ready"`
}

// Encode serializes lines field for field; Decode(Encode(x)) == x.
func Encode(lines []cart.Line) (string, error) {
	recs := make([]record, 0, len(lines))
	for _, l := range lines {
		recs = append(recs, record{
			Product:        l.Product,
			Unit:           l.Unit,
			QuantityFields: domain.FieldsOf(l.Quantity),
			Note:           l.Note,
			Ready:          l.Ready,
		})
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(b), nil
}

// Decode fails as a whole when any line cannot be rebuilt.
func Decode(s string) ([]cart.Line, error) {
	var recs []record
	if err := json.Unmarshal([]byte(s), &recs); err != nil {
		return nil, fmt.Errorf("%w: decode draft: %v", domain.ErrPersistence, err)
	}
	lines := make([]cart.Line, 0, len(recs))
	for i, r := range recs {
		kind, err := domain.ParseUnitKind(string(r.Unit))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrPersistence, i, err)
		}
		q, err := r.QuantityFields.Restore(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrPersistence, i, err)
		}
		lines = append(lines, cart.Line{
			Product:  r.Product,
			Unit:     kind,
			Quantity: q,
			Note:     r.Note,
			Ready:    r.Ready,
		})
	}
	return lines, nil
}
