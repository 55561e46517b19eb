package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type UnitKind string

const (
	UnitCount  UnitKind = "count"
	UnitWeight UnitKind = "weight"
	UnitVolume UnitKind = "volume"
	UnitBox    UnitKind = "box"
	UnitBag    UnitKind = "bag"
)

// ParseUnitKind accepts the canonical names and the catalog's legacy
// spanish names (unidad, kg, litro, caja, funda).
func ParseUnitKind(s string) (UnitKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count", "unidad", "":
		return UnitCount, nil
	case "weight", "kg":
		return UnitWeight, nil
	case "volume", "litro", "l":
		return UnitVolume, nil
	case "box", "caja":
		return UnitBox, nil
	case "bag", "funda":
		return UnitBag, nil
	}
	return "", invalid("unit", fmt.Sprintf("unknown unit kind %q", s))
}

func (k UnitKind) IsContainer() bool { return k == UnitBox || k == UnitBag }

func (k UnitKind) nouns() (singular, plural string) {
	if k == UnitBag {
		return "funda", "fundas"
	}
	return "caja", "cajas"
}

// Fraction is the part of a container added to the whole count, in quarters.
type Fraction uint8

const (
	FractionNone    Fraction = 0
	FractionQuarter Fraction = 1
	FractionHalf    Fraction = 2
)

func ParseFraction(s string) (Fraction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0":
		return FractionNone, nil
	case "1/2", "0.5", ".5", "½", "half":
		return FractionHalf, nil
	case "1/4", "0.25", ".25", "¼", "quarter":
		return FractionQuarter, nil
	}
	return FractionNone, invalid("fraction", fmt.Sprintf("%q is not one of 0, 1/2, 1/4", s))
}

func (f Fraction) Valid() bool {
	return f == FractionNone || f == FractionQuarter || f == FractionHalf
}

func (f Fraction) Decimal() decimal.Decimal { return decimal.New(int64(f)*25, -2) }

func (f Fraction) Symbol() string {
	switch f {
	case FractionHalf:
		return "½"
	case FractionQuarter:
		return "¼"
	}
	return ""
}

// QuantityInput is raw operator input; only the fields of the selected
// kind are read.
type QuantityInput struct {
	Count    int
	Weight   string
	Approx   string
	Volume   string
	Whole    int
	Fraction Fraction
	Extra    int
}

// Quantity is one of Count, Weight, Volume or Container.
type Quantity interface {
	Kind() UnitKind
	Label(name string) string
	isQuantity()
}

type Count struct{ N int }

func (Count) Kind() UnitKind { return UnitCount }
func (Count) isQuantity()    {}

func (c Count) Label(name string) string { return fmt.Sprintf("%dx %s", c.N, name) }

func (c Count) Inc() Count { return Count{N: c.N + 1} }

// Dec never goes below one.
func (c Count) Dec() Count {
	if c.N <= 1 {
		return Count{N: 1}
	}
	return Count{N: c.N - 1}
}

// Weight may be left unset at the counter and weighed at the register.
// Approx carries a fraction of an indivisible unit, e.g. "½ horma".
type Weight struct {
	Kg     *decimal.Decimal
	Approx string
}

func (Weight) Kind() UnitKind { return UnitWeight }
func (Weight) isQuantity()    {}

func (w Weight) Label(name string) string {
	var b strings.Builder
	b.WriteString(name)
	if w.Approx != "" {
		b.WriteString(" (" + w.Approx + ")")
	}
	if w.Kg != nil {
		b.WriteString(" - " + w.Kg.String() + "kg")
	}
	return b.String()
}

type Volume struct {
	Liters *decimal.Decimal
}

func (Volume) Kind() UnitKind { return UnitVolume }
func (Volume) isQuantity()    {}

func (v Volume) Label(name string) string {
	l := decimal.Zero
	if v.Liters != nil {
		l = *v.Liters
	}
	return name + " - " + l.String() + "L"
}

// Container is a box or bag quantity: whole containers plus a fraction plus
// loose units.
type Container struct {
	Unit     UnitKind
	Whole    int
	Fraction Fraction
	Extra    int
}

func (c Container) Kind() UnitKind { return c.Unit }
func (Container) isQuantity()      {}

// Detail renders e.g. "2 y ½ cajas + 3u". Empty means nothing was selected.
func (c Container) Detail() string {
	singular, plural := c.Unit.nouns()
	parts := make([]string, 0, 2)
	switch {
	case c.Fraction != FractionNone && c.Whole == 0:
		parts = append(parts, c.Fraction.Symbol()+" "+singular)
	case c.Fraction != FractionNone:
		parts = append(parts, fmt.Sprintf("%d y %s %s", c.Whole, c.Fraction.Symbol(), plural))
	case c.Whole == 1:
		parts = append(parts, "1 "+singular)
	case c.Whole > 1:
		parts = append(parts, fmt.Sprintf("%d %s", c.Whole, plural))
	}
	if c.Extra > 0 {
		parts = append(parts, fmt.Sprintf("%du", c.Extra))
	}
	return strings.Join(parts, " + ")
}

func (c Container) Label(name string) string {
	d := c.Detail()
	if d == "" {
		return name
	}
	return name + " - " + d
}

// Total is whole plus fraction, ignoring loose units.
func (c Container) Total() decimal.Decimal {
	return decimal.NewFromInt(int64(c.Whole)).Add(c.Fraction.Decimal())
}

// Encode validates raw input for kind and returns the normalized payload.
func Encode(kind UnitKind, in QuantityInput) (Quantity, error) {
	switch kind {
	case UnitCount:
		if in.Count < 1 {
			return nil, invalid("quantity", "must be at least 1")
		}
		return Count{N: in.Count}, nil
	case UnitWeight:
		kg, err := parseAmount("weight", in.Weight)
		if err != nil {
			return nil, err
		}
		return Weight{Kg: kg, Approx: strings.TrimSpace(in.Approx)}, nil
	case UnitVolume:
		l, err := parseAmount("volume", in.Volume)
		if err != nil {
			return nil, err
		}
		return Volume{Liters: l}, nil
	case UnitBox, UnitBag:
		c := Container{Unit: kind, Whole: in.Whole, Fraction: in.Fraction, Extra: in.Extra}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, invalid("unit", fmt.Sprintf("unknown unit kind %q", kind))
}

// EncodeFor is Encode restricted to the units the product declares.
func EncodeFor(p Product, kind UnitKind, in QuantityInput) (Quantity, error) {
	if !p.Supports(kind) {
		return nil, invalid("unit", fmt.Sprintf("%s is not sold by %s", p.Name, kind))
	}
	return Encode(kind, in)
}

func (c Container) validate() error {
	switch {
	case c.Whole < 0:
		return invalid("whole", "must not be negative")
	case c.Extra < 0:
		return invalid("extra", "must not be negative")
	case !c.Fraction.Valid():
		return invalid("fraction", "must be 0, 1/2 or 1/4")
	case c.Detail() == "":
		return invalid("quantity", "no quantity selected")
	}
	return nil
}

// Weights and volumes are stored as numeric(10,3).
const (
	amountScale = 3
	amountLimit = 10_000_000
)

// parseAmount treats blank and zero as unset. Amounts must fit the stored
// column exactly so the register reads what the counter showed.
func parseAmount(field, raw string) (*decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, invalid(field, fmt.Sprintf("%q is not a number", raw))
	}
	if err := checkAmount(field, d); err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

func checkAmount(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return invalid(field, "must not be negative")
	case !d.Equal(d.Truncate(amountScale)):
		return invalid(field, fmt.Sprintf("at most %d decimal places", amountScale))
	case d.GreaterThanOrEqual(decimal.NewFromInt(amountLimit)):
		return invalid(field, fmt.Sprintf("must be below %d", amountLimit))
	}
	return nil
}

// QuantityFields is the flat storage shape shared by the draft codec and
// the order_items table.
type QuantityFields struct {
	Count    int              `json:"quantity,omitempty"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
	Approx   string           `json:"approx,omitempty"`
	Volume   *decimal.Decimal `json:"volume,omitempty"`
	Whole    int              `json:"whole,omitempty"`
	Fraction Fraction         `json:"fraction,omitempty"`
	Extra    int              `json:"extra,omitempty"`
}

func FieldsOf(q Quantity) QuantityFields {
	switch v := q.(type) {
	case Count:
		return QuantityFields{Count: v.N}
	case Weight:
		return QuantityFields{Weight: v.Kg, Approx: v.Approx}
	case Volume:
		return QuantityFields{Volume: v.Liters}
	case Container:
		return QuantityFields{Whole: v.Whole, Fraction: v.Fraction, Extra: v.Extra}
	}
	return QuantityFields{}
}

// Restore rebuilds the payload for kind from stored fields, applying the
// same rules as Encode.
func (f QuantityFields) Restore(kind UnitKind) (Quantity, error) {
	switch kind {
	case UnitCount:
		if f.Count < 1 {
			return nil, invalid("quantity", "must be at least 1")
		}
		return Count{N: f.Count}, nil
	case UnitWeight:
		if f.Weight != nil {
			if err := checkAmount("weight", *f.Weight); err != nil {
				return nil, err
			}
		}
		return Weight{Kg: f.Weight, Approx: f.Approx}, nil
	case UnitVolume:
		if f.Volume != nil {
			if err := checkAmount("volume", *f.Volume); err != nil {
				return nil, err
			}
		}
		return Volume{Liters: f.Volume}, nil
	case UnitBox, UnitBag:
		c := Container{Unit: kind, Whole: f.Whole, Fraction: f.Fraction, Extra: f.Extra}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, invalid("unit", fmt.Sprintf("unknown unit kind %q", kind))
}
