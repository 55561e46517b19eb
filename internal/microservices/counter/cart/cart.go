package cart

import (
	"fmt"
	"sort"
	"strings"

	"counter-pos/internal/domain"
)

// Line is one product entry of the in-progress order.
type Line struct {
	Product  domain.Product
	Unit     domain.UnitKind
	Quantity domain.Quantity
	Note     string
	Ready    bool
}

func (l Line) Label() string { return l.Quantity.Label(l.Product.Name) }

// Cart is owned by a single authoring session and is not safe for
// concurrent use.
type Cart struct {
	lines    []Line
	customer string
}

func New() *Cart { return &Cart{} }

// Restore rebuilds a cart from a persisted draft.
func Restore(lines []Line, customer string) *Cart {
	return &Cart{lines: append([]Line(nil), lines...), customer: customer}
}

func (c *Cart) Add(p domain.Product, kind domain.UnitKind, in domain.QuantityInput, note string) (Line, error) {
	in, note = weightNote(kind, in, note, nil)
	q, err := domain.EncodeFor(p, kind, in)
	if err != nil {
		return Line{}, err
	}
	l := Line{Product: p, Unit: kind, Quantity: q, Note: note}
	c.lines = append(c.lines, l)
	return l, nil
}

// Edit replaces the quantity of line i in place. The ready flag is kept.
func (c *Cart) Edit(i int, kind domain.UnitKind, in domain.QuantityInput, note string) (Line, error) {
	if err := c.check(i); err != nil {
		return Line{}, err
	}
	cur := c.lines[i]
	in, note = weightNote(kind, in, note, cur.Quantity)
	q, err := domain.EncodeFor(cur.Product, kind, in)
	if err != nil {
		return Line{}, err
	}
	cur.Unit, cur.Quantity, cur.Note = kind, q, note
	c.lines[i] = cur
	return cur, nil
}

func (c *Cart) Remove(i int) error {
	if err := c.check(i); err != nil {
		return err
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

func (c *Cart) ToggleReady(i int) (bool, error) {
	if err := c.check(i); err != nil {
		return false, err
	}
	c.lines[i].Ready = !c.lines[i].Ready
	return c.lines[i].Ready, nil
}

func (c *Cart) Increment(i int) (Line, error) {
	return c.step(i, domain.Count.Inc)
}

// Decrement stops at one without error.
func (c *Cart) Decrement(i int) (Line, error) {
	return c.step(i, domain.Count.Dec)
}

func (c *Cart) step(i int, f func(domain.Count) domain.Count) (Line, error) {
	if err := c.check(i); err != nil {
		return Line{}, err
	}
	n, ok := c.lines[i].Quantity.(domain.Count)
	if !ok {
		return Line{}, &domain.ValidationError{Field: "unit", Reason: "only count lines can be stepped"}
	}
	c.lines[i].Quantity = f(n)
	return c.lines[i], nil
}

func (c *Cart) SetCustomer(name string) { c.customer = name }
func (c *Cart) Customer() string        { return c.customer }

// Clear drops every line and the customer name.
func (c *Cart) Clear() {
	c.lines = nil
	c.customer = ""
}

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy in insertion order.
func (c *Cart) Lines() []Line { return append([]Line(nil), c.lines...) }

func (c *Cart) ReadyCount() int {
	n := 0
	for _, l := range c.lines {
		if l.Ready {
			n++
		}
	}
	return n
}

func (c *Cart) Progress() float64 {
	if len(c.lines) == 0 {
		return 0
	}
	return float64(c.ReadyCount()) / float64(len(c.lines))
}

type Indexed struct {
	Index int
	Line  Line
}

// Group holds the lines stored at one location. Location is "" for
// products without one.
type Group struct {
	Location string
	Lines    []Indexed
}

// Groups orders locations alphabetically with the locationless group last;
// within a group lines keep insertion order.
func (c *Cart) Groups() []Group {
	byLoc := map[string]*Group{}
	var keys []string
	for i, l := range c.lines {
		loc := l.Product.LocationName()
		g, ok := byLoc[loc]
		if !ok {
			g = &Group{Location: loc}
			byLoc[loc] = g
			keys = append(keys, loc)
		}
		g.Lines = append(g.Lines, Indexed{Index: i, Line: l})
	}
	sort.SliceStable(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka == "" || kb == "" {
			return kb == "" && ka != ""
		}
		return strings.ToLower(ka) < strings.ToLower(kb)
	})
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byLoc[k])
	}
	return out
}

// weightNote makes the note of a weight line its payload note when no
// approximate amount was given, so "Queso" with note "½ horma" reads
// "Queso (½ horma)". An edit that only sets the weight keeps the previous
// payload note.
func weightNote(kind domain.UnitKind, in domain.QuantityInput, note string, prev domain.Quantity) (domain.QuantityInput, string) {
	note = strings.TrimSpace(note)
	if kind != domain.UnitWeight {
		return in, note
	}
	in.Approx = strings.TrimSpace(in.Approx)
	if in.Approx == "" {
		in.Approx = note
	}
	if in.Approx == "" {
		if w, ok := prev.(domain.Weight); ok {
			in.Approx = w.Approx
		}
	}
	if note == in.Approx {
		note = ""
	}
	return in, note
}

func (c *Cart) check(i int) error {
	if i < 0 || i >= len(c.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", domain.ErrStaleIndex, i, len(c.lines))
	}
	return nil
}
