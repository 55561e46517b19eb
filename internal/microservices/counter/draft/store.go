package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/counter/cart"
)

const (
	LinesKey    = "cartDraft"
	CustomerKey = "cartDraftCustomer"
)

type Draft struct {
	Lines    []cart.Line
	Customer string
}

// Store mirrors the cart of one authoring session.
type Store interface {
	Load(ctx context.Context) (Draft, error)
	SaveLines(ctx context.Context, lines []cart.Line) error
	SaveCustomer(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}

// SlotStore keeps the draft in two KV slots. An empty cart or a blank
// customer deletes its slot instead of writing an empty value.
type SlotStore struct {
	kv KV
}

func NewSlotStore(kv KV) *SlotStore { return &SlotStore{kv: kv} }

// Load returns ErrPersistence when either slot is unreadable. Each slot is
// read on its own: a failed customer read still returns the decoded lines
// and a failed lines read still returns the customer.
func (s *SlotStore) Load(ctx context.Context) (Draft, error) {
	var d Draft
	var errs []error

	name, ok, err := s.kv.Get(ctx, CustomerKey)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: load customer: %v", domain.ErrPersistence, err))
	case ok:
		d.Customer = name
	}

	raw, ok, err := s.kv.Get(ctx, LinesKey)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%w: load lines: %v", domain.ErrPersistence, err))
	case ok && strings.TrimSpace(raw) != "":
		lines, err := Decode(raw)
		if err != nil {
			errs = append(errs, err)
		} else {
			d.Lines = lines
		}
	}
	return d, errors.Join(errs...)
}

func (s *SlotStore) SaveLines(ctx context.Context, lines []cart.Line) error {
	if len(lines) == 0 {
		return s.wrap("delete lines", s.kv.Delete(ctx, LinesKey))
	}
	raw, err := Encode(lines)
	if err != nil {
		return s.wrap("encode lines", err)
	}
	return s.wrap("save lines", s.kv.Set(ctx, LinesKey, raw))
}

func (s *SlotStore) SaveCustomer(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return s.wrap("delete customer", s.kv.Delete(ctx, CustomerKey))
	}
	return s.wrap("save customer", s.kv.Set(ctx, CustomerKey, name))
}

func (s *SlotStore) Clear(ctx context.Context) error {
	return errors.Join(
		s.wrap("delete lines", s.kv.Delete(ctx, LinesKey)),
		s.wrap("delete customer", s.kv.Delete(ctx, CustomerKey)),
	)
}

func (s *SlotStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}
