package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"counter-pos/internal/catalog"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/counter/cart"
	"counter-pos/internal/microservices/counter/draft"
)

// Submitter is the order queue as seen from the counter.
type Submitter interface {
	Submit(ctx context.Context, sub domain.Submission) (domain.OrderHeader, error)
}

// Diagnostic records a draft failure the operator was not interrupted for.
type Diagnostic struct {
	At    time.Time `json:"at"`
	Op    string    `json:"op"`
	Error string    `json:"error"`
}

const maxDiagnostics = 50

// Session is one authoring station: a single cart mirrored to its draft
// store. Methods are serialized so concurrent HTTP requests still see a
// single writer.
type Session struct {
	mu      sync.Mutex
	cart    *cart.Cart
	store   draft.Store
	orders  Submitter
	catalog catalog.Catalog
	log     *logger.Logger
	metrics *metrics.Pipeline
	diags   []Diagnostic
	now     func() time.Time
}

// NewSession rehydrates from store. An unreadable draft never fails the
// session: it starts with whatever slots could be read and a diagnostic.
func NewSession(ctx context.Context, store draft.Store, orders Submitter, cat catalog.Catalog,
	lg *logger.Logger, m *metrics.Pipeline) *Session {

	s := &Session{
		store:   store,
		orders:  orders,
		catalog: cat,
		log:     lg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	d, err := store.Load(ctx)
	if err != nil {
		s.diagnose("load", err)
	}
	s.cart = cart.Restore(d.Lines, d.Customer)
	lg.Info("draft_restored", map[string]any{"lines": len(d.Lines), "customer": d.Customer != ""})
	return s
}

type LineView struct {
	Index       int             `json:"index"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Location    string          `json:"location,omitempty"`
	Unit        domain.UnitKind `json:"unit"`
	domain.QuantityFields
	Label string `json:"label"`
	Note  string `json:"note,omitempty"`
	Ready bool   `json:"ready"`
}

type GroupView struct {
	Location string `json:"location"`
	Lines    []int  `json:"lines"`
}

// View is a read-only snapshot of the cart.
type View struct {
	Customer   string      `json:"customer"`
	Lines      []LineView  `json:"lines"`
	Groups     []GroupView `json:"groups"`
	ReadyCount int         `json:"ready_count"`
	Progress   float64     `json:"progress"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	v := View{
		Customer:   s.cart.Customer(),
		Lines:      []LineView{},
		Groups:     []GroupView{},
		ReadyCount: s.cart.ReadyCount(),
		Progress:   s.cart.Progress(),
	}
	for i, l := range s.cart.Lines() {
		v.Lines = append(v.Lines, lineView(i, l))
	}
	for _, g := range s.cart.Groups() {
		gv := GroupView{Location: g.Location}
		for _, il := range g.Lines {
			gv.Lines = append(gv.Lines, il.Index)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

func lineView(i int, l cart.Line) LineView {
	return LineView{
		Index:          i,
		ProductID:      l.Product.ID,
		ProductName:    l.Product.Name,
		Location:       l.Product.LocationName(),
		Unit:           l.Unit,
		QuantityFields: domain.FieldsOf(l.Quantity),
		Label:          l.Label(),
		Note:           l.Note,
		Ready:          l.Ready,
	}
}

func (s *Session) SetCustomer(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetCustomer(strings.TrimSpace(name))
	s.saveCustomer(ctx)
}

// AddLine looks the product up in the catalog; an empty kind selects the
// product's default unit.
func (s *Session) AddLine(ctx context.Context, productID uuid.UUID, kind domain.UnitKind, in domain.QuantityInput, note string) (LineView, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return LineView{}, err
	}
	if kind == "" {
		kind = p.DefaultUnit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.cart.Add(p, kind, in, note)
	if err != nil {
		return LineView{}, err
	}
	s.saveLines(ctx, "add")
	return lineView(s.cart.Len()-1, l), nil
}

func (s *Session) EditLine(ctx context.Context, i int, kind domain.UnitKind, in domain.QuantityInput, note string) (LineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == "" && i >= 0 && i < s.cart.Len() {
		kind = s.cart.Lines()[i].Unit
	}
	l, err := s.cart.Edit(i, kind, in, note)
	if err != nil {
		return LineView{}, err
	}
	s.saveLines(ctx, "edit")
	return lineView(i, l), nil
}

func (s *Session) RemoveLine(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.Remove(i); err != nil {
		return err
	}
	s.saveLines(ctx, "remove")
	return nil
}

func (s *Session) ToggleReady(ctx context.Context, i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ready, err := s.cart.ToggleReady(i)
	if err != nil {
		return false, err
	}
	s.saveLines(ctx, "ready")
	return ready, nil
}

func (s *Session) Increment(ctx context.Context, i int) (LineView, error) {
	return s.step(ctx, i, "increment", (*cart.Cart).Increment)
}

func (s *Session) Decrement(ctx context.Context, i int) (LineView, error) {
	return s.step(ctx, i, "decrement", (*cart.Cart).Decrement)
}

func (s *Session) step(ctx context.Context, i int, op string, f func(*cart.Cart, int) (cart.Line, error)) (LineView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := f(s.cart, i)
	if err != nil {
		return LineView{}, err
	}
	s.saveLines(ctx, op)
	return lineView(i, l), nil
}

// Clear discards the cart and its draft.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.clearDraft(ctx)
}

// Submit hands the cart to the queue. On any error the cart and draft are
// left as they were so the operator can retry.
func (s *Session) Submit(ctx context.Context, employee *domain.Employee) (domain.OrderHeader, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer := strings.TrimSpace(s.cart.Customer())
	switch {
	case customer == "":
		return domain.OrderHeader{}, 0, fmt.Errorf("%w: customer name is required", domain.ErrNotReady)
	case s.cart.Len() == 0:
		return domain.OrderHeader{}, 0, fmt.Errorf("%w: cart is empty", domain.ErrNotReady)
	case employee == nil:
		return domain.OrderHeader{}, 0, fmt.Errorf("%w: no authenticated employee", domain.ErrNotReady)
	}

	lines := s.cart.Lines()
	sub := domain.Submission{CustomerName: customer, Employee: employee, Lines: make([]domain.OrderLine, 0, len(lines))}
	for _, l := range lines {
		sub.Lines = append(sub.Lines, domain.NewOrderLine(l.Product, l.Quantity, l.Note))
	}

	h, err := s.orders.Submit(ctx, sub)
	if err != nil {
		return domain.OrderHeader{}, 0, err
	}
	s.cart.Clear()
	s.clearDraft(ctx)
	return h, len(sub.Lines), nil
}

func (s *Session) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Diagnostic{}, s.diags...)
}

func (s *Session) saveLines(ctx context.Context, op string) {
	if err := s.store.SaveLines(ctx, s.cart.Lines()); err != nil {
		s.diagnose(op, err)
	}
}

func (s *Session) saveCustomer(ctx context.Context) {
	if err := s.store.SaveCustomer(ctx, s.cart.Customer()); err != nil {
		s.diagnose("customer", err)
	}
}

func (s *Session) clearDraft(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.diagnose("clear", err)
	}
}

func (s *Session) diagnose(op string, err error) {
	if !errors.Is(err, domain.ErrPersistence) {
		err = fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	s.metrics.DraftErrors.WithLabelValues(op).Inc()
	s.log.Warn("draft_persistence_failed", map[string]any{"op": op, "error": err.Error()})
	s.diags = append(s.diags, Diagnostic{At: s.now(), Op: op, Error: err.Error()})
	if len(s.diags) > maxDiagnostics {
		s.diags = s.diags[len(s.diags)-maxDiagnostics:]
	}
}
