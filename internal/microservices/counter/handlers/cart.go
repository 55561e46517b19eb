package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"counter-pos/internal/catalog"
	"counter-pos/internal/common/httpx"
	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/counter/service"
)

type CartHandler struct {
	session *service.Session
	catalog catalog.Catalog
}

func NewCartHandler(s *service.Session, c catalog.Catalog) *CartHandler {
	return &CartHandler{session: s, catalog: c}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.session.View())
}

func (h *CartHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	h.session.SetCustomer(r.Context(), req.Trimmed())
	httpx.WriteJSON(w, http.StatusOK, h.session.View())
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req domain.AddLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	kind, in, err := quantity(req.Unit, req.QuantityRequest)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	line, err := h.session.AddLine(r.Context(), req.ProductID, kind, in, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) EditLine(w http.ResponseWriter, r *http.Request) {
	i, err := index(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req domain.EditLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	kind, in, err := quantity(req.Unit, req.QuantityRequest)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	line, err := h.session.EditLine(r.Context(), i, kind, in, req.Note)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, line)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	i, err := index(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.session.RemoveLine(r.Context(), i); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.session.View())
}

func (h *CartHandler) ToggleReady(w http.ResponseWriter, r *http.Request) {
	i, err := index(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	ready, err := h.session.ToggleReady(r.Context(), i)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"index": i, "ready": ready})
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.session.Increment)
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.session.Decrement)
}

func (h *CartHandler) step(w http.ResponseWriter, r *http.Request,
	f func(ctx context.Context, i int) (service.LineView, error)) {

	i, err := index(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	line, err := f(r.Context(), i)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, line)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.session.Clear(r.Context())
	httpx.WriteJSON(w, http.StatusOK, h.session.View())
}

func (h *CartHandler) Submit(w http.ResponseWriter, r *http.Request) {
	emp, err := httpx.Employee(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	order, lines, err := h.session.Submit(r.Context(), emp)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, domain.SubmitResponse{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Status:       order.Status,
		Lines:        lines,
	})
}

func (h *CartHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"diagnostics": h.session.Diagnostics()})
}

func (h *CartHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func index(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: line index %q", httpx.ErrBadRequest, raw)
	}
	return i, nil
}

// quantity resolves the unit name; "" keeps the line's or product's default.
func quantity(unit string, req domain.QuantityRequest) (domain.UnitKind, domain.QuantityInput, error) {
	var kind domain.UnitKind
	if unit != "" {
		k, err := domain.ParseUnitKind(unit)
		if err != nil {
			return "", domain.QuantityInput{}, err
		}
		kind = k
	}
	in, err := req.Input()
	if err != nil {
		return "", domain.QuantityInput{}, err
	}
	return kind, in, nil
}
