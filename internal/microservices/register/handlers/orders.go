package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/register/service"
)

const (
	historyWindow   = 7 * 24 * time.Hour
	streamKeepAlive = 15 * time.Second
)

type OrdersHandler struct {
	station *service.Station
	log     *logger.Logger
}

func NewOrdersHandler(st *service.Station, lg *logger.Logger) *OrdersHandler {
	return &OrdersHandler{station: st, log: lg}
}

func (h *OrdersHandler) Sent(w http.ResponseWriter, r *http.Request) {
	orders, err := h.station.Refresh(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Complete answers 409 with the refreshed sent set when another station
// completed the order first.
func (h *OrdersHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("%w: order id", httpx.ErrBadRequest))
		return
	}
	emp, err := httpx.Employee(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	by := ""
	if emp != nil {
		by = emp.Name
	}

	order, err := h.station.Complete(r.Context(), id, by)
	current, _ := h.station.Orders()
	if errors.Is(err, domain.ErrConflictOnComplete) {
		httpx.WriteJSON(w, http.StatusConflict, map[string]any{
			"type":   "conflict_on_complete",
			"title":  http.StatusText(http.StatusConflict),
			"status": http.StatusConflict,
			"detail": err.Error(),
			"orders": current,
		})
		return
	}
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order, "orders": current})
}

// Completed lists history for ?from=&to= (RFC 3339). The default window is
// the last seven days.
func (h *OrdersHandler) Completed(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.Add(-historyWindow)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, fmt.Errorf("%w: from: %v", httpx.ErrBadRequest, err))
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, fmt.Errorf("%w: to: %v", httpx.ErrBadRequest, err))
			return
		}
		to = t
	}
	orders, err := h.station.History(r.Context(), from, to)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "orders": orders})
}

// Stream pushes the sent set as server-sent events, once on connect and
// again after every refresh.
func (h *OrdersHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteProblem(w, http.StatusInternalServerError, "stream_unsupported", "response does not support flushing")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	views, cancel := h.station.Watch()
	defer cancel()
	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case orders := <-views:
			body, err := json.Marshal(map[string]any{"orders": orders})
			if err != nil {
				h.log.Error("stream_encode_failed", err, nil)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: orders\ndata: %s\n\n", body); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
