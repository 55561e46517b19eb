package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
)

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteProblem writes a simplified RFC 7807 body.
func WriteProblem(w http.ResponseWriter, code int, typ, detail string) {
	WriteJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// Instrument records request count and latency per chi route pattern.
func Instrument(m *metrics.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

// WriteError maps pipeline errors onto problem responses.
func WriteError(w http.ResponseWriter, err error) {
	code, typ := classify(err)
	WriteProblem(w, code, typ, err.Error())
}

// ErrBadRequest marks malformed requests: bad JSON, non-numeric path values.
var ErrBadRequest = errors.New("bad request")

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, domain.ErrNotReady):
		return http.StatusUnprocessableEntity, "not_ready"
	case errors.Is(err, domain.ErrStaleIndex):
		return http.StatusConflict, "stale_index"
	case errors.Is(err, domain.ErrConflictOnComplete):
		return http.StatusConflict, "conflict_on_complete"
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrSubmissionPartialFailure):
		return http.StatusServiceUnavailable, "submission_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

const (
	HeaderEmployeeID   = "X-Employee-ID"
	HeaderEmployeeName = "X-Employee-Name"
)

// Employee reads the identity forwarded by the authenticating proxy. It
// returns nil without error when no identity was sent.
func Employee(r *http.Request) (*domain.Employee, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderEmployeeID))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &domain.ValidationError{Field: HeaderEmployeeID, Reason: "not a uuid"}
	}
	return &domain.Employee{ID: id, Name: strings.TrimSpace(r.Header.Get(HeaderEmployeeName))}, nil
}

func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logging writes one line per request.
func Logging(lg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			lg.Debug("http_request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
		})
	}
}
