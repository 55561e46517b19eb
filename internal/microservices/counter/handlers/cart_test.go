package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counter-pos/internal/catalog"
	"counter-pos/internal/common/httpx"
	"counter-pos/internal/common/logger"
	"counter-pos/internal/common/metrics"
	"counter-pos/internal/domain"
	"counter-pos/internal/microservices/counter/draft"
	"counter-pos/internal/microservices/counter/service"
	"counter-pos/internal/microservices/order/repository"
	ordersvc "counter-pos/internal/microservices/order/service"
)

var (
	huevos = domain.Product{ID: uuid.New(), Name: "Huevos", Units: []domain.UnitKind{domain.UnitBox, domain.UnitCount}}
	queso  = domain.Product{ID: uuid.New(), Name: "Queso", Units: []domain.UnitKind{domain.UnitWeight}}
)

type api struct {
	t    *testing.T
	srv  *httptest.Server
	repo *repository.MemoryOrderRepository
}

func newAPI(t *testing.T) *api {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "counter")
	repo := repository.NewMemoryOrderRepository()
	cat := catalog.NewStatic(huevos, queso)
	sess := service.NewSession(context.Background(), draft.NewSlotStore(draft.NewMemoryKV()),
		ordersvc.NewOrderService(repo, nil, logger.Nop(), m), cat, logger.Nop(), m)

	srv := httptest.NewServer(Router(New(sess, cat), logger.Nop(), m, reg))
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, repo: repo}
}

func (a *api) do(method, path, body string, headers map[string]string) (int, map[string]any) {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, strings.NewReader(body))
	require.NoError(a.t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.Header.Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestAuthoringFlow(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/v1/cart/lines",
		`{"product_id":"`+huevos.ID.String()+`","unit":"box","whole":2,"fraction":"1/2","extra":3}`, nil)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Huevos - 2 y ½ cajas + 3u", body["label"])

	code, body = a.do(http.MethodPost, "/api/v1/cart/lines",
		`{"product_id":"`+queso.ID.String()+`","approx":"½ horma"}`, nil)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Queso (½ horma)", body["label"])

	code, body = a.do(http.MethodPut, "/api/v1/cart/lines/1", `{"weight":"1.25","approx":"½ horma"}`, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Queso (½ horma) - 1.25kg", body["label"])

	code, body = a.do(http.MethodPost, "/api/v1/cart/lines/0/ready", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ready"])

	code, body = a.do(http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.5, body["progress"])
	assert.Len(t, body["lines"], 2)

	// customer missing
	code, body = a.do(http.MethodPost, "/api/v1/cart/submit", "", map[string]string{
		httpx.HeaderEmployeeID: uuid.NewString(), httpx.HeaderEmployeeName: "Rosa",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "not_ready", body["type"])

	code, _ = a.do(http.MethodPut, "/api/v1/cart/customer", `{"name":"Marta"}`, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = a.do(http.MethodPost, "/api/v1/cart/submit", "", map[string]string{
		httpx.HeaderEmployeeID: uuid.NewString(), httpx.HeaderEmployeeName: "Rosa",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "sent", body["status"])
	assert.Equal(t, float64(2), body["lines"])

	sent, err := a.repo.ListSent(context.Background())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "Marta", sent[0].CustomerName)

	code, body = a.do(http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["lines"])
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/v1/cart/lines",
		`{"product_id":"`+huevos.ID.String()+`","unit":"box"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation_error", body["type"])

	code, _ = a.do(http.MethodPost, "/api/v1/cart/lines", `{"product_id":"`+uuid.NewString()+`"}`, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodDelete, "/api/v1/cart/lines/4", "", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "stale_index", body["type"])

	code, _ = a.do(http.MethodPost, "/api/v1/cart/lines/abc/increment", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/v1/cart/lines", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/v1/cart/submit", "", map[string]string{httpx.HeaderEmployeeID: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestIncrementDecrement(t *testing.T) {
	a := newAPI(t)
	code, _ := a.do(http.MethodPost, "/api/v1/cart/lines",
		`{"product_id":"`+huevos.ID.String()+`","unit":"count"}`, nil)
	require.Equal(t, http.StatusCreated, code)

	_, body := a.do(http.MethodPost, "/api/v1/cart/lines/0/decrement", "", nil)
	assert.Equal(t, "1x Huevos", body["label"])
	_, body = a.do(http.MethodPost, "/api/v1/cart/lines/0/increment", "", nil)
	assert.Equal(t, "2x Huevos", body["label"])
}

func TestProductsHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	code, body := a.do(http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 2)

	code, _ = a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)

	resp, err := a.srv.Client().Get(a.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
