package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pharmacy-ops/config"
	"pharmacy-ops/internal/idalloc"
	"pharmacy-ops/internal/service"
	"pharmacy-ops/internal/store"
	"pharmacy-ops/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	handler *Handler
	catalog *service.Catalog
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	ctx := context.Background()

	st, err := store.NewStore(config.DefaultStorage(t.TempDir()), logger)
	require.NoError(t, err)

	ids := idalloc.NewRegistry()
	sessions := service.NewMemorySessions()
	catalog := service.NewCatalog(st, ids.For(idalloc.EntityProduct), nil, 10, logger)
	roster := service.NewRoster(st, ids.For(idalloc.EntityCustomer), logger)
	ledger := service.NewLedger(st, ids.For(idalloc.EntityOrder), catalog, roster, nil, logger)
	shifts := service.NewShiftManager(st, ledger, sessions, nil, logger)
	require.NoError(t, catalog.Load(ctx))
	_, err = roster.LoadAll(ctx)
	require.NoError(t, err)
	_, err = ledger.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, shifts.LoadState(ctx))
	require.NoError(t, shifts.LoadMembership(ctx))

	actor := worker.NewActor(8, logger)
	actorCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = actor.Start(actorCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := NewHandler(Deps{
		Catalog:  catalog,
		Roster:   roster,
		Ledger:   ledger,
		Checkout: service.NewCheckout(ledger, catalog, shifts, logger),
		Shifts:   shifts,
		Auth:     service.NewAuthenticator(map[string]string{"alice": "secret"}, sessions, 0, logger),
		Actor:    actor,
		Logger:   logger,
	})
	router := gin.New()
	h.SetupRoutes(router)
	h.SetReady(true)

	return &testServer{t: t, router: router, handler: h, catalog: catalog}
}

func (s *testServer) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set(SessionHeader, s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login() {
	s.t.Helper()
	w := s.request(http.MethodPost, "/api/v1/login", gin.H{"username": "alice", "password": "secret"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var session service.Session
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &session))
	s.token = session.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, "/ready", nil).Code)

	s.handler.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, s.request(http.MethodGet, "/ready", nil).Code)
}

func TestLoginRequired(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.request(http.MethodGet, "/api/v1/products", nil).Code)

	w := s.request(http.MethodPost, "/api/v1/login", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/api/v1/login", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.login()
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, "/api/v1/products", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.request(http.MethodPost, "/api/v1/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.request(http.MethodGet, "/api/v1/products", nil).Code)
}

func TestProductEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.request(http.MethodPost, "/api/v1/products", gin.H{
		"name": "Face Cream", "price": "45.00", "quantity": 30, "kind": "Cosmetic",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.EqualValues(t, 1, created["id"])
	assert.Equal(t, "All", created["skin_type"])

	w = s.request(http.MethodPost, "/api/v1/products", gin.H{"name": "Bad", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/v1/products/1/adjust", gin.H{"delta": -31})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.request(http.MethodPost, "/api/v1/products/1/adjust", gin.H{"delta": -25})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode(t, w)["quantity"])

	w = s.request(http.MethodGet, "/api/v1/products?low_stock=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = s.request(http.MethodPatch, "/api/v1/products/1", gin.H{"skin_type": "Oily"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Oily", decode(t, w)["skin_type"])

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/v1/products/9/adjust", gin.H{"delta": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodGet, "/api/v1/products/abc", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.request(http.MethodDelete, "/api/v1/products/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/v1/products/1", nil).Code)
}

func TestSaleFlow(t *testing.T) {
	s := newTestServer(t)
	s.login()

	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/v1/products", gin.H{
		"name": "Panadol", "price": "15.50", "quantity": 100, "kind": "Medicine",
	}).Code)
	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/v1/customers", gin.H{
		"name": "Farida", "phone": "01012345678",
	}).Code)
	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodPost, "/api/v1/customers", gin.H{
		"name": "", "phone": "0100",
	}).Code)

	w := s.request(http.MethodPost, "/api/v1/orders", gin.H{"customer_id": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)
	assert.EqualValues(t, 1, order["id"])
	assert.Equal(t, "alice", order["operator"])

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/v1/orders", gin.H{"customer_id": 7}).Code)

	w = s.request(http.MethodPost, "/api/v1/orders/1/complete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/v1/orders/1/lines", gin.H{"product_id": 1, "quantity": 30})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "465", decode(t, w)["total_amount"])

	w = s.request(http.MethodPost, "/api/v1/orders/1/lines", gin.H{"product_id": 1, "quantity": 80})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.request(http.MethodPost, "/api/v1/orders/1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode(t, w)["problems"])

	p, ok := s.catalog.FindByID(1)
	require.True(t, ok)
	assert.Equal(t, 70, p.Quantity)

	assert.Equal(t, http.StatusConflict, s.request(http.MethodPost, "/api/v1/orders/1/lines",
		gin.H{"product_id": 1, "quantity": 1}).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodDelete, "/api/v1/orders/5", nil).Code)

	w = s.request(http.MethodGet, "/api/v1/orders/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "Completed", got["status"])
	lines := got["lines"].([]interface{})
	require.Len(t, lines, 1)
	assert.Equal(t, "Panadol", lines[0].(map[string]interface{})["product_name"])

	w = s.request(http.MethodGet, "/api/v1/orders?scope=shift", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = s.request(http.MethodGet, "/api/v1/shift", nil)
	require.Equal(t, http.StatusOK, w.Code)
	shift := decode(t, w)
	assert.Equal(t, "Morning", shift["type"])
	assert.EqualValues(t, 30, shift["item_count"])
}

func TestDiscardAndRemoveLine(t *testing.T) {
	s := newTestServer(t)
	s.login()
	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/v1/products", gin.H{
		"name": "Aspirin", "price": "12", "quantity": 75,
	}).Code)
	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/v1/customers", gin.H{
		"name": "Haneen", "phone": "0100",
	}).Code)
	require.Equal(t, http.StatusCreated, s.request(http.MethodPost, "/api/v1/orders", gin.H{"customer_id": 1}).Code)
	require.Equal(t, http.StatusOK, s.request(http.MethodPost, "/api/v1/orders/1/lines",
		gin.H{"product_id": 1, "quantity": 2}).Code)

	w := s.request(http.MethodDelete, "/api/v1/orders/1/lines/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["lines"])
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodDelete, "/api/v1/orders/1/lines/1", nil).Code)

	w = s.request(http.MethodGet, "/api/v1/orders?scope=pending", nil)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	assert.Equal(t, http.StatusNoContent, s.request(http.MethodDelete, "/api/v1/orders/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/v1/orders/1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodGet, "/api/v1/orders?scope=weird", nil).Code)
}

func TestEndShiftRevokesSession(t *testing.T) {
	s := newTestServer(t)
	s.login()

	w := s.request(http.MethodPost, "/api/v1/shift/end", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)
	assert.Equal(t, "Morning", summary["type"])
	assert.Equal(t, "Evening", summary["next_type"])
	assert.Equal(t, "alice", summary["operator"])

	assert.Equal(t, http.StatusUnauthorized, s.request(http.MethodGet, "/api/v1/shift", nil).Code)

	s.login()
	w = s.request(http.MethodGet, "/api/v1/shift", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Evening", decode(t, w)["type"])
}
