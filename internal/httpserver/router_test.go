package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	identitysvc "storefront/internal/service/identity"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var (
	customer = &domain.User{ID: "user-1", Email: "jane@example.com", Role: domain.RoleUser}
	admin    = &domain.User{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
)

// stubIdentity accepts "customer" and "admin" bearer tokens.
type stubIdentity struct {
	err error
}

func (s *stubIdentity) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	switch token {
	case "customer":
		return customer, nil
	case "admin":
		return admin, nil
	}
	return nil, identitysvc.ErrInvalidToken
}

type stubOrderService struct {
	result     *ordersvc.CreateResult
	order      *domain.Order
	orders     []domain.Order
	total      int
	err        error
	lastInput  ordersvc.CreateInput
	lastUserID string
	lastStatus string
	lastTrack  string
	lastPage   int
	lastLimit  int
	listStatus string
}

func (s *stubOrderService) Create(_ context.Context, userID string, in ordersvc.CreateInput) (*ordersvc.CreateResult, error) {
	s.lastUserID = userID
	s.lastInput = in
	return s.result, s.err
}

func (s *stubOrderService) Get(_ context.Context, userID, _ string) (*domain.Order, error) {
	s.lastUserID = userID
	return s.order, s.err
}

func (s *stubOrderService) List(_ context.Context, userID, status string, page, limit int) ([]domain.Order, int, error) {
	s.lastUserID = userID
	s.listStatus = status
	s.lastPage = page
	s.lastLimit = limit
	return s.orders, s.total, s.err
}

func (s *stubOrderService) Cancel(_ context.Context, userID, _ string) (*domain.Order, error) {
	s.lastUserID = userID
	return s.order, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, _, status, tracking string) (*domain.Order, error) {
	s.lastStatus = status
	s.lastTrack = tracking
	return s.order, s.err
}

type stubCartService struct {
	items   []domain.CartItem
	summary domain.CartSummary
	err     error
	lastAdd cartsvc.AddInput
	lastQty int
	cleared bool
}

func (s *stubCartService) Get(_ context.Context, _ string) ([]domain.CartItem, error) {
	return s.items, s.err
}

func (s *stubCartService) Add(_ context.Context, _ string, in cartsvc.AddInput) ([]domain.CartItem, error) {
	s.lastAdd = in
	return s.items, s.err
}

func (s *stubCartService) Update(_ context.Context, _, _ string, qty int) ([]domain.CartItem, error) {
	s.lastQty = qty
	return s.items, s.err
}

func (s *stubCartService) Remove(_ context.Context, _, _ string) ([]domain.CartItem, error) {
	return s.items, s.err
}

func (s *stubCartService) Clear(_ context.Context, _ string) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) Summary(_ context.Context, _ string) (domain.CartSummary, error) {
	return s.summary, s.err
}

type stubProductService struct {
	page        *productsvc.Page
	product     *domain.Product
	err         error
	lastQuery   productsvc.ListQuery
	lastCat     string
	deactivated string
	lastRating  int
}

func (s *stubProductService) List(_ context.Context, q productsvc.ListQuery) (*productsvc.Page, error) {
	s.lastQuery = q
	return s.page, s.err
}

func (s *stubProductService) ByCategory(_ context.Context, category string, _, _ int) (*productsvc.Page, error) {
	s.lastCat = category
	return s.page, s.err
}

func (s *stubProductService) Get(_ context.Context, _ string) (*domain.Product, error) {
	return s.product, s.err
}

func (s *stubProductService) Deactivate(_ context.Context, id string) error {
	s.deactivated = id
	return s.err
}

func (s *stubProductService) AddReview(_ context.Context, _, _ string, rating int, _ string) (*domain.Product, error) {
	s.lastRating = rating
	return s.product, s.err
}

type testDeps struct {
	identity *stubIdentity
	orders   *stubOrderService
	carts    *stubCartService
	products *stubProductService
}

func newTestRouter(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	d := &testDeps{
		identity: &stubIdentity{},
		orders:   &stubOrderService{},
		carts:    &stubCartService{},
		products: &stubProductService{},
	}
	router, err := buildRouter(logDiscard(), nil, Deps{
		IdentitySvc: d.identity,
		OrderSvc:    d.orders,
		CartSvc:     d.carts,
		ProductSvc:  d.products,
	}, Options{CORSOrigins: []string{"http://localhost:3000"}, DefaultPageSize: 10, MaxPageSize: 50})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router, d
}

func newJSONRequest(method, path, token, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func do(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	return serve(router, newJSONRequest(method, path, token, body))
}

type decoded struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Count      *int            `json:"count"`
	Pagination *pagination     `json:"pagination"`
	Warnings   []string        `json:"warnings"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var out decoded
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := buildRouter(logDiscard(), nil, Deps{}, Options{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, path := range []string{"/healthz", "/api/health"} {
		rec := do(router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	rec := do(router, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without db, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get(requestIDHdr) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHdr, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHdr); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization,Idempotency-Key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestAuth_MissingAndInvalidToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/orders", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = do(router, http.MethodGet, "/api/orders", "forged", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
	if body := decode(t, rec); body.Success || body.Message == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestAuth_BackendFailureIs500(t *testing.T) {
	router, d := newTestRouter(t)
	d.identity.err = errors.New("db down")

	rec := do(router, http.MethodGet, "/api/orders", "customer", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	router, d := newTestRouter(t)
	d.orders.order = &domain.Order{ID: "o1", OrderStatus: domain.OrderStatusConfirmed}

	rec := do(router, http.MethodPut, "/api/orders/o1/status", "customer", `{"orderStatus":"confirmed"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rec.Code)
	}
	rec = do(router, http.MethodPut, "/api/orders/o1/status", "admin", `{"orderStatus":"confirmed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(router, http.MethodGet, "/api/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
