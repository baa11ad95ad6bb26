package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

const usHeader = `{"name":"United States","code":"US"}`

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *gorm.DB
	m       testutil.Marketplace
	mr      *miniredis.Miniredis
	jwt     *auth.JWTManager
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Marketplace Test", Version: "test", Environment: "test"},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 16},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-at-least-32-characters",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Content-Type", "Authorization", country.HeaderName},
		},
		Checkout: config.CheckoutConfig{
			Currency:                "USD",
			LookupTimeout:           2 * time.Second,
			MaxParallelLookups:      4,
			DefaultCountryName:      "United States",
			DefaultCountryCode:      "US",
			FallbackShippingService: "International Delivery",
			FallbackDeliveryMin:     7,
			FallbackDeliveryMax:     30,
			GuestCartTTL:            time.Hour,
		},
		Company: config.CompanyConfig{Name: "Marketplace", Email: "support@example.com"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewSQLiteDB(t,
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderGroup{}, &order.OrderItem{}, &order.OrderStatusHistory{},
	)
	m := testutil.SeedMarketplace(t, db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := NewServer(cfg, db, client, logger.Discard(), metrics.New())
	return &testServer{
		t:       t,
		handler: srv.Handler(),
		db:      db,
		m:       m,
		mr:      mr,
		jwt:     auth.NewJWTManager(cfg.JWT, cfg.App.Name),
	}
}

func (s *testServer) token(userID uint) string {
	s.t.Helper()
	token, err := s.jwt.GenerateAccessToken(userID, fmt.Sprintf("buyer%d@example.com", userID))
	require.NoError(s.t, err)
	return token
}

type request struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
	cookies []*http.Cookie
}

func (s *testServer) do(r request) *httptest.ResponseRecorder {
	s.t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(s.t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

type cartEnvelope struct {
	Data struct {
		CartID *uint `json:"cart_id"`
		cart.RefreshResult
	} `json:"data"`
}

func TestServer_HealthReadyMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.do(request{method: http.MethodGet, path: "/ready"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marketplace_http_requests_total")

	s.mr.Close()
	w = s.do(request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCartRefresh_GuestClampsAndPrices(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{
		method:  http.MethodPost,
		path:    "/api/v1/cart/refresh",
		headers: map[string]string{country.HeaderName: usHeader},
		body: gin.H{"lines": []cart.CartLine{
			{ProductID: s.m.Tee.ProductID, VariantID: s.m.Tee.VariantID, SizeID: s.m.Tee.SizeID, Quantity: 3},
			{ProductID: s.m.Cap.ProductID, VariantID: s.m.Cap.VariantID, SizeID: s.m.Cap.SizeID, Quantity: 50},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp cartEnvelope
	decode(t, w, &resp)
	assert.Equal(t, "US", resp.Data.Country.Code)
	require.Len(t, resp.Data.Lines, 2)
	assert.Empty(t, resp.Data.Failures)

	tee, capLine := resp.Data.Lines[0], resp.Data.Lines[1]
	assertMoney(t, "9", tee.ShippingFee)
	assertMoney(t, "60", tee.TotalPrice.Sub(tee.ShippingFee))
	assert.Equal(t, 50, capLine.RequestedQuantity)
	assert.Equal(t, 4, capLine.Quantity)
	assert.True(t, capLine.IsFreeShipping)

	assertMoney(t, "108", resp.Data.Totals.SubTotal)
	assertMoney(t, "9", resp.Data.Totals.ShippingFees)
	assertMoney(t, "117", resp.Data.Totals.Total)

	// the same request yields the same body
	again := s.do(request{
		method:  http.MethodPost,
		path:    "/api/v1/cart/refresh",
		headers: map[string]string{country.HeaderName: usHeader},
		body: gin.H{"lines": []cart.CartLine{
			{ProductID: s.m.Tee.ProductID, VariantID: s.m.Tee.VariantID, SizeID: s.m.Tee.SizeID, Quantity: 3},
			{ProductID: s.m.Cap.ProductID, VariantID: s.m.Cap.VariantID, SizeID: s.m.Cap.SizeID, Quantity: 50},
		}},
	})
	assert.JSONEq(t, w.Body.String(), again.Body.String())
}

func TestCartRefresh_UnknownCountryFailsEveryLine(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{
		method:  http.MethodPost,
		path:    "/api/v1/cart/refresh",
		headers: map[string]string{country.HeaderName: `{"name":"Atlantis","code":"AT"}`},
		body: gin.H{"lines": []cart.CartLine{
			{ProductID: s.m.Tee.ProductID, VariantID: s.m.Tee.VariantID, SizeID: s.m.Tee.SizeID, Quantity: 1},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp cartEnvelope
	decode(t, w, &resp)
	assert.Empty(t, resp.Data.Lines)
	require.Len(t, resp.Data.Failures, 1)
	assert.Equal(t, "unroutable_shipping", string(resp.Data.Failures[0].Kind))
}

func TestGuestCart_SessionCookieAndMerge(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{
		method: http.MethodPost,
		path:   "/api/v1/cart/items",
		body:   cart.AddLineRequest{ProductID: s.m.Tee.ProductID, VariantID: s.m.Tee.VariantID, SizeID: s.m.Tee.SizeID, Quantity: 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			session = c
		}
	}
	require.NotNil(t, session)

	w = s.do(request{method: http.MethodGet, path: "/api/v1/cart", cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, w.Code)
	var guest cartEnvelope
	decode(t, w, &guest)
	require.Len(t, guest.Data.Lines, 1)
	assert.Equal(t, 2, guest.Data.Lines[0].Quantity)

	token := s.token(7)
	w = s.do(request{method: http.MethodPost, path: "/api/v1/cart/merge", token: token, cookies: []*http.Cookie{session}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var merged cartEnvelope
	decode(t, w, &merged)
	require.NotNil(t, merged.Data.CartID)
	require.Len(t, merged.Data.Lines, 1)
	assert.Equal(t, 2, merged.Data.Lines[0].Quantity)
}

func TestCartItems_UpdateAndRemove(t *testing.T) {
	s := newTestServer(t, testConfig())
	token := s.token(3)
	tee := s.m.Tee

	w := s.do(request{
		method: http.MethodPost, path: "/api/v1/cart/items", token: token,
		body: cart.AddLineRequest{ProductID: tee.ProductID, VariantID: tee.VariantID, SizeID: tee.SizeID, Quantity: 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(request{
		method: http.MethodPut, path: "/api/v1/cart/items", token: token,
		body: gin.H{"product_id": tee.ProductID, "variant_id": tee.VariantID, "size_id": tee.SizeID, "quantity": 5},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated cartEnvelope
	decode(t, w, &updated)
	require.Len(t, updated.Data.Lines, 1)
	assert.Equal(t, 5, updated.Data.Lines[0].Quantity)

	q := url.Values{}
	q.Set("product_id", fmt.Sprint(tee.ProductID))
	q.Set("variant_id", fmt.Sprint(tee.VariantID))
	q.Set("size_id", fmt.Sprint(tee.SizeID))
	w = s.do(request{method: http.MethodDelete, path: "/api/v1/cart/items?" + q.Encode(), token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var removed cartEnvelope
	decode(t, w, &removed)
	assert.Empty(t, removed.Data.Lines)

	w = s.do(request{
		method: http.MethodPost, path: "/api/v1/cart/items", token: token,
		body: gin.H{"product_id": tee.ProductID, "variant_id": tee.VariantID, "size_id": tee.SizeID, "quantity": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func addStoredLine(t *testing.T, s *testServer, token string, l testutil.Line, qty int) *uint {
	t.Helper()
	w := s.do(request{
		method: http.MethodPost, path: "/api/v1/cart/items", token: token,
		body: cart.AddLineRequest{ProductID: l.ProductID, VariantID: l.VariantID, SizeID: l.SizeID, Quantity: qty},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cartEnvelope
	decode(t, w, &resp)
	return resp.Data.CartID
}

var testAddress = order.Address{
	FirstName:    "Ada",
	LastName:     "Lovelace",
	AddressLine1: "1 Analytical Way",
	City:         "Portland",
	State:        "OR",
	PostalCode:   "97201",
	Country:      "US",
}

type orderEnvelope struct {
	OrderID uint        `json:"order_id"`
	Data    order.Order `json:"data"`
}

func TestCheckout_PlaceOrderAcrossTwoStores(t *testing.T) {
	s := newTestServer(t, testConfig())
	token := s.token(11)

	addStoredLine(t, s, token, s.m.Tee, 3)
	cartID := addStoredLine(t, s, token, s.m.Mug, 5)
	require.NotNil(t, cartID)

	w := s.do(request{
		method: http.MethodGet, path: fmt.Sprintf("/api/v1/checkout/summary?cart_id=%d", *cartID), token: token,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"groups"`)

	w = s.do(request{
		method: http.MethodPost, path: "/api/v1/checkout/orders", token: token,
		headers: map[string]string{country.HeaderName: usHeader},
		body:    gin.H{"cart_id": *cartID, "shipping_address": testAddress},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var placed orderEnvelope
	decode(t, w, &placed)
	require.NotZero(t, placed.OrderID)
	assert.True(t, strings.HasPrefix(placed.Data.OrderNumber, "ORD-"))
	require.Len(t, placed.Data.Groups, 2)
	assertMoney(t, "9", placed.Data.Groups[0].ShippingFees)
	assertMoney(t, "10", placed.Data.Groups[1].ShippingFees)
	assertMoney(t, "19", placed.Data.ShippingFees)
	assertMoney(t, "146.50", placed.Data.Total)

	w = s.do(request{method: http.MethodGet, path: "/api/v1/orders", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data order.OrderResponse `json:"data"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Data.Pagination.Total)

	// other buyers cannot see it
	w = s.do(request{method: http.MethodGet, path: fmt.Sprintf("/api/v1/orders/%d", placed.OrderID), token: s.token(12)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	group := placed.Data.Groups[1]
	w = s.do(request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/api/v1/orders/%d/groups/%d/packing-slip?format=html", placed.OrderID, group.ID),
		token:  token,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Kiln House")
	assert.Contains(t, w.Body.String(), placed.Data.OrderNumber)

	w = s.do(request{
		method: http.MethodPut, path: fmt.Sprintf("/api/v1/orders/%d/cancel", placed.OrderID), token: token,
		body: gin.H{"reason": "changed my mind"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled struct {
		Data order.Order `json:"data"`
	}
	decode(t, w, &cancelled)
	assert.Equal(t, order.OrderStatusCancelled, cancelled.Data.Status)
}

func TestCheckout_FailedLineReturns422WithFailures(t *testing.T) {
	s := newTestServer(t, testConfig())
	token := s.token(21)

	addStoredLine(t, s, token, s.m.Tee, 1)
	cartID := addStoredLine(t, s, token, s.m.Mug, 1)
	require.NotNil(t, cartID)

	require.NoError(t, s.db.Model(&catalog.Size{}).Where("id = ?", s.m.Mug.SizeID).Update("quantity", 0).Error)

	w := s.do(request{
		method: http.MethodPost, path: "/api/v1/checkout/orders", token: token,
		body: gin.H{"cart_id": *cartID, "shipping_address": testAddress},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var resp struct {
		Kind      string             `json:"kind"`
		Retryable bool               `json:"retryable"`
		Failures  []cart.LineFailure `json:"failures"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "invalid_cart_line", resp.Kind)
	assert.False(t, resp.Retryable)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, 1, resp.Failures[0].Index)

	var orders int64
	s.db.Model(&order.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCheckout_RequiresAuthAndValidBody(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{method: http.MethodPost, path: "/api/v1/checkout/orders", body: gin.H{"cart_id": 1}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(request{method: http.MethodPost, path: "/api/v1/checkout/orders", token: "garbage", body: gin.H{"cart_id": 1}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(request{method: http.MethodPost, path: "/api/v1/checkout/orders", token: s.token(1), body: gin.H{"cart_id": 1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(request{
		method: http.MethodPost, path: "/api/v1/checkout/orders", token: s.token(1),
		body: gin.H{"cart_id": 999, "shipping_address": testAddress},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCountry_GuestCookieAndSignedInPreference(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(request{method: http.MethodGet, path: "/api/v1/country"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"US"`)

	w = s.do(request{method: http.MethodPut, path: "/api/v1/country", body: gin.H{"name": "France", "code": "fr"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == country.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	w = s.do(request{method: http.MethodGet, path: "/api/v1/country", cookies: []*http.Cookie{cookie}})
	assert.Contains(t, w.Body.String(), `"code":"FR"`)

	w = s.do(request{method: http.MethodPut, path: "/api/v1/country", body: gin.H{"name": "Nowhere", "code": "XYZ"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a signed-in preference beats the header
	token := s.token(5)
	w = s.do(request{method: http.MethodPut, path: "/api/v1/country", token: token, body: gin.H{"name": "France", "code": "FR"}})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(request{method: http.MethodGet, path: "/api/v1/country", token: token, headers: map[string]string{country.HeaderName: usHeader}})
	assert.Contains(t, w.Body.String(), `"code":"FR"`)
}

func TestStores_FollowToggle(t *testing.T) {
	s := newTestServer(t, testConfig())
	storeID := s.m.FixedStore.ID

	w := s.do(request{method: http.MethodGet, path: fmt.Sprintf("/api/v1/stores/%d/following", storeID)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_following":false`)

	w = s.do(request{method: http.MethodPost, path: fmt.Sprintf("/api/v1/stores/%d/follow", storeID)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.token(9)
	w = s.do(request{method: http.MethodPost, path: fmt.Sprintf("/api/v1/stores/%d/follow", storeID), token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"is_following":true`)

	w = s.do(request{method: http.MethodGet, path: fmt.Sprintf("/api/v1/stores/%d/following", storeID), token: token})
	assert.Contains(t, w.Body.String(), `"is_following":true`)
	assert.Contains(t, w.Body.String(), `"follower_count":1`)

	w = s.do(request{method: http.MethodPost, path: "/api/v1/stores/9999/follow", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RateLimitAndBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimitPerMinute = 2
	cfg.Server.MaxBodyBytes = 64
	s := newTestServer(t, cfg)

	big := gin.H{"lines": strings.Repeat("x", 200)}
	w := s.do(request{method: http.MethodPost, path: "/api/v1/cart/refresh", body: big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(request{method: http.MethodGet, path: "/ready"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(request{method: http.MethodGet, path: "/ready"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
