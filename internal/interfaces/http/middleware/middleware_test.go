package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:3000", "*.example.com"}

	assert.True(t, isOriginAllowed("http://localhost:3000", allowed))
	assert.True(t, isOriginAllowed("https://shop.example.com", allowed))
	assert.False(t, isOriginAllowed("https://evilexample.com", allowed))
	assert.False(t, isOriginAllowed("http://localhost:4000", allowed))
	assert.True(t, isOriginAllowed("anything", []string{"*"}))
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.SecurityConfig{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		CORSAllowedMethods: []string{"GET", "POST"},
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://elsewhere")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestTimeout_SetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/x", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func TestAuthAndCountry(t *testing.T) {
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:            "test-secret-that-is-at-least-32-characters",
		AccessTokenExpiry: time.Hour,
	}, "test")
	resolver := country.NewResolver(nil, config.CheckoutConfig{
		DefaultCountryName: "United States",
		DefaultCountryCode: "US",
	}, logger.Discard())

	r := gin.New()
	r.GET("/optional", OptionalAuthMiddleware(jwtManager), Country(resolver), func(c *gin.Context) {
		dest, _ := GetCountryFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": UserIDPtr(c), "code": dest.Code})
	})
	r.GET("/required", AuthMiddleware(jwtManager), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		email, _ := GetUserEmailFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": id, "email": email})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.JSONEq(t, `{"user":null,"code":"US"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.AddCookie(&http.Cookie{Name: country.CookieName, Value: url.QueryEscape(`{"name":"France","code":"FR"}`)})
	req.Header.Set(country.HeaderName, `{"name":"Germany","code":"DE"}`)
	w = serve(r, req)
	assert.JSONEq(t, `{"user":null,"code":"DE"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(country.HeaderName, `{"name":"France"}`)
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid X-User-Country header","kind":"validation","retryable":false}`, w.Body.String())

	// malformed cookie falls back to the default
	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.AddCookie(&http.Cookie{Name: country.CookieName, Value: "garbage"})
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null,"code":"US"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null,"code":"US"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/required", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwtManager.GenerateAccessToken(4, "b@example.com")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":4,"email":"b@example.com"}`, w.Body.String())
}
