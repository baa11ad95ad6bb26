package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
)

func sampleOrder() *order.Order {
	return &order.Order{
		ID:          7,
		OrderNumber: "ORD-20260301-00007",
		Email:       "ada@example.com",
		Currency:    "USD",
		CountryName: "United States",
		Total:       decimal.RequireFromString("146.5"),
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ShippingAddress: order.Address{
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		Groups: []order.OrderGroup{
			{
				StoreName:           "Thread & Co",
				ShippingFees:        decimal.RequireFromString("9"),
				ShippingService:     "Standard Post",
				ShippingDeliveryMin: 3,
				ShippingDeliveryMax: 7,
				Items: []order.OrderItem{{
					Name: "Tee", Size: "M", Quantity: 3, TotalPrice: decimal.RequireFromString("60"),
				}},
			},
			{
				StoreName:           "Kiln House",
				ShippingFees:        decimal.RequireFromString("10"),
				ShippingService:     "Courier",
				ShippingDeliveryMin: 2,
				ShippingDeliveryMax: 5,
				Items: []order.OrderItem{{
					Name: "Mug", Quantity: 5, TotalPrice: decimal.RequireFromString("67.5"),
				}},
			},
		},
	}
}

func emailConfig(provider, baseURL string) config.EmailConfig {
	return config.EmailConfig{
		Enabled:     true,
		Provider:    provider,
		APIKey:      "key-123",
		APIBaseURL:  baseURL,
		FromEmail:   "orders@example.com",
		FromName:    "Marketplace",
		BaseURL:     "https://shop.example.com",
		SendTimeout: 2 * time.Second,
	}
}

func TestRenderOrderConfirmation(t *testing.T) {
	svc := NewService(emailConfig("log", ""), logger.Discard())

	html, err := svc.RenderOrderConfirmation(sampleOrder())
	require.NoError(t, err)

	assert.Contains(t, html, "ORD-20260301-00007")
	assert.Contains(t, html, "Thread &amp; Co")
	assert.Contains(t, html, "Kiln House")
	assert.Contains(t, html, "Expected between Mar 4 and Mar 8, 2026")
	assert.Contains(t, html, "Expected between Mar 3 and Mar 6, 2026")
	assert.Contains(t, html, "146.50 USD")
	assert.Contains(t, html, "https://shop.example.com/orders/7")
	assert.Less(t, strings.Index(html, "Thread &amp; Co"), strings.Index(html, "Kiln House"))
}

func TestSendOrderConfirmation_Resend(t *testing.T) {
	var got ResendEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewService(emailConfig("resend", srv.URL), logger.Discard())
	require.NoError(t, svc.SendOrderConfirmation(context.Background(), sampleOrder()))

	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, "Marketplace <orders@example.com>", got.From)
	assert.Equal(t, "Order Confirmation - ORD-20260301-00007", got.Subject)
	assert.Contains(t, got.HTML, "Standard Post")
}

func TestSendOrderConfirmation_SendGridRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(emailConfig("sendgrid", srv.URL), logger.Discard())
	err := svc.SendOrderConfirmation(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestSendEmail_LogProvider(t *testing.T) {
	log, hook := test.NewNullLogger()
	svc := NewService(emailConfig("log", ""), log)

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), sampleOrder()))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "ada@example.com", hook.LastEntry().Data["to"])
}

func TestSendEmail_Errors(t *testing.T) {
	svc := NewService(emailConfig("pigeon", ""), logger.Discard())
	err := svc.SendEmail(context.Background(), &Email{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported email provider")

	assert.Error(t, svc.SendEmail(context.Background(), &Email{}))

	o := sampleOrder()
	o.Email = ""
	assert.Error(t, svc.SendOrderConfirmation(context.Background(), o))

	noKey := emailConfig("resend", "http://127.0.0.1:1")
	noKey.APIKey = ""
	err = NewService(noKey, logger.Discard()).SendEmail(context.Background(), &Email{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "API key not configured")

	smtpCfg := emailConfig("smtp", "")
	err = NewService(smtpCfg, logger.Discard()).SendEmail(context.Background(), &Email{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "SMTP configuration incomplete")
}

func TestBuildMessage(t *testing.T) {
	cfg := emailConfig("smtp", "")
	cfg.ReplyTo = "help@example.com"
	svc := NewService(cfg, logger.Discard())

	msg := string(svc.buildMessage(&Email{
		To:          []string{"a@example.com", "b@example.com"},
		Subject:     "Hi",
		HTMLContent: "<p>body</p>",
	}))

	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Reply-To: help@example.com\r\n")
	assert.Contains(t, msg, "From: Marketplace <orders@example.com>\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>body</p>"))
}
