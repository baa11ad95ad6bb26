// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
)

// Service sends transactional mail through the configured provider
type Service struct {
	config config.EmailConfig
	tmpl   *template.Template
	client *http.Client
	logger *logrus.Logger
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig, logger *logrus.Logger) *Service {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("order_confirmation").Funcs(funcs).Parse(orderConfirmationTemplate)),
		client: &http.Client{Timeout: cfg.SendTimeout},
		logger: logger,
	}
}

// SendEmail sends an email using the configured provider
func (s *Service) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "log":
		s.logger.WithFields(logrus.Fields{
			"to":      strings.Join(email.To, ","),
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email not delivered, log provider configured")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendOrderConfirmation mails the buyer a summary of o with one section per store
func (s *Service) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	if o.Email == "" {
		return fmt.Errorf("order %s has no buyer email", o.OrderNumber)
	}

	htmlContent, err := s.RenderOrderConfirmation(o)
	if err != nil {
		return err
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{o.Email},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

// RenderOrderConfirmation renders the confirmation mail body for o
func (s *Service) RenderOrderConfirmation(o *order.Order) (string, error) {
	data := OrderConfirmationData{
		EmailTemplateData: GetBaseTemplateData(s.config.FromName, s.config.BaseURL, o.Email),
		Order:             o,
		OrderURL:          fmt.Sprintf("%s/orders/%d", s.config.BaseURL, o.ID),
	}
	for i := range o.Groups {
		g := &o.Groups[i]
		data.Shipments = append(data.Shipments, Shipment{
			Group:    g,
			Delivery: shipping.DeliveryDates(o.CreatedAt, g.ShippingDeliveryMin, g.ShippingDeliveryMax),
		})
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render order confirmation template: %w", err)
	}
	return buf.String(), nil
}

// fromAddress formats the sender as "Name <address>"
func (s *Service) fromAddress() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

func (s *Service) apiURL(defaultBase, path string) string {
	base := s.config.APIBaseURL
	if base == "" {
		base = defaultBase
	}
	return strings.TrimRight(base, "/") + path
}
