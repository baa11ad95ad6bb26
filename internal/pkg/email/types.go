// internal/pkg/email/types.go
package email

import (
	"time"

	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName   string
	SiteURL    string
	SupportURL string
	UserEmail  string
	Year       int
}

// OrderConfirmationData is rendered into the order confirmation mail
type OrderConfirmationData struct {
	EmailTemplateData
	Order     *order.Order
	OrderURL  string
	Shipments []Shipment
}

// Shipment is one store's part of an order with its expected delivery
type Shipment struct {
	Group    *order.OrderGroup
	Delivery shipping.DateRange
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:   siteName,
		SiteURL:    siteURL,
		SupportURL: siteURL + "/support",
		UserEmail:  userEmail,
		Year:       time.Now().Year(),
	}
}
