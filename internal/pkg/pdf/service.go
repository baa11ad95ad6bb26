// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
)

// Service handles PDF generation
type Service struct {
	company config.CompanyConfig
	tmpl    *template.Template
}

// NewService creates a new PDF service
func NewService(company config.CompanyConfig) *Service {
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
	return &Service{
		company: company,
		tmpl:    template.Must(template.New("packing-slip").Funcs(funcs).Parse(packingSlipTemplate)),
	}
}

// PackingSlipData represents the data passed to the packing slip template
type PackingSlipData struct {
	SlipNumber string
	Order      *order.Order
	Group      *order.OrderGroup
	Delivery   shipping.DateRange
	Company    config.CompanyConfig
}

// RenderPackingSlip renders the HTML packing slip for one store's group
func (s *Service) RenderPackingSlip(o *order.Order, group *order.OrderGroup) (string, error) {
	if o == nil || group == nil {
		return "", fmt.Errorf("order and group are required")
	}

	data := PackingSlipData{
		SlipNumber: fmt.Sprintf("%s-S%d", o.OrderNumber, group.StoreID),
		Order:      o,
		Group:      group,
		Delivery:   shipping.DeliveryDates(o.CreatedAt, group.ShippingDeliveryMin, group.ShippingDeliveryMax),
		Company:    s.company,
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// GeneratePackingSlip renders one store's group of an order to PDF
func (s *Service) GeneratePackingSlip(o *order.Order, group *order.OrderGroup) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderPackingSlip(o, group)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	// Convert HTML to PDF
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(true)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

const packingSlipTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Packing slip {{.SlipNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { display: flex; justify-content: space-between; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .slip-title { font-size: 28px; font-weight: bold; margin-bottom: 10px; }
        .section-title { font-size: 16px; font-weight: bold; margin-bottom: 10px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 12px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .items-table .qty-col, .items-table .total-col { text-align: right; width: 80px; }
        .totals { float: right; width: 300px; }
        .totals td { padding: 8px; border-bottom: 1px solid #eee; text-align: right; }
        .footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <h1>{{.Group.StoreName}}</h1>
            <p>Sold via {{.Company.Name}}</p>
        </div>
        <div style="text-align: right;">
            <div class="slip-title">PACKING SLIP</div>
            <p><strong>Slip #:</strong> {{.SlipNumber}}</p>
            <p><strong>Order #:</strong> {{.Order.OrderNumber}}</p>
            <p><strong>Order Date:</strong> {{.Order.CreatedAt.Format "January 2, 2006"}}</p>
        </div>
    </div>

    <div>
        <div class="section-title">Ship To:</div>
        <p><strong>{{.Order.ShippingAddress.FullName}}</strong></p>
        {{if .Order.ShippingAddress.Company}}<p>{{.Order.ShippingAddress.Company}}</p>{{end}}
        <p>{{.Order.ShippingAddress.AddressLine1}}</p>
        {{if .Order.ShippingAddress.AddressLine2}}<p>{{.Order.ShippingAddress.AddressLine2}}</p>{{end}}
        <p>{{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.PostalCode}}</p>
        <p>{{.Order.CountryName}}</p>
        {{if .Order.ShippingAddress.Phone}}<p>Phone: {{.Order.ShippingAddress.Phone}}</p>{{end}}
    </div>

    <div>
        <div class="section-title">Shipping:</div>
        <p>{{.Group.ShippingService}}, expected {{.Delivery.MinDate.Format "Jan 2"}} to {{.Delivery.MaxDate.Format "Jan 2, 2006"}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th>Size</th>
                <th class="qty-col">Qty</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Group.Items}}
            <tr>
                <td>
                    <strong>{{.Name}}</strong>
                    {{if .VariantName}}<br><small>{{.VariantName}}</small>{{end}}
                </td>
                <td>{{.SKU}}</td>
                <td>{{.Size}}</td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="total-col">{{money .TotalPrice}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td>Subtotal:</td><td>{{money .Group.SubTotal}} {{.Order.Currency}}</td></tr>
            <tr><td>Shipping:</td><td>{{money .Group.ShippingFees}} {{.Order.Currency}}</td></tr>
            <tr><td><strong>Total:</strong></td><td><strong>{{money .Group.Total}} {{.Order.Currency}}</strong></td></tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Questions about this shipment? Contact {{.Company.Email}}</p>
    </div>
</body>
</html>
`
