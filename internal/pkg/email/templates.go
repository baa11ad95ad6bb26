package email

const orderConfirmationTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order {{.Order.OrderNumber}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Thanks for your order! We have received order <strong>{{.Order.OrderNumber}}</strong>.</p>
        <p>Shipping to {{.Order.ShippingAddress.FullName}}, {{.Order.CountryName}}.</p>

        {{range .Shipments}}
        <h2 style="font-size: 18px; border-bottom: 1px solid #eee;">{{.Group.StoreName}}</h2>
        <table style="width: 100%; border-collapse: collapse;">
            {{range .Group.Items}}
            <tr>
                <td>{{.Name}}{{if .VariantName}} ({{.VariantName}}){{end}}{{if .Size}}, {{.Size}}{{end}}</td>
                <td style="text-align: right;">x{{.Quantity}}</td>
                <td style="text-align: right;">{{money .TotalPrice}}</td>
            </tr>
            {{end}}
            <tr><td colspan="2">Shipping ({{.Group.ShippingService}})</td><td style="text-align: right;">{{money .Group.ShippingFees}}</td></tr>
        </table>
        <p style="color: #666;">Expected between {{.Delivery.MinDate.Format "Jan 2"}} and {{.Delivery.MaxDate.Format "Jan 2, 2006"}}</p>
        {{end}}

        <p><strong>Total: {{money .Order.Total}} {{.Order.Currency}}</strong></p>
        <p><a href="{{.OrderURL}}">View your order</a></p>
        <hr>
        <p style="font-size: 12px; color: #666;">
            Questions? Visit {{.SupportURL}}<br>
            &copy; {{.Year}} {{.SiteName}}
        </p>
    </div>
</body>
</html>
`
