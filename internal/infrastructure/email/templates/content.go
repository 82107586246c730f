// Package templates provides email template content blocks
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
)

// ReceiptEmailProps holds the data for the order receipt email body.
type ReceiptEmailProps struct {
	CustomerName string
	Order        *checkout.Order
}

// ActivationEmailProps holds the data for the tenant activation email body.
type ActivationEmailProps struct {
	ActivationURL   string
	TenantID        string
	ExpirationHours int
}

type receiptLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type receiptTemplateData struct {
	CustomerName  string
	OrderID       string
	PaymentMethod string
	Lines         []receiptLine
	Subtotal      string
	Discount      string
	HasDiscount   bool
	Taxes         string
	Shipping      string
	Fees          string
	Total         string
}

type activationTemplateData struct {
	TenantID        string
	ActivationURL   template.URL
	ExpirationHours int
}

var (
	receiptContentTemplate = template.Must(template.New("receiptContent").Parse(`
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">Hi {{.CustomerName}},</p>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">Your payment was confirmed. Here is the receipt for order <strong>{{.OrderID}}</strong> ({{.PaymentMethod}}).</p>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: collapse; width: 100%; margin-bottom: 16px;" width="100%">
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 14px; padding: 8px 0; border-bottom: 2px solid #eaebed; color: #9a9ea6;">Item</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 14px; padding: 8px 0; border-bottom: 2px solid #eaebed; color: #9a9ea6; text-align: right;" align="right">Amount</td>
      </tr>
      {{range .Lines}}
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; border-bottom: 1px solid #eaebed;">{{.Name}} &times; {{.Quantity}}</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; border-bottom: 1px solid #eaebed; text-align: right;" align="right">{{.LineTotal}}</td>
      </tr>
      {{end}}
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0;">Subtotal</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; text-align: right;" align="right">{{.Subtotal}}</td>
      </tr>
      {{if .HasDiscount}}
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0;">Discount</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; text-align: right;" align="right">&minus;{{.Discount}}</td>
      </tr>
      {{end}}
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0;">Taxes</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; text-align: right;" align="right">{{.Taxes}}</td>
      </tr>
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0;">Shipping</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; text-align: right;" align="right">{{.Shipping}}</td>
      </tr>
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; border-bottom: 1px solid #eaebed;">Fees</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; padding: 8px 0; border-bottom: 1px solid #eaebed; text-align: right;" align="right">{{.Fees}}</td>
      </tr>
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: bold; padding: 8px 0;">Total</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: bold; padding: 8px 0; text-align: right;" align="right">{{.Total}}</td>
      </tr>
    </table>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">If anything looks wrong, just reply to this email.</p>`))

	activationContentTemplate = template.Must(template.New("activationContent").Parse(`
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">Hi there,</p>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">Your Clubify Checkout workspace <strong>{{.TenantID}}</strong> is reserved. Click the button below to activate it.</p>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; box-sizing: border-box; width: 100%; min-width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: separate; width: auto;">
              <tbody>
                <tr>
                  <td style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; border-radius: 4px; text-align: center; background-color: #4f46e5;" valign="top" align="center" bgcolor="#4f46e5">
                    <a href="{{.ActivationURL}}" target="_blank" style="border: solid 2px #4f46e5; border-radius: 4px; box-sizing: border-box; cursor: pointer; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: #4f46e5; border-color: #4f46e5; color: #ffffff;">Activate workspace</a>
                  </td>
                </tr>
              </tbody>
            </table>
          </td>
        </tr>
      </tbody>
    </table>
    <p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">This link expires in {{.ExpirationHours}} hours. If you did not request this workspace you can safely ignore this email.</p>`))
)

// GetReceiptEmailContent renders the order receipt body for the email layout.
func GetReceiptEmailContent(props ReceiptEmailProps) string {
	order := props.Order

	name := props.CustomerName
	if name == "" {
		name = "there"
	}

	data := receiptTemplateData{
		CustomerName:  name,
		OrderID:       order.ID,
		PaymentMethod: paymentMethodLabel(order.PaymentMethod),
		Subtotal:      formatOrDefault(order.Totals.Subtotal, order.Currency),
		Discount:      formatOrDefault(order.Totals.Discount, order.Currency),
		HasDiscount:   order.Totals.Discount > 0,
		Taxes:         formatOrDefault(order.Totals.Taxes, order.Currency),
		Shipping:      formatOrDefault(order.Totals.Shipping, order.Currency),
		Fees:          formatOrDefault(order.Totals.Fees, order.Currency),
		Total:         formatOrDefault(order.Totals.Total, order.Currency),
	}

	for _, item := range order.Items {
		data.Lines = append(data.Lines, receiptLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: formatOrDefault(item.UnitPrice, order.Currency),
			LineTotal: formatOrDefault(item.UnitPrice*float64(item.Quantity), order.Currency),
		})
	}

	var buf bytes.Buffer
	if err := receiptContentTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing receipt content template: %v", err)
		return ""
	}
	return buf.String()
}

// GetActivationEmailContent renders the tenant activation body for the email layout.
func GetActivationEmailContent(props ActivationEmailProps) string {
	hours := props.ExpirationHours
	if hours <= 0 {
		hours = 48
	}

	data := activationTemplateData{
		TenantID:        props.TenantID,
		ActivationURL:   template.URL(props.ActivationURL),
		ExpirationHours: hours,
	}

	var buf bytes.Buffer
	if err := activationContentTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing activation content template: %v", err)
		return ""
	}
	return buf.String()
}

func paymentMethodLabel(method checkout.PaymentMethod) string {
	switch method {
	case checkout.PaymentMethodCreditCard:
		return "credit card"
	case checkout.PaymentMethodPix:
		return "Pix"
	case checkout.PaymentMethodBoleto:
		return "boleto"
	default:
		return string(method)
	}
}

func formatOrDefault(amount float64, currency string) string {
	formatted, err := checkout.FormatAmount(amount, currency)
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	return formatted
}
