// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"
	"os"

	"github.com/resendlabs/resend-go"

	"github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/email/templates"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendOrderReceiptEmail(toEmail string, order *checkout.Order) error
	SendTenantActivationEmail(toEmail, tenantID, activationURL string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("RECEIPT_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@clubify.com.br"
	}

	fromName := os.Getenv("RECEIPT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Clubify Checkout"
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendOrderReceiptEmail composes and sends the payment receipt for a paid order.
func (c *ResendClient) SendOrderReceiptEmail(toEmail string, order *checkout.Order) error {
	subject := fmt.Sprintf("Your receipt for order %s", order.ID)

	content := templates.GetReceiptEmailContent(templates.ReceiptEmailProps{
		CustomerName: order.Customer.Name,
		Order:        order,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: fmt.Sprintf("Payment confirmed for order %s", order.ID),
		Content:   content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send receipt email via Resend: %w", err)
	}

	return nil
}

// SendTenantActivationEmail composes and sends the tenant activation email.
func (c *ResendClient) SendTenantActivationEmail(toEmail, tenantID, activationURL string) error {
	subject := "Activate your Clubify Checkout tenant"

	content := templates.GetActivationEmailContent(templates.ActivationEmailProps{
		ActivationURL:   activationURL,
		TenantID:        tenantID,
		ExpirationHours: 48,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	_, err := c.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send activation email via Resend: %w", err)
	}

	return nil
}
