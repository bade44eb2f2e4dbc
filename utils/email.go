package utils

import (
	"fmt"

	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/models"
)

// EmailService sends transactional mail through SendGrid. A nil service is
// valid and drops every send, so mail can be disabled by leaving the API key
// unset.
type EmailService struct {
	client *sendgrid.Client
	sender string
}

// NewEmailService returns a mailer, or nil when no API key is configured.
func NewEmailService(apiKey, sender string) *EmailService {
	if apiKey == "" {
		return nil
	}
	return &EmailService{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
	}
}

// SendEmail sends one HTML email.
func (es *EmailService) SendEmail(toName, toEmail, subject, htmlContent string) error {
	if es == nil {
		return nil
	}
	from := mail.NewEmail("Karan Homeo Pharmacy", es.sender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, htmlContent, htmlContent)

	resp, err := es.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// SendOrderConfirmation mails the customer a summary of a freshly placed order.
func (es *EmailService) SendOrderConfirmation(toName, toEmail string, order *models.Order) error {
	if es == nil {
		return nil
	}
	subject := "Order Confirmation - Karan Homeo Pharmacy"
	htmlContent := fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order (ID: %s) has been placed successfully.<br><br>Total: <strong>₹%.2f</strong><br>Payment Method: <strong>%s</strong><br><br>You can track the order status from your account.",
		toName,
		order.ID.Hex(),
		order.TotalPrice,
		order.PaymentMethod,
	)
	return es.SendEmail(toName, toEmail, subject, htmlContent)
}
