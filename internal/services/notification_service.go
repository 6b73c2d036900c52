// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// Notifier is what the order and payment flows need from notifications.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error
	SendRefundNotification(ctx context.Context, user *models.User, order *models.Order) error
	NotifyAdmins(ctx context.Context, notification *models.AdminNotification) error
}

type NotificationService struct {
	store  repository.Store
	config *config.Config
	send   func(to, subject, body string) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(store repository.Store, config *config.Config) *NotificationService {
	s := &NotificationService{
		store:  store,
		config: config,
	}
	s.send = s.sendEmail
	return s
}

func (s *NotificationService) SendOrderConfirmation(ctx context.Context, user *models.User, order *models.Order) error {
	data := map[string]interface{}{
		"FirstName":   user.FirstName,
		"OrderNumber": order.OrderNumber,
		"Items":       order.Items,
		"Total":       order.Total.StringFixed(2),
		"Currency":    s.config.Payment.Currency,
		"OrderURL":    fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, order.ID),
	}

	tmpl := s.getEmailTemplate("order_confirmation")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.send(user.Email, tmpl.Subject+" - "+order.OrderNumber, body)
}

func (s *NotificationService) SendRefundNotification(ctx context.Context, user *models.User, order *models.Order) error {
	data := map[string]interface{}{
		"FirstName":   user.FirstName,
		"OrderNumber": order.OrderNumber,
		"Total":       order.Total.StringFixed(2),
		"Currency":    s.config.Payment.Currency,
		"Reason":      order.RefundReason,
	}

	tmpl := s.getEmailTemplate("refund_notification")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.send(user.Email, tmpl.Subject+" - "+order.OrderNumber, body)
}

func (s *NotificationService) SendEnquiryAcknowledgement(ctx context.Context, enquiry *models.Enquiry) error {
	data := map[string]interface{}{
		"Name":    enquiry.Name,
		"Subject": enquiry.Subject,
	}

	tmpl := s.getEmailTemplate("enquiry_received")
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.send(enquiry.Email, tmpl.Subject, body)
}

// NotifyAdmins stores an in-app notification for the back office.
func (s *NotificationService) NotifyAdmins(ctx context.Context, notification *models.AdminNotification) error {
	if notification.Priority == "" {
		notification.Priority = models.NotificationPriorityMedium
	}
	if err := s.store.CreateAdminNotification(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *NotificationService) ListAdminNotifications(ctx context.Context, limit int) ([]models.AdminNotification, error) {
	return s.store.ListAdminNotifications(ctx, limit)
}

func orderNotification(kind models.NotificationKind, title, message string, priority models.NotificationPriority, orderID uuid.UUID) *models.AdminNotification {
	id := orderID
	return &models.AdminNotification{
		Type:                kind,
		Title:               title,
		Message:             message,
		Priority:            priority,
		RelatedResourceType: "order",
		RelatedResourceID:   &id,
	}
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not configured, skipping send")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	from := fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_confirmation": {
			Subject: "Order Confirmation",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Thank you for your order{{if .FirstName}}, {{.FirstName}}{{end}}!</h2>
	<p>We have received payment for order <strong>{{.OrderNumber}}</strong>.</p>
	<table>
	{{range .Items}}
		<tr><td>{{.ProductName}}</td><td>x{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
	{{end}}
	</table>
	<p>Total: {{.Total}} {{.Currency}}</p>
	<a href="{{.OrderURL}}">View your order</a>
</body>
</html>`,
		},
		"refund_notification": {
			Subject: "Refund Processed",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Your refund is on its way</h2>
	<p>Hello {{.FirstName}},</p>
	<p>Order <strong>{{.OrderNumber}}</strong> has been refunded ({{.Total}} {{.Currency}}).</p>
	{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
</body>
</html>`,
		},
		"enquiry_received": {
			Subject: "We received your enquiry",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<p>Hello {{.Name}},</p>
	<p>Thanks for getting in touch about "{{.Subject}}". We will reply shortly.</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
