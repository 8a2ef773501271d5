package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"collabhub/config"
	"collabhub/models"
)

// Embedded email templates, keyed by notification type. Types without a
// template of their own fall back to "generic".
var emailTemplates = map[string]string{
	"generic": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.Subject}}</h2>
    </div>

    <div class="content">
        <p>Hello {{.RecipientName}},</p>
        <p>{{.Message}}</p>
    </div>

    <div class="footer">
        <p>You are receiving this email because of activity on your CollabHub account.</p>
    </div>
</body>
</html>`,

	models.NotificationMention: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .mention { color: #3498db; font-weight: bold; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You were mentioned</h2>
    </div>

    <div class="content">
        <p>Hello {{.RecipientName}},</p>
        <p><span class="mention">@{{.SenderName}}</span> mentioned you:</p>
        <p>{{.Message}}</p>
    </div>

    <div class="footer">
        <p>Open CollabHub to reply.</p>
    </div>
</body>
</html>`,

	models.NotificationAssignment: `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>New task assignment</h2>
    </div>

    <div class="content">
        <p>Hello {{.RecipientName}},</p>
        <p>{{.Message}}</p>
    </div>

    <div class="footer">
        <p>Open CollabHub to see the task.</p>
    </div>
</body>
</html>`,

	"batch": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .item { padding: 8px 0; border-bottom: 1px solid #f4f4f4; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>You have {{.Count}} new notifications</h2>
    </div>

    <div class="content">
        <p>Hello {{.RecipientName}},</p>
        {{range .Items}}<div class="item">{{.}}</div>
        {{end}}
    </div>

    <div class="footer">
        <p>Open CollabHub to catch up.</p>
    </div>
</body>
</html>`,
}

// NotificationMailer wraps outbound email dispatch for notifications. A send
// failure is logged and swallowed; there is no retry.
type NotificationMailer struct {
	dialer *gomail.Dialer
	from   string
	Logger *log.Logger
}

func NewNotificationMailer(logger *log.Logger) *NotificationMailer {
	cfg := config.AppConfig
	return &NotificationMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		Logger: logger,
	}
}

// Send sends the email for one notification immediately. This is the
// no-transaction fallback; writes inside a transaction should go through an
// Outbox instead.
func (m *NotificationMailer) Send(notification *models.Notification, recipient, sender *models.User) {
	subject := m.subjectFor(notification, sender)
	body := m.renderBody(notification, recipient, sender, subject)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", notification.Message)
	msg.AddAlternative("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"notification_id": notification.ID,
			"recipient":       recipient.Email,
		}).WithError(err).Error("Failed to send notification email")
		CaptureError(err, "email_send_failed", map[string]interface{}{
			"notification_id": notification.ID,
		})
		return
	}

	m.Logger.Printf("Email sent to %s for notification %d", recipient.Email, notification.ID)
}

// SendBatch sends one email summarizing several notifications for a recipient.
func (m *NotificationMailer) SendBatch(recipient *models.User, notifications []models.Notification) {
	if len(notifications) == 0 {
		return
	}

	subject := fmt.Sprintf("You have %d new notifications", len(notifications))

	items := make([]string, 0, len(notifications))
	var plain bytes.Buffer
	for _, n := range notifications {
		items = append(items, n.Message)
		fmt.Fprintf(&plain, "- %s\n", n.Message)
	}

	body := renderTemplate("batch", map[string]interface{}{
		"Subject":       subject,
		"RecipientName": recipient.Username,
		"Count":         len(notifications),
		"Items":         items,
	})

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain.String())
	if body != "" {
		msg.AddAlternative("text/html", body)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"recipient": recipient.Email,
			"count":     len(notifications),
		}).WithError(err).Error("Failed to send batched notification email")
		return
	}

	m.Logger.Printf("Batched email sent to %s with %d notifications", recipient.Email, len(notifications))
}

// subjectFor derives the subject line from the notification type.
func (m *NotificationMailer) subjectFor(notification *models.Notification, sender *models.User) string {
	switch notification.Type {
	case models.NotificationMention:
		return fmt.Sprintf("You were mentioned by %s", sender.Username)
	case models.NotificationAssignment:
		return fmt.Sprintf("You were assigned a task by %s", sender.Username)
	default:
		return "New notification"
	}
}

func (m *NotificationMailer) renderBody(notification *models.Notification, recipient, sender *models.User, subject string) string {
	data := map[string]interface{}{
		"Subject":       subject,
		"Message":       notification.Message,
		"RecipientName": recipient.Username,
		"SenderName":    sender.Username,
	}
	if body := renderTemplate(notification.Type, data); body != "" {
		return body
	}
	return renderTemplate("generic", data)
}

func renderTemplate(name string, data interface{}) string {
	text, ok := emailTemplates[name]
	if !ok {
		return ""
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		logrus.WithField("template", name).WithError(err).Error("Failed to parse email template")
		return ""
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logrus.WithField("template", name).WithError(err).Error("Failed to render email template")
		return ""
	}
	return buf.String()
}

// pendingEmail is one queued notification email.
type pendingEmail struct {
	notification models.Notification
	recipient    models.User
	sender       models.User
}

// Outbox defers email dispatch until the enclosing database transaction has
// committed. Handlers create one per request, Add inside the transaction, and
// Flush only after the transaction returns nil, so a rolled-back write never
// produces a stray email. Sending through Mailer.Send directly is the
// fallback when no transaction is active.
type Outbox struct {
	send    func(notification *models.Notification, recipient, sender *models.User)
	pending []pendingEmail
}

func (m *NotificationMailer) NewOutbox() *Outbox {
	return &Outbox{send: m.Send}
}

// Add queues the email for one notification.
func (o *Outbox) Add(notification models.Notification, recipient, sender models.User) {
	o.pending = append(o.pending, pendingEmail{
		notification: notification,
		recipient:    recipient,
		sender:       sender,
	})
}

// Flush sends every queued email. Call after the transaction has committed.
func (o *Outbox) Flush() {
	for i := range o.pending {
		p := &o.pending[i]
		o.send(&p.notification, &p.recipient, &p.sender)
	}
	o.pending = nil
}
