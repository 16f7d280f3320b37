// Package mail delivers notifications by e-mail through Resend.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"futsal-club/internal/models"
	"futsal-club/internal/models/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

var body = template.Must(template.New("notification").Parse(`<div dir="rtl" style="font-family:Tahoma,sans-serif">
<h3>{{.Title}}</h3>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p style="color:#888;font-size:12px">باشگاه فوتسال</p>
</div>`))

type Mailer struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

func NewMailer(cfg config.MailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{
		client: resend.NewClient(cfg.APIKey),
		from:   cfg.From,
		logger: logger.Named("mail"),
	}
}

func (m *Mailer) Name() string { return "email" }

// Deliver mails n to the user. Users without an address are skipped.
func (m *Mailer) Deliver(ctx context.Context, user *models.User, n *models.Notification) error {
	if user.Email == "" {
		return nil
	}

	html, err := render(n)
	if err != nil {
		return err
	}
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{user.Email},
		Subject: n.Title,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	m.logger.Debug("mail sent",
		zap.String("message_id", sent.Id),
		zap.Int64("notification_id", n.ID),
		zap.Int64("user_id", user.ID),
	)
	return nil
}

func render(n *models.Notification) (string, error) {
	var buf bytes.Buffer
	if err := body.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render notification %d: %w", n.ID, err)
	}
	return buf.String(), nil
}
