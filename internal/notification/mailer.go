package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	internal "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/registration"
)

// Mailer sends transactional mail over SMTP. With Enabled false every send
// is a logged no-op, which keeps local development from needing a relay.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	sender   string
	enabled  bool
	logger   *slog.Logger
}

func NewMailer(cfg internal.SMTPConfig, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		sender:   cfg.Sender,
		enabled:  cfg.Enabled,
		logger:   logger,
	}
}

func (m *Mailer) send(to, subject, body string) error {
	if !m.enabled {
		m.logger.Info("mail disabled, skipping send", "to", to, "subject", subject)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.sender,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := smtp.SendMail(addr, auth, m.sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendTicket delivers the event ticket to a fully paid registration.
func (m *Mailer) SendTicket(ctx context.Context, reg *registration.EventRegistration) error {
	subject := "Your ticket is confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment has been received in full and your ticket is confirmed.\n\nTicket ID: %s\nAmount paid: %s\n\nSee you at the event!\n",
		reg.FullName, reg.TicketID, reg.PaidAmount.String())

	return m.send(reg.Email, subject, body)
}

// SendPaymentReceipt delivers a receipt for a settled order.
func (m *Mailer) SendPaymentReceipt(ctx context.Context, to, receipt, amount, currency string) error {
	subject := "Payment received"
	body := fmt.Sprintf(
		"We have received your payment of %s %s.\n\nReceipt: %s\n\nThank you!\n",
		amount, currency, receipt)

	return m.send(to, subject, body)
}
