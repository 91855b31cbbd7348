package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/config"
)

// Message is an outbound plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers outbound email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender handles sending emails via SMTP
type SMTPSender struct {
	cfg    config.SMTPConfig
	logger logrus.FieldLogger
}

// NewSMTPSender creates a new email sender
func NewSMTPSender(cfg config.SMTPConfig, logger logrus.FieldLogger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := e.Send(addr, auth); err != nil {
		s.logger.WithError(err).WithField("to", msg.To).Error("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email sent")
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used in
// development when no SMTP server is configured.
type LogSender struct {
	logger logrus.FieldLogger
}

func NewLogSender(logger logrus.FieldLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Body)
	return nil
}

// OTPMessage builds the verification email for a freshly issued OTP
func OTPMessage(to, username, otp string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your OTP Code",
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour OTP code is %s. It expires in %d minutes.\n\nBest regards,\nLoan Engine",
			username, otp, int(ttl.Minutes()),
		),
	}
}

// DueReminderMessage builds the reminder for an upcoming installment
func DueReminderMessage(to, username, loanID string, amount decimal.Decimal, dueDate string) Message {
	return Message{
		To:      to,
		Subject: "Upcoming Loan Installment Reminder",
		Body: fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder that the installment of %s for loan %s is due on %s.\n"+
				"Please ensure sufficient funds are available.\n\nBest regards,\nLoan Engine",
			username, amount.StringFixed(2), loanID, dueDate,
		),
	}
}
