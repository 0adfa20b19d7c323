// Package channel holds the provider clients behind notify.Sender: email over
// SMTP and SMS over the Twilio REST API. Clients keep no per-send state and
// are safe for concurrent use.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/beaconalert/beacon/internal/notify"
)

// EmailConfig configures the SMTP transport.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool // implicit TLS; otherwise STARTTLS is required
	From     string
	Timeout  time.Duration
}

// Email delivers alerts over SMTP.
type Email struct {
	cfg    EmailConfig
	logger *slog.Logger
}

// NewEmail returns nil when the SMTP password (the Resend API key by
// default) is missing, which leaves the email channel Unavailable.
func NewEmail(cfg EmailConfig, logger *slog.Logger) *Email {
	if cfg.Host == "" || cfg.Password == "" || cfg.From == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Email{cfg: cfg, logger: logger}
}

var _ notify.Sender = (*Email)(nil)

func (e *Email) Channel() notify.Channel { return notify.ChannelEmail }

// Send delivers one message to one address. A fresh SMTP session is used
// per call so concurrent sends never share a connection.
func (e *Email) Send(ctx context.Context, to string, msg notify.Message) error {
	m, err := e.buildMsg(to, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(e.cfg.Host, e.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	e.logger.Debug("email sent", "to", to)
	return nil
}

func (e *Email) buildMsg(to string, msg notify.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("set From address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("set To address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetImportance(mail.ImportanceHigh)

	if msg.HTML != "" {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
		if msg.Text != "" {
			m.AddAlternativeString(mail.TypeTextPlain, msg.Text)
		}
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func (e *Email) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithTimeout(e.cfg.Timeout),
		mail.WithPort(e.cfg.Port),
	}
	if e.cfg.SSL {
		opts = append(opts, mail.WithSSLPort(true))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password),
		)
	}
	return opts
}
