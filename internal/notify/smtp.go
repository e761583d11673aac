package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"claims-reconciliation-service/pkg/errors"

	"github.com/wneessen/go-mail"
)

// Sender delivers a composed message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig holds the mail server settings
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultSMTPConfig returns the Office 365 submission endpoint with no
// credentials
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:    "smtp.office365.com",
		Port:    587,
		Timeout: 30 * time.Second,
	}
}

// Validate checks the SMTP settings
func (c SMTPConfig) Validate() error {
	if c.Username == "" || c.Password == "" {
		return errors.NotificationError(errors.CodeMissingCredentials, c.Host, nil)
	}
	if c.Host == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "notify.smtp.host", c.Host, nil)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "notify.smtp.port", c.Port,
			fmt.Errorf("port must be between 1 and 65535"))
	}
	return nil
}

func (c SMTPConfig) from() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

func (c SMTPConfig) target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPSender submits messages over SMTP with mandatory STARTTLS and LOGIN
// authentication, which is what Office 365 accepts
type SMTPSender struct {
	config SMTPConfig
	client *mail.Client
}

// NewSMTPSender validates config and returns a sender
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	client, err := mail.NewClient(config.Host,
		mail.WithPort(config.Port),
		mail.WithTimeout(config.Timeout),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTLSConfig(&tls.Config{ServerName: config.Host, MinVersion: tls.VersionTLS12}),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
	)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "notify.smtp", config.target(), err)
	}
	return &SMTPSender{config: config, client: client}, nil
}

// Send delivers msg to every To and Cc recipient
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	target := s.config.target()
	out, err := BuildMsg(s.config.from(), msg)
	if err != nil {
		return errors.NotificationError(errors.CodeDeliveryFailed, target, err)
	}
	if err := s.client.DialAndSendWithContext(ctx, out); err != nil {
		return errors.NotificationError(errors.CodeDeliveryFailed, target, err)
	}
	return nil
}

// BuildMsg converts msg into a go-mail message from the given sender. Every
// address is validated; a message without recipients is rejected.
func BuildMsg(from string, msg *Message) (*mail.Msg, error) {
	if len(msg.Recipients()) == 0 {
		return nil, fmt.Errorf("message %q has no recipients", msg.Subject)
	}

	out := mail.NewMsg()
	if err := out.From(from); err != nil {
		return nil, fmt.Errorf("sender %q: %w", from, err)
	}
	if len(msg.To) > 0 {
		if err := out.To(msg.To...); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	if len(msg.Cc) > 0 {
		if err := out.Cc(msg.Cc...); err != nil {
			return nil, fmt.Errorf("cc: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetDate()

	contentType := mail.TypeTextPlain
	if msg.HTML {
		contentType = mail.TypeTextHTML
	}
	out.SetBodyString(contentType, msg.Body)
	return out, nil
}
