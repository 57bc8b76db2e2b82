// Package mailer sends templated transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/wneessen/go-mail"
)

// Template names
const (
	TemplateSellerRegistered = "seller_registered"
	TemplateSellerApproved   = "seller_approved"
	TemplateSellerDeclined   = "seller_declined"
)

// Sender delivers composed messages
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer renders templates and sends them through Sender
type Mailer struct {
	sender Sender
	from   string
	admin  string
}

// New creates a Mailer using an existing sender
func New(sender Sender, from, admin string) *Mailer {
	return &Mailer{sender: sender, from: from, admin: admin}
}

// NewFromConfig creates an SMTP-backed Mailer
func NewFromConfig(cfg config.MailConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return New(client, cfg.From, cfg.AdminAddress), nil
}

// SellerInfo is the data rendered into seller notifications
type SellerInfo struct {
	ID            string
	CompanyName   string
	WatchProsName string
	FirstName     string
	LastName      string
	Email         string
	Country       string
	Reason        string
}

// NotifyAdminNewSeller tells the admin inbox a seller is waiting for review
func (m *Mailer) NotifyAdminNewSeller(ctx context.Context, info SellerInfo) error {
	return m.send(ctx, TemplateSellerRegistered, m.admin, info)
}

// NotifySellerApproved tells a seller their account was verified
func (m *Mailer) NotifySellerApproved(ctx context.Context, info SellerInfo) error {
	return m.send(ctx, TemplateSellerApproved, info.Email, info)
}

// NotifySellerDeclined tells a seller their account was rejected
func (m *Mailer) NotifySellerDeclined(ctx context.Context, info SellerInfo) error {
	return m.send(ctx, TemplateSellerDeclined, info.Email, info)
}

func (m *Mailer) send(ctx context.Context, name, to string, data any) (err error) {
	defer func() { prometheus.RecordEmail(name, err) }()

	msg, err := m.compose(name, to, data)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", name, to, err)
	}
	return nil
}

func (m *Mailer) compose(name, to string, data any) (*mail.Msg, error) {
	tpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(tpl.subject)
	if err := msg.SetBodyTextTemplate(tpl.body, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return msg, nil
}
