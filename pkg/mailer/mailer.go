package mailer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/google/uuid"
)

// Sender delivers an email inline.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Dispatcher hands an email to a background job runner.
type Dispatcher interface {
	Dispatch(ctx context.Context, email *Email) error
}

// Settings holds the application settings the mailer reads.
type Settings struct {
	DefaultFromEmail string
	// Queue routes mails through the Dispatcher instead of the Sender.
	Queue bool
	// Values is exposed to templates as "settings".
	Values map[string]any
}

// Params describes a single mail.
type Params struct {
	// Recipient is a string address or a Recipient.
	Recipient      any
	TemplatePrefix string
	Subject        string
	// Data is merged over the default template context.
	Data        map[string]any
	Attachments []Attachment
	// Request is optional and used to resolve the current site.
	Request *http.Request
}

// Config wires a Manager.
type Config struct {
	Templates  fs.FS
	Settings   Settings
	Sites      SiteResolver
	Sender     Sender
	Dispatcher Dispatcher
	Metrics    *Metrics
}

// Manager composes and sends templated mails.
type Manager struct {
	templates  *Templates
	settings   Settings
	sites      SiteResolver
	sender     Sender
	dispatcher Dispatcher
	metrics    *Metrics
}

// NewManager creates a Manager from cfg.
func NewManager(cfg Config) *Manager {
	sites := cfg.Sites
	if sites == nil {
		sites = StaticSiteResolver{}
	}

	return &Manager{
		templates:  NewTemplates(cfg.Templates),
		settings:   cfg.Settings,
		sites:      sites,
		sender:     cfg.Sender,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
	}
}

// Compose renders the templates for params and builds the Email without
// sending it.
func (m *Manager) Compose(ctx context.Context, params Params) (*Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	address, err := resolveAddress(params.Recipient)
	if err != nil {
		slog.Error("Invalid mail recipient", "template", params.TemplatePrefix, "error", err)
		return nil, err
	}

	data := map[string]any{
		"recipient": params.Recipient,
		"subject":   params.Subject,
		"request":   params.Request,
		"site":      m.sites.Current(params.Request),
		"settings":  m.settings.Values,
	}
	maps.Copy(data, params.Data)

	text, html, err := m.templates.Render(params.TemplatePrefix, data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", params.TemplatePrefix, err)
	}

	return &Email{
		ID:          uuid.NewString(),
		From:        m.settings.DefaultFromEmail,
		To:          []string{address},
		Subject:     params.Subject,
		Text:        text,
		HTML:        html,
		Attachments: slices.Clone(params.Attachments),
	}, nil
}

// SendMail composes the mail and either dispatches it to the job runner when
// Settings.Queue is set or sends it inline. Transport errors are returned as
// is and never retried.
func (m *Manager) SendMail(ctx context.Context, params Params) error {
	email, err := m.Compose(ctx, params)
	if err != nil {
		return err
	}

	if m.settings.Queue {
		if m.dispatcher == nil {
			slog.Error("Mail queue enabled without a dispatcher", "id", email.ID)
			return fmt.Errorf("dispatch: %w", ErrNoTransport)
		}

		slog.Debug("Dispatching mail", "id", email.ID, "to", email.To, "subject", email.Subject)

		return m.dispatcher.Dispatch(ctx, email)
	}

	if m.sender == nil {
		slog.Error("Inline mail delivery without a sender", "id", email.ID)
		return fmt.Errorf("send: %w", ErrNoTransport)
	}

	if err := m.sender.Send(ctx, email); err != nil {
		m.metrics.failed()
		return err
	}

	m.metrics.sent()

	return nil
}
