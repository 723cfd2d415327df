// Package notification delivers outbound patient messages (survey links and
// follow-up reminders) over email and SMS.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel is the delivery route of an outbound message.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

const (
	TemplateSurveyLink       = "survey-link"
	TemplateFollowUpReminder = "follow-up-reminder"
)

// Notification is a single outbound message and its delivery result.
type Notification struct {
	ID         string     `json:"id"`
	Channel    Channel    `json:"channel"`
	Recipient  string     `json:"recipient"`
	Subject    string     `json:"subject,omitempty"`
	Body       string     `json:"body"`
	TemplateID string     `json:"templateId,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Template uses {{key}} placeholders in both subject and body.
type Template struct {
	ID      string
	Subject string
	Body    string
}

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	e.RegisterTemplate(Template{
		ID:      TemplateSurveyLink,
		Subject: "[{{pharmacy}}] 건강 설문 안내",
		Body:    "{{patient}}님, 아래 링크에서 건강 설문을 진행해 주세요. {{link}} (만료: {{expires}})",
	})
	e.RegisterTemplate(Template{
		ID:      TemplateFollowUpReminder,
		Subject: "[{{pharmacy}}] 재방문 상담 안내",
		Body:    "{{patient}}님, {{date}} 재방문 상담이 예정되어 있습니다. 확인 사항: {{checklist}}",
	})
	return e
}

func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render substitutes data into the template. Placeholders without a value
// are left untouched.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Dispatcher routes notifications to the sender for their channel.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	templates *TemplateEngine
	logger    zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(email EmailSender, sms SMSSender, tpl *TemplateEngine, logger zerolog.Logger) *Dispatcher {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	return &Dispatcher{
		email:     email,
		sms:       sms,
		templates: tpl,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send delivers n and records the outcome on it. The returned error is the
// sender's error, if any.
func (d *Dispatcher) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = d.now()

	var err error
	switch n.Channel {
	case ChannelEmail:
		err = d.email.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case ChannelSMS:
		err = d.sms.SendSMS(ctx, n.Recipient, n.Body)
	default:
		err = fmt.Errorf("unsupported channel: %s", n.Channel)
	}

	if err != nil {
		n.Status = StatusFailed
		n.Error = err.Error()
		d.logger.Warn().Err(err).
			Str("notification_id", n.ID).
			Str("channel", string(n.Channel)).
			Str("recipient", MaskRecipient(n.Recipient)).
			Msg("notification dispatch failed")
		return err
	}
	sentAt := d.now()
	n.Status = StatusSent
	n.SentAt = &sentAt
	return nil
}

// SendTemplate renders templateID with data and sends it to recipient.
func (d *Dispatcher) SendTemplate(ctx context.Context, ch Channel, templateID, recipient string, data map[string]string) (*Notification, error) {
	subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	n := &Notification{
		Channel:    ch,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
	}
	if err := d.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// MaskRecipient keeps enough of an address to recognise it in logs.
func MaskRecipient(r string) string {
	if at := strings.IndexByte(r, '@'); at > 0 {
		return r[:1] + "***" + r[at:]
	}
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + r[len(r)-4:]
}
