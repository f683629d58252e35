package contact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/obs"
)

// ErrDelivery wraps failures of the outgoing mail transport.
var ErrDelivery = errors.New("contact message not delivered")

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

func (m Message) normalize() Message {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)
	return m
}

// Receipt acknowledges a delivered message.
type Receipt struct {
	Reference  string    `json:"reference"`
	ReceivedAt time.Time `json:"receivedAt"`
}

var inboxTmpl = template.Must(template.New("contact").Parse(`<h1>{{.Subject}}</h1>
<p>From {{.Name}} &lt;{{.Email}}&gt;</p>
<p>Reference {{.Reference}}</p>
<pre>{{.Message}}</pre>
`))

// Service forwards contact messages to the shop inbox.
type Service struct {
	Mail      common.EmailSender
	Inbox     string
	Validator *common.Validator
	Now       func() time.Time
	Logger    zerolog.Logger
}

// Submit validates msg and mails it to the inbox.
func (s *Service) Submit(_ context.Context, msg Message) (Receipt, error) {
	if s == nil || s.Mail == nil || s.Inbox == "" {
		return Receipt{}, errors.New("contact service not configured")
	}
	validator := s.Validator
	if validator == nil {
		validator = common.NewValidator()
	}
	msg = msg.normalize()
	if err := validator.Struct(msg); err != nil {
		obs.CountContactMessage("invalid")
		return Receipt{}, err
	}

	ref := "CT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	var body bytes.Buffer
	data := map[string]string{
		"Name":      msg.Name,
		"Email":     msg.Email,
		"Subject":   msg.Subject,
		"Message":   msg.Message,
		"Reference": ref,
	}
	if err := inboxTmpl.Execute(&body, data); err != nil {
		obs.CountContactMessage("error")
		return Receipt{}, fmt.Errorf("render contact message: %w", err)
	}
	if err := s.Mail.Send(s.Inbox, "[Contact] "+msg.Subject, body.String()); err != nil {
		obs.CountContactMessage("error")
		return Receipt{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	obs.CountContactMessage("sent")
	s.Logger.Info().Str("reference", ref).Str("from", msg.Email).Msg("contact message forwarded")
	return Receipt{Reference: ref, ReceivedAt: s.now()}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
