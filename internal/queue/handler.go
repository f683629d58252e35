package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/obs"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<h1>Thank you, {{.CustomerName}}</h1>
<p>Your order <strong>{{.OrderNumber}}</strong> has been received.</p>
<table>
{{range .Items}}<tr><td>{{.ProductID}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Summary.Subtotal.StringFixed 2}} {{.Currency}}</p>
<p>Shipping: {{.Summary.Shipping.StringFixed 2}} {{.Currency}}</p>
<p>Tax: {{.Summary.Tax.StringFixed 2}} {{.Currency}}</p>
{{if .Summary.PromoCode}}<p>Discount ({{.Summary.PromoCode}}): -{{.Summary.Discount.StringFixed 2}} {{.Currency}}</p>
{{end}}<p><strong>Total: {{.Summary.Total.StringFixed 2}} {{.Currency}}</strong></p>
`))

// ConfirmationHandler sends order confirmation emails.
type ConfirmationHandler struct {
	Email  common.EmailSender
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h *ConfirmationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p OrderConfirmation
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.count("invalid")
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return h.Deliver(ctx, p)
}

// Deliver renders and sends the confirmation for p.
func (h *ConfirmationHandler) Deliver(_ context.Context, p OrderConfirmation) error {
	if p.Email == "" {
		h.count("invalid")
		return fmt.Errorf("order %s has no email: %w", p.OrderNumber, asynq.SkipRetry)
	}
	p.Summary = p.Summary.Rounded()
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, p); err != nil {
		h.count("error")
		return fmt.Errorf("render confirmation: %w", err)
	}
	if err := h.Email.Send(p.Email, "Your Mystic order "+p.OrderNumber, buf.String()); err != nil {
		h.count("error")
		h.Logger.Warn().Err(err).Str("order_number", p.OrderNumber).Msg("confirmation email failed")
		return err
	}
	h.count("sent")
	h.Logger.Info().Str("order_number", p.OrderNumber).Msg("order confirmation sent")
	return nil
}

func (h *ConfirmationHandler) count(result string) {
	if obs.OrderConfirmationTotal != nil {
		obs.OrderConfirmationTotal.WithLabelValues(result).Inc()
	}
}

// NewServeMux routes task types to their handlers.
func NewServeMux(confirm *ConfirmationHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeOrderConfirmation, confirm)
	return mux
}

