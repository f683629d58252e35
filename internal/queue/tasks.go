package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// TypeOrderConfirmation is the asynq task type for order confirmation emails.
const TypeOrderConfirmation = "order:confirmation"

// OrderConfirmation is the payload of an order confirmation task.
type OrderConfirmation struct {
	OrderNumber     string             `json:"orderNumber"`
	Email           string             `json:"email"`
	CustomerName    string             `json:"customerName"`
	Items           []pricing.LineItem `json:"items"`
	Summary         pricing.Summary    `json:"summary"`
	Currency        string             `json:"currency"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty"`
	PlacedAt        time.Time          `json:"placedAt"`
}

// NewOrderConfirmationTask builds the task. The order number doubles as the task id
// so an order is confirmed at most once while the task is retained.
func NewOrderConfirmationTask(p OrderConfirmation, maxRetry int) (*asynq.Task, error) {
	if p.OrderNumber == "" {
		return nil, errors.New("queue: order number is required")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode order confirmation: %w", err)
	}
	if maxRetry <= 0 {
		maxRetry = 10
	}
	return asynq.NewTask(TypeOrderConfirmation, payload,
		asynq.TaskID("confirm:"+p.OrderNumber),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(24*time.Hour),
	), nil
}

// ConfirmationQueue accepts order confirmations for delivery.
type ConfirmationQueue interface {
	EnqueueOrderConfirmation(ctx context.Context, p OrderConfirmation) error
}

// Enqueuer publishes tasks through an asynq client.
type Enqueuer struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
}

// EnqueueOrderConfirmation implements ConfirmationQueue. A task already queued for the
// same order is not an error.
func (e Enqueuer) EnqueueOrderConfirmation(ctx context.Context, p OrderConfirmation) error {
	if e.Client == nil {
		return errors.New("queue: asynq client not configured")
	}
	task, err := NewOrderConfirmationTask(p, e.MaxRetry)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeOrderConfirmation, err)
	}
	return nil
}

// Inline delivers confirmations synchronously through a handler. It is used
// when no Redis is configured.
type Inline struct {
	Handler *ConfirmationHandler
}

// EnqueueOrderConfirmation implements ConfirmationQueue.
func (i Inline) EnqueueOrderConfirmation(ctx context.Context, p OrderConfirmation) error {
	if i.Handler == nil {
		return nil
	}
	return i.Handler.Deliver(ctx, p)
}
