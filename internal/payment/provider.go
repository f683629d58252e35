package payment

import (
	"context"
	"errors"
)

var (
	// ErrDeclined is a permanent provider refusal; retrying will not help.
	ErrDeclined = errors.New("payment declined")
	// ErrInvalidRequest indicates the intent request itself is malformed.
	ErrInvalidRequest = errors.New("invalid payment request")
)

// IntentRequest captures the information required to open a payment intent with a provider.
// Amount is in minor currency units.
type IntentRequest struct {
	OrderID  string
	Amount   int64
	Currency string
	Email    string
}

// IntentResponse represents the minimal information returned by a provider when creating an intent.
type IntentResponse struct {
	Provider     string `json:"provider"`
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Provider abstracts the upstream payment processor.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
}
