package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Placeholder synthesises deterministic test-mode intents without a network call.
// It stands in for a card processor until real keys are configured.
type Placeholder struct {
	PublishableKey string
}

// Name implements Provider.
func (Placeholder) Name() string { return "placeholder" }

// CreateIntent implements Provider.
func (p Placeholder) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if req.Amount < 0 {
		return IntentResponse{}, fmt.Errorf("%w: amount is negative", ErrInvalidRequest)
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", req.OrderID, req.Amount, currency)))
	id := "pi_test_" + hex.EncodeToString(sum[:12])
	return IntentResponse{
		Provider:     p.Name(),
		IntentID:     id,
		ClientSecret: id + "_secret_" + hex.EncodeToString(sum[12:20]),
		Amount:       req.Amount,
		Currency:     currency,
		Status:       "requires_payment_method",
	}, nil
}
