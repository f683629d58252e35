package pricing

import "errors"

var (
	// ErrInvalidLineItem is returned when a line item carries a negative or non-numeric price, a
	// quantity below one, or no product identifier.
	ErrInvalidLineItem = errors.New("invalid line item")
	// ErrItemNotFound indicates the targeted product is not part of the line items.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidPromoCode is returned when a code is unknown or is applied to an empty cart.
	ErrInvalidPromoCode = errors.New("invalid promo code")
	// ErrInvalidConfig indicates the pricing configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid pricing config")
)
