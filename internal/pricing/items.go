package pricing

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact currency amount. Arithmetic keeps full precision; rounding to
// CurrencyPlaces happens only when a summary is presented or charged.
type Money = decimal.Decimal

// CurrencyPlaces is the number of fractional digits of the presentation currency.
const CurrencyPlaces = 2

// LineItem is one product entry in a cart.
type LineItem struct {
	ProductID string `json:"productId"`
	UnitPrice Money  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// NewLineItem builds a line item from a float price, rejecting NaN, infinities and negative values.
func NewLineItem(productID string, unitPrice float64, quantity int) (LineItem, error) {
	if math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) {
		return LineItem{}, fmt.Errorf("%w: price of %q is not a number", ErrInvalidLineItem, productID)
	}
	item := LineItem{ProductID: productID, UnitPrice: decimal.NewFromFloat(unitPrice), Quantity: quantity}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// Validate reports whether the item satisfies the line item invariants.
func (it LineItem) Validate() error {
	if strings.TrimSpace(it.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidLineItem)
	}
	if it.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: price of %q is negative", ErrInvalidLineItem, it.ProductID)
	}
	if it.Quantity < 1 {
		return fmt.Errorf("%w: quantity of %q must be at least 1", ErrInvalidLineItem, it.ProductID)
	}
	return nil
}

// LineTotal returns unit price times quantity.
func (it LineItem) LineTotal() Money {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Subtotal sums the line totals after validating every item.
func Subtotal(items []LineItem) (Money, error) {
	subtotal := decimal.Zero
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return decimal.Zero, err
		}
		subtotal = subtotal.Add(it.LineTotal())
	}
	return subtotal, nil
}

// SetQuantity returns a copy of items with the quantity of productID replaced.
// Quantities below one are ignored and the items come back unchanged; decrementing
// never removes an item.
func SetQuantity(items []LineItem, productID string, newQuantity int) ([]LineItem, error) {
	if newQuantity < 1 {
		return slices.Clone(items), nil
	}
	idx := indexOf(items, productID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, productID)
	}
	out := slices.Clone(items)
	out[idx].Quantity = newQuantity
	return out, nil
}

// RemoveItem returns a copy of items without productID. Unknown ids are a no-op.
func RemoveItem(items []LineItem, productID string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID == productID {
			continue
		}
		out = append(out, it)
	}
	return out
}

func indexOf(items []LineItem, productID string) int {
	return slices.IndexFunc(items, func(it LineItem) bool { return it.ProductID == productID })
}
