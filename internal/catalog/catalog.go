package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

var (
	// ErrProductNotFound is returned when the product id is unknown.
	ErrProductNotFound = errors.New("product not found")
	// ErrOutOfStock is returned when a product cannot currently be ordered.
	ErrOutOfStock = errors.New("product out of stock")
)

// Category groups products on the storefront.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable item. Price is authoritative for cart line items.
type Product struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       pricing.Money `json:"price"`
	Category    string        `json:"category"`
	Featured    bool          `json:"featured"`
	InStock     bool          `json:"inStock"`
	Rating      float64       `json:"rating"`
	Reviews     int           `json:"reviews"`
}

// Filter narrows List results. Zero values match everything; "all" is accepted as a category.
type Filter struct {
	Category     string
	Query        string
	MaxPrice     *pricing.Money
	InStockOnly  bool
	FeaturedOnly bool
}

// Catalog is an immutable, ordered product list.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a catalog from products. Ids must be unique and prices non-negative.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{products: make([]Product, 0, len(products)), byID: make(map[string]int, len(products))}
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("catalog: product id is required")
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("catalog: product %s has a negative price", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %s", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default returns the storefront catalog.
func Default() *Catalog {
	products := make([]Product, 0, len(defaultProducts))
	for _, s := range defaultProducts {
		products = append(products, Product{
			ID:          s.id,
			Name:        s.name,
			Description: s.description,
			Price:       decimal.RequireFromString(s.price),
			Category:    s.category,
			Featured:    s.featured,
			InStock:     s.inStock,
			Rating:      s.rating,
			Reviews:     s.reviews,
		})
	}
	c, err := New(products)
	if err != nil {
		panic(err)
	}
	return c
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return c.products[idx], nil
}

// List returns the products matching f in catalog order.
func (c *Catalog) List(f Filter) []Product {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	if category == "all" {
		category = ""
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && p.Category != category {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStockOnly && !p.InStock {
			continue
		}
		if f.FeaturedOnly && !p.Featured {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) && !strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LineItem resolves productID at its catalog price.
func (c *Catalog) LineItem(productID string, quantity int) (pricing.LineItem, error) {
	p, err := c.Product(productID)
	if err != nil {
		return pricing.LineItem{}, err
	}
	if !p.InStock {
		return pricing.LineItem{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.ID)
	}
	item := pricing.LineItem{ProductID: p.ID, UnitPrice: p.Price, Quantity: quantity}
	if err := item.Validate(); err != nil {
		return pricing.LineItem{}, err
	}
	return item, nil
}
