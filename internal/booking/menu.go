package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// ErrServiceNotFound is returned for an unknown service id.
var ErrServiceNotFound = errors.New("service not found")

// Offering is a bookable session.
type Offering struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	DurationMinutes int           `json:"durationMinutes"`
	Price           pricing.Money `json:"price"`
}

// Duration returns the session length.
func (o Offering) Duration() time.Duration {
	return time.Duration(o.DurationMinutes) * time.Minute
}

// LineItem prices one session.
func (o Offering) LineItem() pricing.LineItem {
	return pricing.LineItem{ProductID: o.ID, UnitPrice: o.Price, Quantity: 1}
}

// Category groups offerings on the services page.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories lists the service tabs in display order.
var Categories = []Category{
	{ID: "tarot", Name: "Tarot Reading Services"},
	{ID: "astrology", Name: "Astrological Services"},
	{ID: "guidance", Name: "Spiritual Guidance"},
}

type offeringSeed struct {
	id, name, description, category string
	minutes                         int
	price                           float64
}

var defaultOfferings = []offeringSeed{
	{"t1", "Single Card Reading", "A focused reading on one specific question or area of your life.", "tarot", 15, 29.99},
	{"t2", "Three Card Spread", "Past, present, and future insights for deeper understanding.", "tarot", 30, 49.99},
	{"t3", "Celtic Cross Reading", "Comprehensive 10-card reading for detailed life guidance.", "tarot", 60, 89.99},
	{"a1", "Birth Chart Analysis", "Discover your planetary influences and life path.", "astrology", 45, 69.99},
	{"a2", "Compatibility Reading", "Understand relationship dynamics through astrological analysis.", "astrology", 60, 99.99},
	{"a3", "Solar Return Reading", "Forecast for your coming year based on your solar return chart.", "astrology", 45, 79.99},
	{"g1", "Spiritual Coaching Session", "One-on-one guidance for your spiritual development.", "guidance", 60, 119.99},
	{"g2", "Meditation Guidance", "Learn personalized meditation techniques for your spiritual practice.", "guidance", 45, 59.99},
	{"g3", "Energy Healing Session", "Chakra balancing and energy clearing for spiritual well-being.", "guidance", 60, 99.99},
}

// Menu is an immutable, ordered list of offerings.
type Menu struct {
	offerings []Offering
	byID      map[string]int
}

// NewMenu builds a menu. Ids must be unique, durations positive and prices valid line item prices.
func NewMenu(offerings []Offering) (*Menu, error) {
	m := &Menu{offerings: make([]Offering, 0, len(offerings)), byID: make(map[string]int, len(offerings))}
	for _, o := range offerings {
		if err := o.LineItem().Validate(); err != nil {
			return nil, fmt.Errorf("booking: %w", err)
		}
		if o.DurationMinutes <= 0 {
			return nil, fmt.Errorf("booking: service %s needs a positive duration", o.ID)
		}
		if _, dup := m.byID[o.ID]; dup {
			return nil, fmt.Errorf("booking: duplicate service %s", o.ID)
		}
		m.byID[o.ID] = len(m.offerings)
		m.offerings = append(m.offerings, o)
	}
	return m, nil
}

// DefaultMenu returns the storefront's reading and guidance sessions.
func DefaultMenu() *Menu {
	offerings := make([]Offering, 0, len(defaultOfferings))
	for _, s := range defaultOfferings {
		item, err := pricing.NewLineItem(s.id, s.price, 1)
		if err != nil {
			panic(err)
		}
		offerings = append(offerings, Offering{
			ID:              s.id,
			Name:            s.name,
			Description:     s.description,
			Category:        s.category,
			DurationMinutes: s.minutes,
			Price:           item.UnitPrice,
		})
	}
	m, err := NewMenu(offerings)
	if err != nil {
		panic(err)
	}
	return m
}

// Offering looks up a service by id.
func (m *Menu) Offering(id string) (Offering, error) {
	idx, ok := m.byID[strings.TrimSpace(id)]
	if !ok {
		return Offering{}, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}
	return m.offerings[idx], nil
}

// List returns the offerings of category, or every offering for "" and "all".
func (m *Menu) List(category string) []Offering {
	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]Offering, 0, len(m.offerings))
	for _, o := range m.offerings {
		if category != "" && category != "all" && o.Category != category {
			continue
		}
		out = append(out, o)
	}
	return out
}
