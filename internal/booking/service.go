package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/common"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/payment"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

var (
	// ErrInvalidSlot is returned for a date or time that is malformed or off the schedule.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrSlotUnavailable is returned when the slot is in the past, closed or already booked.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrPayment wraps failures of the payment provider.
	ErrPayment = errors.New("payment failed")
)

// PricingConfig prices sessions at their listed price: no shipping and no tax.
func PricingConfig() pricing.Config {
	return pricing.Config{
		FreeShippingThreshold: decimal.Zero,
		FlatShippingFee:       decimal.Zero,
		TaxRate:               decimal.Zero,
	}
}

// Customer is the contact collected on the booking form.
type Customer struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone10"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Message   string `json:"message" validate:"max=2000"`
}

func (c Customer) normalize() Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.BirthDate = strings.TrimSpace(c.BirthDate)
	c.Message = strings.TrimSpace(c.Message)
	return c
}

// Request books ServiceID at Date (YYYY-MM-DD) and Time (H:MM) in the schedule's time zone.
type Request struct {
	ServiceID string   `json:"serviceId"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Customer  Customer `json:"customer"`
}

// Booking is a confirmed, paid-for session.
type Booking struct {
	Reference       string                 `json:"reference"`
	Status          string                 `json:"status"`
	Service         Offering               `json:"service"`
	Start           time.Time              `json:"start"`
	End             time.Time              `json:"end"`
	Customer        Customer               `json:"customer"`
	Summary         pricing.Summary        `json:"summary"`
	TotalMinorUnits int64                  `json:"totalMinorUnits"`
	Currency        string                 `json:"currency"`
	Payment         payment.IntentResponse `json:"payment"`
	BookedAt        time.Time              `json:"bookedAt"`
}

// Service lists open slots and books sessions.
type Service struct {
	Menu         *Menu
	Schedule     Schedule
	Available    AvailabilityFunc
	Reservations Reservations
	Engine       pricing.Engine
	Payments     payment.Provider
	Validator    *common.Validator
	Currency     string
	Now          func() time.Time
	Logger       zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) currency() string {
	if s.Currency == "" {
		return "USD"
	}
	return s.Currency
}

// Slots lists the open start times of serviceID on date. Past, closed and booked
// starts are left out.
func (s *Service) Slots(ctx context.Context, serviceID, date string) ([]Slot, error) {
	if s == nil || s.Menu == nil {
		return nil, errors.New("booking service not configured")
	}
	o, err := s.Menu.Offering(serviceID)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.Schedule.loc())
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidSlot)
	}
	now := s.now()
	slots := s.Schedule.Slots(o, day, func(o Offering, start time.Time) bool {
		return start.After(now) && (s.Available == nil || s.Available(o, start))
	})
	if s.Reservations == nil || len(slots) == 0 {
		return slots, nil
	}
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = slotKey(o, slot.Start)
	}
	taken, err := s.Reservations.Taken(ctx, keys)
	if err != nil {
		return nil, err
	}
	open := slots[:0]
	for i, slot := range slots {
		if !taken[keys[i]] {
			open = append(open, slot)
		}
	}
	return open, nil
}

// Book validates the customer, claims the slot, prices the session and opens a
// payment intent for it. The claim is released when payment fails.
func (s *Service) Book(ctx context.Context, req Request) (Booking, error) {
	if s == nil || s.Menu == nil || s.Payments == nil || s.Reservations == nil {
		return Booking{}, errors.New("booking service not configured")
	}
	validator := s.Validator
	if validator == nil {
		validator = common.NewValidator()
	}
	customer := req.Customer.normalize()
	if err := validator.Struct(customer); err != nil {
		obs.CountBooking("invalid")
		return Booking{}, err
	}
	o, err := s.Menu.Offering(req.ServiceID)
	if err != nil {
		obs.CountBooking("not_found")
		return Booking{}, err
	}
	start, err := s.parseStart(req.Date, req.Time)
	if err != nil {
		obs.CountBooking("invalid")
		return Booking{}, err
	}
	if !start.After(s.now()) || (s.Available != nil && !s.Available(o, start)) {
		obs.CountBooking("unavailable")
		return Booking{}, fmt.Errorf("%w: %s at %s", ErrSlotUnavailable, o.ID, start.Format(time.RFC3339))
	}

	ref := newReference()
	key := slotKey(o, start)
	end := start.Add(o.Duration())
	claimed, err := s.Reservations.Reserve(ctx, key, ref, end)
	if err != nil {
		obs.CountBooking("error")
		return Booking{}, err
	}
	if !claimed {
		obs.CountBooking("unavailable")
		return Booking{}, fmt.Errorf("%w: %s at %s is booked", ErrSlotUnavailable, o.ID, start.Format(time.RFC3339))
	}
	release := func() {
		if err := s.Reservations.Release(context.WithoutCancel(ctx), key); err != nil {
			s.Logger.Error().Err(err).Str("slot", key).Msg("release booking slot")
		}
	}

	summary, err := s.Engine.ComputeSummary([]pricing.LineItem{o.LineItem()}, nil)
	if err != nil {
		release()
		obs.CountBooking("error")
		return Booking{}, err
	}
	intent, err := s.Payments.CreateIntent(ctx, payment.IntentRequest{
		OrderID:  ref,
		Amount:   summary.TotalMinorUnits(),
		Currency: s.currency(),
		Email:    customer.Email,
	})
	if err != nil {
		release()
		obs.CountBooking(resultLabel(err))
		return Booking{}, fmt.Errorf("%w: %w", ErrPayment, err)
	}

	obs.CountBooking("confirmed")
	s.Logger.Info().
		Str("reference", ref).
		Str("service_id", o.ID).
		Time("start", start).
		Str("total", summary.Total.StringFixed(pricing.CurrencyPlaces)).
		Msg("session booked")
	return Booking{
		Reference:       ref,
		Status:          "confirmed",
		Service:         o,
		Start:           start,
		End:             end,
		Customer:        customer,
		Summary:         summary,
		TotalMinorUnits: summary.TotalMinorUnits(),
		Currency:        s.currency(),
		Payment:         intent,
		BookedAt:        s.now(),
	}, nil
}

func (s *Service) parseStart(date, clock string) (time.Time, error) {
	loc := s.Schedule.loc()
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidSlot)
	}
	hm, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time must be H:MM", ErrInvalidSlot)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
	if !s.Schedule.Contains(start) {
		return time.Time{}, fmt.Errorf("%w: %s is outside opening hours", ErrInvalidSlot, start.Format("15:04"))
	}
	return start, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, payment.ErrDeclined):
		return "payment_declined"
	default:
		return "payment_failed"
	}
}

func newReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
