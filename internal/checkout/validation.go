package checkout

import (
	"strings"

	"github.com/noah-isme/mystic-pricing/internal/common"
)

// CustomerInfo is the contact and shipping address collected at checkout.
type CustomerInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone10"`
	Address   string `json:"address" validate:"required"`
	Apartment string `json:"apartment"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required,zipcode"`
	Country   string `json:"country" validate:"omitempty,len=2"`
}

// FullName joins first and last name.
func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// normalize trims every field and applies defaults.
func (c CustomerInfo) normalize() CustomerInfo {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Apartment = strings.TrimSpace(c.Apartment)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.ZipCode = strings.TrimSpace(c.ZipCode)
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	if c.Country == "" {
		c.Country = "US"
	}
	return c
}

// validateCustomer normalises info and returns it, or common.FieldErrors listing every failing field.
func validateCustomer(val *common.Validator, info CustomerInfo) (CustomerInfo, error) {
	info = info.normalize()
	return info, val.Struct(info)
}
