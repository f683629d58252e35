package common

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var (
	zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	nonDigits  = regexp.MustCompile(`[^0-9]`)
)

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string { return "validation failed" }

var fieldMessages = map[string]string{
	"required": "This field is required",
	"email":    "Please enter a valid email address",
	"phone10":  "Please enter a valid 10-digit phone number",
	"zipcode":  "Please enter a valid ZIP code",
	"len":      "Please use a two-letter country code",
	"datetime": "Please use the YYYY-MM-DD format",
}

// Validator wraps a validator v10 instance that reports failures by JSON field name.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a validator with the storefront rules (phone10, zipcode) registered.
// It panics if a rule cannot be registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
		return len(nonDigits.ReplaceAllString(fl.Field().String(), "")) == 10
	})
	mustRegister(v, "zipcode", func(fl validator.FieldLevel) bool {
		return zipPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Errorf("register validation %q: %w", tag, err))
	}
}

// Struct validates s and returns FieldErrors listing every failing field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("Please enter at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Please keep this under %s characters", fe.Param())
	}
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg
	}
	return "This field is invalid"
}
