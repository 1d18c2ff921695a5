// internal/domain/address/address.go
package address

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// ErrInvalidAddress is returned when a shipping address fails validation
var ErrInvalidAddress = apperror.Validation("invalid shipping address")

// Address is a postal address. It is embedded by value into users (the
// address on file) and orders (the immutable shipping snapshot).
type Address struct {
	Line1      string `gorm:"size:255" json:"line1" validate:"required,max=255"`
	Line2      string `gorm:"size:255" json:"line2,omitempty" validate:"max=255"`
	City       string `gorm:"size:100" json:"city" validate:"required,max=100"`
	State      string `gorm:"size:100" json:"state,omitempty" validate:"max=100"`
	PostalCode string `gorm:"size:20" json:"postal_code" validate:"required,max=20"`
	Country    string `gorm:"size:2" json:"country" validate:"required,iso3166_1_alpha2"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Normalize trims whitespace and upper-cases the country code
func (a Address) Normalize() Address {
	return Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}

// IsZero reports whether no field is set
func (a Address) IsZero() bool {
	return a == Address{}
}

// Validate checks the normalized address. Field failures are reported as
// details on ErrInvalidAddress, keyed by json field name.
func Validate(a Address) error {
	err := validate.Struct(a.Normalize())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Wrap(apperror.CodeValidation, err, ErrInvalidAddress.Message())
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = validationMessage(fe)
	}
	return ErrInvalidAddress.WithDetail("fields", details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "iso3166_1_alpha2":
		return "must be a two-letter country code"
	}
	return "is invalid"
}
