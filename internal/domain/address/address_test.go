package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

func validAddress() Address {
	return Address{
		Line1:      "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "us",
	}
}

func TestValidateAcceptsNormalizedAddress(t *testing.T) {
	require.NoError(t, Validate(validAddress()))
	assert.Equal(t, "US", validAddress().Normalize().Country)
}

func TestValidateReportsFieldErrors(t *testing.T) {
	addr := validAddress()
	addr.Line1 = "   "
	addr.Country = "XX"

	err := Validate(addr)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	typed := apperror.As(err)
	require.NotNil(t, typed)
	fields, ok := typed.Details()["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["line1"])
	assert.Equal(t, "must be a two-letter country code", fields["country"])
}

func TestIsZero(t *testing.T) {
	assert.True(t, Address{}.IsZero())
	assert.False(t, validAddress().IsZero())
}
