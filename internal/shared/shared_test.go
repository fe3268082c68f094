package shared

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"contact_email" validate:"omitempty,email"`
	Qty   int    `json:"qty" validate:"gte=0"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(sampleInput{Email: "nope", Qty: -1})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "'name' is required")
	require.Contains(t, err.Error(), "'contact_email' must be a valid email")
	require.Contains(t, err.Error(), "'qty' must satisfy gte=0")

	require.NoError(t, ValidateStruct(sampleInput{Name: "ok"}))
}

func TestParseListFiltersClamps(t *testing.T) {
	f := ParseListFilters(url.Values{"limit": {"9999"}, "offset": {"-3"}, "search": {"bolt"}})
	require.Equal(t, MaxLimit, f.Limit)
	require.Zero(t, f.Offset)
	require.Equal(t, "bolt", f.Search)

	f = ParseListFilters(url.Values{})
	require.Equal(t, DefaultLimit, f.Limit)
}

func TestUserSafeMessage(t *testing.T) {
	require.Equal(t, "internal error", UserSafeMessage(errors.New("pq: connection refused")))
	require.Contains(t, UserSafeMessage(ErrNotFound), "not found")
	require.Empty(t, UserSafeMessage(nil))
}
