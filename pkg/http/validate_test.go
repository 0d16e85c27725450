package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Symbol string `query:"symbol" validate:"required,symbol"`
	Day    string `json:"day" validate:"omitempty,date"`
	N      int    `query:"n" validate:"gte=1,lte=10"`
	Class  string `json:"class" validate:"omitempty,oneof=intraday swing"`
}

func codes(errs []ValidationError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Code
	}
	return out
}

func TestValidateStructAcceptsTickers(t *testing.T) {
	for _, sym := range []string{"AAPL", "BRK.B", "RDS-A", "^GSPC", "msft"} {
		assert.Nil(t, ValidateStruct(context.Background(), &sample{Symbol: sym, N: 1}), sym)
	}
}

func TestValidateStructFieldErrors(t *testing.T) {
	errs := ValidateStruct(context.Background(), &sample{Symbol: "AA PL", Day: "07/01/2024", N: 11, Class: "weekly"})
	require.Len(t, errs, 4)

	got := codes(errs)
	assert.Equal(t, "ERR_SYMBOL", got["symbol"])
	assert.Equal(t, "ERR_DATE", got["day"])
	assert.Equal(t, "ERR_LTE", got["n"])
	assert.Equal(t, "ERR_ONEOF", got["class"])

	for _, e := range errs {
		switch e.Field {
		case "n":
			assert.Equal(t, "n must be at most 10", e.Message)
			assert.Equal(t, "10", e.Params["max"])
		case "class":
			assert.Equal(t, []string{"intraday", "swing"}, e.Params["options"])
		case "day":
			assert.Equal(t, "day must be a YYYY-MM-DD date", e.Message)
		}
	}
}

func TestValidateStructRequired(t *testing.T) {
	errs := ValidateStruct(context.Background(), &sample{N: 5})
	require.Len(t, errs, 1)
	assert.Equal(t, ValidationError{Code: "ERR_REQUIRED", Field: "symbol", Message: "symbol is required"}, errs[0])
}
