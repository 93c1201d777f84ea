package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount string
		want   string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"104.11", "$104.11"},
		{"27.625", "$27.63"},
		{"1234.56", "$1,234.56"},
		{"1234567.891", "$1,234,567.89"},
		{"-5.5", "-$5.50"},
		// beyond float64's 2^53 exact integer range
		{"9007199254740993.11", "$9,007,199,254,740,993.11"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatCurrency(decimal.RequireFromString(tc.amount)), "amount %s", tc.amount)
	}
}
