package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountNotations(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// The four canonical normalization cases.
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"(123.45)", "-123.45"},
		{"99,99 EUR", "99.99"},

		{"1234.56", "1234.56"},
		{"-588,74", "-588.74"},
		{"+250,00", "250"},
		{"12.50€", "12.5"},
		{"€ 12.50", "12.5"},
		{"eur 99,99", "99.99"},
		{"(1.234,56)", "-1234.56"},
		{"0,00", "0"},
		{"0", "0"},
		// Lone comma with other than two trailing digits is a thousands
		// separator.
		{"1,234", "1234"},
		{"12,3456", "123456"},
		{"1 234,56", "1234.56"},
		// Comma as both thousands and decimal separator.
		{"1,234,56", "1234.56"},
		{"12,345,678,90", "12345678.9"},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got.String(), "input %q", tt.input)
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "   ", "n/a", "12,34,56abc", "--", "EUR"} {
		_, err := ParseAmount(input)
		assert.Error(t, err, "input %q", input)
	}
}
