package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCurrency(t *testing.T) {
	brl, err := LookupCurrency("BRL")
	require.NoError(t, err)
	assert.Equal(t, "R$", brl.Symbol)
	assert.Equal(t, 2, brl.Decimals)

	lower, err := LookupCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", lower.Code)

	_, err = LookupCurrency("GBP")
	assert.Error(t, err)
	_, err = LookupCurrency("")
	assert.Error(t, err)
}

func TestRoundAmountHalfToEven(t *testing.T) {
	// 0.125 and 0.375 are exact in binary, so the tie lands precisely
	// on the halfway point.
	assert.Equal(t, 0.12, RoundAmount(0.125, "BRL"))
	assert.Equal(t, 0.38, RoundAmount(0.375, "BRL"))
	assert.Equal(t, 10.43, RoundAmount(10.434, "USD"))
	assert.Equal(t, -0.12, RoundAmount(-0.125, "BRL"))
}

func TestRoundAmountZeroDecimalCurrencies(t *testing.T) {
	assert.Equal(t, 1234.0, RoundAmount(1234.49, "CLP"))
	assert.Equal(t, 2.0, RoundAmount(2.5, "CLP"), "half rounds to even")
	assert.Equal(t, 4.0, RoundAmount(3.5, "COP"))
}

func TestRoundAmountUnknownCurrencyDefaultsToTwoDecimals(t *testing.T) {
	assert.Equal(t, 9.99, RoundAmount(9.994, "XXX"))
}

func TestFormatAmount(t *testing.T) {
	formatted, err := FormatAmount(1234567.891, "BRL")
	require.NoError(t, err)
	assert.Equal(t, "R$ 1.234.567,89", formatted)

	formatted, err = FormatAmount(1234.5, "USD")
	require.NoError(t, err)
	assert.Equal(t, "$ 1,234.50", formatted)

	formatted, err = FormatAmount(99.9, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "99,90 €", formatted)

	formatted, err = FormatAmount(123456.0, "CLP")
	require.NoError(t, err)
	assert.Equal(t, "$ 123.456", formatted, "zero-decimal currency omits the fraction")

	formatted, err = FormatAmount(-42.5, "USD")
	require.NoError(t, err)
	assert.Equal(t, "-$ 42.50", formatted)

	_, err = FormatAmount(10, "GBP")
	assert.Error(t, err)
}

func TestSupportedCurrencies(t *testing.T) {
	codes := SupportedCurrencies()
	assert.Len(t, codes, 8)
	assert.Contains(t, codes, "BRL")
	assert.Contains(t, codes, "COP")
}
