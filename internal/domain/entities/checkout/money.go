// Package checkout defines the application's core cart and order domain entities.
package checkout

import (
	"fmt"
	"math"
	"strings"

	"github.com/clubifyhq/checkout-go/internal/domain/errs"
)

// CurrencyFormat describes how amounts are rendered for a given ISO code.
type CurrencyFormat struct {
	Code         string `json:"code"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	DecimalSep   string `json:"decimalSep"`
	ThousandsSep string `json:"thousandsSep"`
	SymbolFirst  bool   `json:"symbolFirst"`
}

// currencyFormats is the fixed lookup table of supported currencies.
// CLP and COP are zero-decimal currencies.
var currencyFormats = map[string]CurrencyFormat{
	"BRL": {Code: "BRL", Symbol: "R$", Decimals: 2, DecimalSep: ",", ThousandsSep: ".", SymbolFirst: true},
	"USD": {Code: "USD", Symbol: "$", Decimals: 2, DecimalSep: ".", ThousandsSep: ",", SymbolFirst: true},
	"EUR": {Code: "EUR", Symbol: "€", Decimals: 2, DecimalSep: ",", ThousandsSep: ".", SymbolFirst: false},
	"ARS": {Code: "ARS", Symbol: "$", Decimals: 2, DecimalSep: ",", ThousandsSep: ".", SymbolFirst: true},
	"CLP": {Code: "CLP", Symbol: "$", Decimals: 0, DecimalSep: ",", ThousandsSep: ".", SymbolFirst: true},
	"PEN": {Code: "PEN", Symbol: "S/", Decimals: 2, DecimalSep: ".", ThousandsSep: ",", SymbolFirst: true},
	"COP": {Code: "COP", Symbol: "$", Decimals: 0, DecimalSep: ",", ThousandsSep: ".", SymbolFirst: true},
	"MXN": {Code: "MXN", Symbol: "$", Decimals: 2, DecimalSep: ".", ThousandsSep: ",", SymbolFirst: true},
}

// LookupCurrency returns the format for an ISO currency code.
func LookupCurrency(code string) (CurrencyFormat, error) {
	format, ok := currencyFormats[strings.ToUpper(code)]
	if !ok {
		return CurrencyFormat{}, errs.NewValidation("currency", fmt.Sprintf("unsupported currency code %q", code))
	}
	return format, nil
}

// SupportedCurrencies lists the ISO codes in the lookup table.
func SupportedCurrencies() []string {
	codes := make([]string, 0, len(currencyFormats))
	for code := range currencyFormats {
		codes = append(codes, code)
	}
	return codes
}

// RoundAmount rounds a monetary value to the currency's precision using
// round-half-to-even. Unknown currencies round to 2 decimals.
func RoundAmount(value float64, currency string) float64 {
	decimals := 2
	if format, ok := currencyFormats[strings.ToUpper(currency)]; ok {
		decimals = format.Decimals
	}
	factor := math.Pow(10, float64(decimals))
	return math.RoundToEven(value*factor) / factor
}

// FormatAmount renders a monetary value with the currency's symbol and separators.
func FormatAmount(value float64, currency string) (string, error) {
	format, err := LookupCurrency(currency)
	if err != nil {
		return "", err
	}

	rounded := RoundAmount(value, currency)
	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	intPart := int64(rounded)
	fracPart := int64(math.Round((rounded - float64(intPart)) * math.Pow(10, float64(format.Decimals))))

	grouped := groupThousands(fmt.Sprintf("%d", intPart), format.ThousandsSep)

	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	if format.SymbolFirst {
		b.WriteString(format.Symbol)
		b.WriteString(" ")
	}
	b.WriteString(grouped)
	if format.Decimals > 0 {
		b.WriteString(format.DecimalSep)
		b.WriteString(fmt.Sprintf("%0*d", format.Decimals, fracPart))
	}
	if !format.SymbolFirst {
		b.WriteString(" ")
		b.WriteString(format.Symbol)
	}
	return b.String(), nil
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return strings.Join(groups, sep)
}
