package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCPF(t *testing.T) {
	assert.True(t, IsValidCPF("529.982.247-25"))
	assert.True(t, IsValidCPF("52998224725"))
	assert.True(t, IsValidCPF("111.444.777-35"))

	assert.False(t, IsValidCPF("529.982.247-24"), "wrong check digit")
	assert.False(t, IsValidCPF("111.111.111-11"), "repeated digits verify but are invalid")
	assert.False(t, IsValidCPF("000.000.000-00"))
	assert.False(t, IsValidCPF("1234567890"), "too short")
	assert.False(t, IsValidCPF(""))
}

func TestIsValidCNPJ(t *testing.T) {
	assert.True(t, IsValidCNPJ("11.222.333/0001-81"))
	assert.True(t, IsValidCNPJ("11222333000181"))

	assert.False(t, IsValidCNPJ("11.222.333/0001-80"), "wrong check digit")
	assert.False(t, IsValidCNPJ("11.111.111/1111-11"), "repeated digits")
	assert.False(t, IsValidCNPJ("1122233300018"), "too short")
	assert.False(t, IsValidCNPJ(""))
}

func TestIsValidCEP(t *testing.T) {
	assert.True(t, IsValidCEP("01310-100"))
	assert.True(t, IsValidCEP("01310100"))
	assert.False(t, IsValidCEP("0131-100"))
	assert.False(t, IsValidCEP("013101000"))
	assert.False(t, IsValidCEP(""))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("(11) 98765-4321"), "mobile with formatting")
	assert.True(t, IsValidPhone("11987654321"))
	assert.True(t, IsValidPhone("(11) 3456-7890"), "landline")
	assert.True(t, IsValidPhone("+55 11 98765-4321"), "with country code")

	assert.False(t, IsValidPhone("(11) 88765-4321"), "mobile without leading 9")
	assert.False(t, IsValidPhone("(01) 98765-4321"), "area code starting with 0")
	assert.False(t, IsValidPhone("987654321"), "too short")
	assert.False(t, IsValidPhone(""))
}

func TestIsValidLuhn(t *testing.T) {
	assert.True(t, IsValidLuhn("4111 1111 1111 1111"))
	assert.True(t, IsValidLuhn("4532015112830366"))
	assert.True(t, IsValidLuhn("5555555555554444"))

	assert.False(t, IsValidLuhn("4111111111111112"), "single digit off")
	assert.False(t, IsValidLuhn("123456789012"), "too short")
	assert.False(t, IsValidLuhn(""))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "529.982.247-25", FormatCPF("52998224725"))
	assert.Equal(t, "11.222.333/0001-81", FormatCNPJ("11222333000181"))
	assert.Equal(t, "01310-100", FormatCEP("01310100"))

	assert.Equal(t, "123", FormatCPF("123"), "invalid input passes through")
}
