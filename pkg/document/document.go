// Package document validates Brazilian identification documents and a few
// checkout-adjacent formats: CPF, CNPJ, CEP, phone numbers, and card numbers
// via the Luhn algorithm.
package document

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips every non-digit character.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// IsValidCPF checks a CPF (natural person registry). Formatting characters
// are ignored; repeated-digit sequences like 111.111.111-11 are rejected
// even though their check digits verify.
func IsValidCPF(cpf string) bool {
	digits := Digits(cpf)
	if len(digits) != 11 {
		return false
	}
	if allSame(digits) {
		return false
	}

	first := cpfCheckDigit(digits[:9], 10)
	if int(digits[9]-'0') != first {
		return false
	}
	second := cpfCheckDigit(digits[:10], 11)
	return int(digits[10]-'0') == second
}

func cpfCheckDigit(digits string, startWeight int) int {
	sum := 0
	for i, ch := range digits {
		sum += int(ch-'0') * (startWeight - i)
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

var cnpjFirstWeights = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
var cnpjSecondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

// IsValidCNPJ checks a CNPJ (legal entity registry). Formatting characters
// are ignored; repeated-digit sequences are rejected.
func IsValidCNPJ(cnpj string) bool {
	digits := Digits(cnpj)
	if len(digits) != 14 {
		return false
	}
	if allSame(digits) {
		return false
	}

	first := cnpjCheckDigit(digits[:12], cnpjFirstWeights)
	if int(digits[12]-'0') != first {
		return false
	}
	second := cnpjCheckDigit(digits[:13], cnpjSecondWeights)
	return int(digits[13]-'0') == second
}

func cnpjCheckDigit(digits string, weights []int) int {
	sum := 0
	for i, ch := range digits {
		sum += int(ch-'0') * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// IsValidCEP checks a CEP (postal code): exactly eight digits, with or
// without the customary dash.
func IsValidCEP(cep string) bool {
	digits := Digits(cep)
	return len(digits) == 8
}

// IsValidPhone checks a Brazilian phone number: 10 digits (landline) or
// 11 digits (mobile) after stripping formatting, with a valid area code.
// An optional leading country code 55 is accepted.
func IsValidPhone(phone string) bool {
	digits := Digits(phone)
	if strings.HasPrefix(digits, "55") && len(digits) > 11 {
		digits = digits[2:]
	}
	if len(digits) != 10 && len(digits) != 11 {
		return false
	}
	// Area codes run 11-99 and never start with 0.
	if digits[0] == '0' {
		return false
	}
	// Mobile numbers have a 9 after the area code.
	if len(digits) == 11 && digits[2] != '9' {
		return false
	}
	return true
}

// IsValidLuhn checks a card number with the Luhn algorithm. Numbers outside
// 13-19 digits are rejected.
func IsValidLuhn(number string) bool {
	digits := Digits(number)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// FormatCPF renders an 11-digit CPF as 000.000.000-00. Invalid lengths are
// returned unchanged.
func FormatCPF(cpf string) string {
	digits := Digits(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return digits[:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:]
}

// FormatCNPJ renders a 14-digit CNPJ as 00.000.000/0000-00. Invalid lengths
// are returned unchanged.
func FormatCNPJ(cnpj string) string {
	digits := Digits(cnpj)
	if len(digits) != 14 {
		return cnpj
	}
	return digits[:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:]
}

// FormatCEP renders an 8-digit CEP as 00000-000. Invalid lengths are
// returned unchanged.
func FormatCEP(cep string) string {
	digits := Digits(cep)
	if len(digits) != 8 {
		return cep
	}
	return digits[:5] + "-" + digits[5:]
}
