// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number is written without a country code.
var DefaultRegion = "IN"

const unknownRegion = "ZZ"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// LocalNumber reduces a phone number to the digits a person would dial
// locally. Numbers written in international form (leading "+" or "00") lose
// their country calling code, tried as 3, then 2, then 1 digits. Numbers
// without an international prefix keep all their digits.
func LocalNumber(input string) string {
	trimmed := strings.TrimSpace(input)
	international := strings.HasPrefix(trimmed, "+")

	digits := onlyDigits(trimmed)
	if !international && strings.HasPrefix(digits, "00") {
		international = true
		digits = digits[2:]
	}
	if !international {
		return digits
	}

	for _, size := range []int{3, 2, 1} {
		if len(digits) <= size {
			continue
		}
		if IsCountryCallingCode(digits[:size]) {
			return digits[size:]
		}
	}
	return digits
}

// IsCountryCallingCode reports whether code is an assigned country calling code.
func IsCountryCallingCode(code string) bool {
	if code == "" || code[0] == '0' {
		return false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return phonenumbers.GetRegionCodeForCountryCode(n) != unknownRegion
}

// LooksLikePhone reports whether a free-text query is most likely a phone
// number: only digits and common separators, with at least five digits.
func LooksLikePhone(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}
	count := 0
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			count++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return count >= 5
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
