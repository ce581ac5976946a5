// Package email normalizes addresses and derives display names from them.
package email

import (
	"net/mail"
	"strings"
	"unicode"

	dErrors "claimdesk/pkg/domain-errors"
)

// maxAddressLength follows the RFC 5321 path limit.
const maxAddressLength = 254

// Normalize parses a bare address, rejecting display-name forms, and lower-cases it.
func Normalize(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(raw) > maxAddressLength {
		return "", dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	parsed, err := mail.ParseAddress(raw)
	if err != nil || parsed.Address != raw {
		return "", dErrors.New(dErrors.CodeValidation, field+" is not a valid email address")
	}
	return strings.ToLower(parsed.Address), nil
}

// DisplayName derives "First Last" from the local part of an address.
func DisplayName(address string) string {
	first, last := DeriveNameFromEmail(address)
	if last == "User" {
		return first
	}
	return first + " " + last
}

func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
