package config

import (
	"errors"
	"strings"
)

var ErrInvalidStatementDescriptor = errors.New("statement descriptor is invalid")

// ValidateStatementDescriptor checks a customer bank statement descriptor
// against the card networks' constraints: 5 to 22 characters after trimming,
// at least one latin letter, none of * ' " < >. It returns the trimmed value.
func ValidateStatementDescriptor(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 5 || len(trimmed) > 22 {
		return "", ErrInvalidStatementDescriptor
	}
	if strings.ContainsAny(trimmed, `*'"<>`) {
		return "", ErrInvalidStatementDescriptor
	}
	hasLetter := false
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
			continue
		}
		if r > 0x7e {
			// Non-latin scripts are rejected outright.
			return "", ErrInvalidStatementDescriptor
		}
	}
	if !hasLetter {
		return "", ErrInvalidStatementDescriptor
	}
	return trimmed, nil
}
