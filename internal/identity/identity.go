// Package identity validates player display names used as matchmaking keys.
package identity

import (
	"errors"
	"unicode/utf8"
)

// MaxLength is the longest accepted display name, in characters.
const MaxLength = 20

var (
	ErrEmpty   = errors.New("identity is empty")
	ErrTooLong = errors.New("identity is too long")
	ErrCharset = errors.New("identity contains characters outside [A-Za-z0-9_-]")
)

// Validate accepts name as-is or returns the reason it was rejected.
// Surrounding whitespace is not trimmed: " bob" is rejected, not normalized.
func Validate(name string) (string, error) {
	if name == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(name) > MaxLength {
		return "", ErrTooLong
	}
	for i := 0; i < len(name); i++ {
		if !allowed(name[i]) {
			return "", ErrCharset
		}
	}
	return name, nil
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	default:
		return false
	}
}
