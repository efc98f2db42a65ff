package identity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		err  error
	}{
		{"simple", "alice", nil},
		{"digits and marks", "bob_99-x", nil},
		{"max length", strings.Repeat("a", MaxLength), nil},
		{"empty", "", ErrEmpty},
		{"too long", strings.Repeat("a", MaxLength+1), ErrTooLong},
		{"space", "al ice", ErrCharset},
		{"leading space", " alice", ErrCharset},
		{"unicode", "체스왕", ErrCharset},
		{"punctuation", "alice!", ErrCharset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(tc.in)
			if !errors.Is(err, tc.err) {
				t.Fatalf("Validate(%q) err = %v, want %v", tc.in, err, tc.err)
			}
			if err == nil && got != tc.in {
				t.Fatalf("Validate(%q) = %q", tc.in, got)
			}
		})
	}
}
