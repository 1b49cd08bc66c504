package chat

import (
	nanoid "github.com/jaevor/go-nanoid"
)

// Base62 characters for invite codes.
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// InviteCodeLength is the length of generated invite codes.
const InviteCodeLength = 8

// NewInviteCodeGenerator returns a generator of random base62 invite codes.
func NewInviteCodeGenerator() (func() string, error) {
	return nanoid.CustomASCII(base62Chars, InviteCodeLength)
}

// IsValidInviteCode checks if a code has the shape of an invite code.
func IsValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for _, c := range code {
		if !isAlphanumeric(c) {
			return false
		}
	}
	return true
}

func isAlphanumeric(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
