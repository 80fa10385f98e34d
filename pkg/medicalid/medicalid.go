// Package medicalid generates and validates the permanent 5-character
// patient identifiers (MRNs) and the human-readable referral codes built
// on the same alphabet.
//
// The alphabet is fixed at 32 characters: digits 2-9 and the uppercase
// letters excluding O, I and L, so an ID read over the phone or off a
// wristband cannot be confused with a lookalike. Uniqueness is not this
// package's job; callers compose Generate with an existence check against
// their store (see GenerateUnique) and the database enforces the real
// constraint with a unique index.
package medicalid

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Alphabet is the canonical safe alphabet. Visually ambiguous characters
// (0, 1, O, I, L) are excluded.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length is the fixed length of a medical ID.
const Length = 5

// ReferralCodePrefix prefixes every referral code.
const ReferralCodePrefix = "REF-"

// MaxAttempts bounds the uniqueness-seeking retry loop in GenerateUnique.
const MaxAttempts = 10

// ErrExhausted is returned when GenerateUnique cannot find a free ID
// within MaxAttempts. Callers must treat it as fatal for the operation
// in progress; falling back to a possibly-duplicate ID is never allowed.
var ErrExhausted = fmt.Errorf("medicalid: could not generate a unique ID in %d attempts", MaxAttempts)

// Generate returns a 5-character ID drawn uniformly at random from
// Alphabet. It has no side effects and makes no uniqueness guarantee.
func Generate() string {
	return randomString(Length)
}

// NewReferralCode returns a referral code of the form REF-XXXXX over the
// same safe alphabet.
func NewReferralCode() string {
	return ReferralCodePrefix + randomString(Length)
}

// IsValid reports whether candidate has the shape of a medical ID:
// exactly 5 characters, all alphanumeric, case-insensitive. It is a
// pattern check only and deliberately does not apply the safe-alphabet
// exclusion list, so IDs issued before the alphabet was narrowed still
// validate.
func IsValid(candidate string) bool {
	if len(candidate) != Length {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// ExistsFunc reports whether an ID is already assigned. Implementations
// typically query the patients table.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// GenerateUnique mints an ID that exists reports as free, regenerating on
// collision up to MaxAttempts times. It returns ErrExhausted when the
// bound is hit and propagates any error from exists unchanged.
func GenerateUnique(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		id := Generate()
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check ID existence: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrExhausted
}

func randomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand reading from the OS never fails in practice; if
		// it does the process cannot mint identifiers safely at all.
		panic(fmt.Sprintf("medicalid: rand.Read: %v", err))
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out)
}
