package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// randomDigits returns an n-digit decimal string without a leading zero.
func randomDigits(n int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return v.Add(v, low).String(), nil
}

// NewTrackingNumber is the 6-digit code shown to the claimant. Display only.
func NewTrackingNumber() (string, error) {
	return randomDigits(6)
}

// NewPassphrase is the 9-digit numeric passphrase of a provisioned account.
func NewPassphrase() (string, error) {
	return randomDigits(9)
}

const rawTokenBytes = 32

func newRawToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken is the lookup key stored for a raw supervisor token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
