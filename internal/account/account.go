// Package account validates trader and creator addresses: base58-encoded
// 32-byte ed25519 public keys that decode to a point on the curve.
package account

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for addresses that do not decode to a
// 32-byte on-curve ed25519 public key.
var ErrInvalidAddress = errors.New("invalid account address")

// Validate checks that addr is a well-formed account address.
func Validate(addr string) error {
	if addr == "" {
		return ErrInvalidAddress
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return ErrInvalidAddress
	}
	if len(raw) != 32 {
		return ErrInvalidAddress
	}
	if !isOnCurve(raw) {
		return ErrInvalidAddress
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
