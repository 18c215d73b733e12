package account

import (
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func TestValidateKnownGoodAddress(t *testing.T) {
	// 32 zero bytes encode the ed25519 identity point.
	addr := base58.Encode(make([]byte, 32))
	if err := Validate(addr); err != nil {
		t.Errorf("Validate(%s) failed: %v", addr, err)
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	if err := Validate(""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress, got %v", err)
	}
}

func TestValidateRejectsBadBase58(t *testing.T) {
	// 0, O, I and l are not in the base58 alphabet.
	if err := Validate("0OIl0OIl"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress, got %v", err)
	}
}

func TestValidateRejectsWrongLength(t *testing.T) {
	short := base58.Encode([]byte{1, 2, 3})
	if err := Validate(short); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for short key, got %v", err)
	}
	long := base58.Encode(make([]byte, 64))
	if err := Validate(long); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress for long key, got %v", err)
	}
}
