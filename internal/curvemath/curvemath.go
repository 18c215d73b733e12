// Package curvemath provides overflow-checked 256-bit unsigned arithmetic
// for the pricing path. Every operation that can wrap or divide by zero
// returns an error instead of truncating silently; no floating point.
package curvemath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result does not fit in 256 bits,
	// including subtraction below zero.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrDivisionByZero is returned for a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

// Rounding selects the direction integer division truncates toward.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// PriceScale is the fixed-point scale for marginal prices (1e18).
var PriceScale = uint256.NewInt(1e18)

// Add returns a+b, failing on 256-bit overflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, failing if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrOverflow
	}
	return diff, nil
}

// Mul returns a*b, failing on 256-bit overflow.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	prod, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return prod, nil
}

// Div returns a/b rounded in the given direction.
func Div(a, b *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	q := new(uint256.Int).Div(a, b)
	if rounding == RoundUp {
		rem := new(uint256.Int).Mod(a, b)
		if !rem.IsZero() {
			var overflow bool
			q, overflow = new(uint256.Int).AddOverflow(q, uint256.NewInt(1))
			if overflow {
				return nil, ErrOverflow
			}
		}
	}
	return q, nil
}

// MulDiv returns x*y/den with a 512-bit intermediate product, rounded in
// the given direction. Fails if den is zero or the quotient overflows.
func MulDiv(x, y, den *uint256.Int, rounding Rounding) (*uint256.Int, error) {
	if den.IsZero() {
		return nil, ErrDivisionByZero
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, den)
	if overflow {
		return nil, ErrOverflow
	}
	if rounding == RoundUp {
		rem := new(uint256.Int).MulMod(x, y, den)
		if !rem.IsZero() {
			q, overflow = new(uint256.Int).AddOverflow(q, uint256.NewInt(1))
			if overflow {
				return nil, ErrOverflow
			}
		}
	}
	return q, nil
}
