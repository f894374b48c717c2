// Package pricing converts between payment amounts, entitlement amounts and
// unit quantities across differing decimal scales. All arithmetic is 256-bit
// unsigned with explicit overflow detection; an overflow rejects the input
// rather than wrapping.
package pricing

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// MaxDecimals is the largest decimal scale accepted for any amount.
// 10^77 is the largest power of ten that fits in 256 bits.
const MaxDecimals = 77

var (
	ErrOverflow  = errors.New("pricing: arithmetic overflow")
	ErrZeroPrice = errors.New("pricing: zero price")
	ErrScale     = errors.New("pricing: unsupported decimal scale")
)

// Pow10 returns 10^n, or ErrOverflow when n exceeds MaxDecimals.
func Pow10(n uint) (*uint256.Int, error) {
	if n > MaxDecimals {
		return nil, fmt.Errorf("%w: 10^%d", ErrOverflow, n)
	}
	ten := uint256.NewInt(10)
	r := uint256.NewInt(1)
	for i := uint(0); i < n; i++ {
		r.Mul(r, ten)
	}
	return r, nil
}

// MulPow10 returns v * 10^n with overflow detection.
func MulPow10(v *uint256.Int, n uint) (*uint256.Int, error) {
	p, err := Pow10(n)
	if err != nil {
		return nil, err
	}
	r, overflow := new(uint256.Int).MulOverflow(v, p)
	if overflow {
		return nil, fmt.Errorf("%w: %s * 10^%d", ErrOverflow, v, n)
	}
	return r, nil
}

// Engine holds the decimal scales of one sale. Prices handed to it are in
// stored fixed-point form, that is whole units multiplied by 10^PriceDecimals.
type Engine struct {
	PaymentDecimals uint8 // scale of the payment token
	OutputDecimals  uint8 // scale of the issued entitlement
	PriceDecimals   uint8 // fixed-point scale of the stored price
}

// Validate checks that every scale is representable.
func (e Engine) Validate() error {
	for _, d := range []uint8{e.PaymentDecimals, e.OutputDecimals, e.PriceDecimals} {
		if d > MaxDecimals {
			return fmt.Errorf("%w: %d decimals", ErrScale, d)
		}
	}
	return nil
}

// StorePrice converts a whole-unit price into its stored fixed-point form.
func (e Engine) StorePrice(whole *uint256.Int) (*uint256.Int, error) {
	return MulPow10(whole, uint(e.PriceDecimals))
}

// Entitlement returns floor(payment * 10^(out - in + priceDec) / price).
// Remainders are truncated, never rounded up.
func (e Engine) Entitlement(payment, price *uint256.Int) (*uint256.Int, error) {
	if price.IsZero() {
		return nil, ErrZeroPrice
	}
	exp := int(e.OutputDecimals) - int(e.PaymentDecimals) + int(e.PriceDecimals)
	if exp >= 0 {
		num, err := MulPow10(payment, uint(exp))
		if err != nil {
			return nil, err
		}
		return num.Div(num, price), nil
	}
	den, err := MulPow10(price, uint(-exp))
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(payment, den), nil
}

// RequiredPayment returns quantity * price * 10^(payDec - priceDec), the
// payment-token amount owed for quantity whole units.
func (e Engine) RequiredPayment(quantity, price *uint256.Int) (*uint256.Int, error) {
	if price.IsZero() {
		return nil, ErrZeroPrice
	}
	if e.PaymentDecimals < e.PriceDecimals {
		return nil, fmt.Errorf("%w: price scale %d finer than payment scale %d",
			ErrScale, e.PriceDecimals, e.PaymentDecimals)
	}
	unit, err := MulPow10(price, uint(e.PaymentDecimals-e.PriceDecimals))
	if err != nil {
		return nil, err
	}
	total, overflow := new(uint256.Int).MulOverflow(quantity, unit)
	if overflow {
		return nil, fmt.Errorf("%w: %s units at %s", ErrOverflow, quantity, unit)
	}
	return total, nil
}
