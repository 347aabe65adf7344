package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is an arbitrary-precision integer amount in the smallest unit of
// the currency. The zero value is 0.
//
// Sub may produce a negative value; callers compare before relying on it.
type Amount struct {
	d decimal.Decimal
}

func NewAmount(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

func AmountFromBig(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{d: decimal.NewFromBigInt(v, 0)}
}

// ParseAmount parses a base-10 integer string. Fractional values are rejected
// rather than rounded.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("amount cannot be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount format: %w", err)
	}
	if !d.IsInteger() {
		return Amount{}, fmt.Errorf("amount must be an integer: %s", s)
	}
	return Amount{d: d}, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) Equal(b Amount) bool       { return a.d.Equal(b.d) }
func (a Amount) IsNegative() bool          { return a.d.IsNegative() }
func (a Amount) IsZero() bool              { return a.d.IsZero() }

// BigInt returns the amount as a new big.Int.
func (a Amount) BigInt() *big.Int { return a.d.BigInt() }

func (a Amount) String() string { return a.d.String() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return a.d.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if !d.IsInteger() {
		return fmt.Errorf("amount must be an integer: %s", d.String())
	}
	a.d = d
	return nil
}
