/*
Package core provides the shared value types for the meal management system.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A currency amount backed by decimal.Decimal
  - Signed amounts: deposits/refunds positive, deductions negative

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64
  2. Minor units: splitting happens at cent precision so shares sum exactly
*/
package core

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// NewMoneyFromCents builds a Money from an integer count of minor units.
func NewMoneyFromCents(cents int64) Money {
	return Money{Value: decimal.New(cents, -2)}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money          { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money          { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) MulInt(n int64) Money       { return Money{Value: m.Value.Mul(decimal.NewFromInt(n))} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) Equal(b Money) bool         { return m.Value.Equal(b.Value) }
func (m Money) LessThan(b Money) bool      { return m.Value.LessThan(b.Value) }
func (m Money) GreaterThan(b Money) bool   { return m.Value.GreaterThan(b.Value) }

// Cents returns the amount in minor units, truncated toward zero.
func (m Money) Cents() int64 {
	return m.Value.Shift(2).IntPart()
}

func (m Money) String() string {
	return m.Value.StringFixed(2)
}
