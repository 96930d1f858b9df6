// Package model implements the document engine: accounts, transactions,
// recurring schedules, budgets, the oven that derives per-account entries
// from them, and the undoer that makes every mutation reversible.
//
// The whole entity graph is owned by a single Document and is only ever
// touched from one goroutine; none of this package is safe for concurrent
// use. The exchange rate table is the lone exception and lives in the
// currency package.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// Amount is an immutable decimal value tagged with a currency code. The
// zero Amount is the "no amount" sentinel: it has no currency and can be
// combined with any other amount.
//
// Mixing two non-zero currencies in arithmetic is a bug in the caller, not
// a recoverable condition, so Add and friends panic on it.
type Amount struct {
	value decimal.Decimal
	code  string
}

// NewAmount returns value tagged with the currency code.
func NewAmount(value decimal.Decimal, code string) Amount {
	if value.IsZero() {
		return Amount{}
	}
	return Amount{value: value, code: code}
}

// ParseAmount parses a decimal string into an amount of the given currency.
func ParseAmount(s, code string) (Amount, error) {
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return NewAmount(value, code), nil
}

// Value returns the numeric part of the amount.
func (a Amount) Value() decimal.Decimal { return a.value }

// Currency returns the amount's currency code, empty for the zero amount.
func (a Amount) Currency() string { return a.code }

// IsZero reports whether the amount is the zero sentinel or has value 0.
func (a Amount) IsZero() bool { return a.value.IsZero() }

func (a Amount) checkCompatible(b Amount, op string) {
	if !a.IsZero() && !b.IsZero() && a.code != b.code {
		panic(fmt.Sprintf("amount: %s with mixed currencies %s and %s", op, a.code, b.code))
	}
}

// Add returns a+b. Both operands must share a currency unless one is zero.
func (a Amount) Add(b Amount) Amount {
	a.checkCompatible(b, "add")
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	return NewAmount(a.value.Add(b.value), a.code)
}

// Sub returns a-b under the same currency rules as Add.
func (a Amount) Sub(b Amount) Amount {
	return a.Add(b.Neg())
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return NewAmount(a.value.Neg(), a.code)
}

// Abs returns the absolute value of the amount.
func (a Amount) Abs() Amount {
	return NewAmount(a.value.Abs(), a.code)
}

// Mul scales the amount by rate.
func (a Amount) Mul(rate decimal.Decimal) Amount {
	return NewAmount(a.value.Mul(rate), a.code)
}

// Cmp compares two amounts of the same currency: -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	a.checkCompatible(b, "compare")
	return a.value.Cmp(b.value)
}

// Equal reports whether a and b have the same value and currency. All zero
// amounts are equal regardless of currency tag.
func (a Amount) Equal(b Amount) bool {
	if a.IsZero() && b.IsZero() {
		return true
	}
	return a.code == b.code && a.value.Equal(b.value)
}

func (a Amount) String() string {
	if a.IsZero() {
		return "0"
	}
	return a.value.String() + " " + a.code
}

// Convert expresses the amount in another currency using the rate in
// effect on day. Converting the zero amount or to the same currency is the
// identity.
func Convert(a Amount, to string, day date.Date, rates *currency.RatesDB) Amount {
	if a.IsZero() || a.code == to || rates == nil {
		return a
	}
	return NewAmount(a.value.Mul(rates.Rate(day, a.code, to)), to)
}

// Prorate spreads an amount linearly over spreadOver and returns the part
// covered by wanted: amount * overlapDays / spreadDays. Zero when the
// ranges don't overlap.
func Prorate(a Amount, spreadOver, wanted date.Range) Amount {
	if spreadOver.IsEmpty() {
		return Amount{}
	}
	overlap := spreadOver.Intersect(wanted)
	if overlap.IsEmpty() {
		return Amount{}
	}
	rate := decimal.NewFromInt(int64(overlap.Days())).Div(decimal.NewFromInt(int64(spreadOver.Days())))
	return a.Mul(rate)
}
