package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

func TestAmount_ZeroSentinel(t *testing.T) {
	zero := NewAmount(decimal.Zero, "USD")
	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.Currency())

	sum := zero.Add(eur("5"))
	assert.True(t, sum.Equal(eur("5")))
}

func TestAmount_Arithmetic(t *testing.T) {
	a := usd("10.50")
	b := usd("4.50")

	assert.True(t, a.Add(b).Equal(usd("15")))
	assert.True(t, a.Sub(b).Equal(usd("6")))
	assert.True(t, usd("-3").Abs().Equal(usd("3")))
	assert.Equal(t, 1, a.Cmp(b))
}

func TestAmount_MixedCurrencyPanics(t *testing.T) {
	assert.Panics(t, func() {
		usd("1").Add(eur("1"))
	})
	assert.Panics(t, func() {
		usd("1").Cmp(eur("1"))
	})
}

func TestConvert(t *testing.T) {
	rates := currency.NewRatesDB(nil, nil)
	rates.SetRate(day(2024, 1, 15), "EUR", decimal.RequireFromString("1.25"))

	converted := Convert(eur("4"), "USD", day(2024, 1, 15), rates)
	assert.True(t, converted.Equal(usd("5")))

	// same currency and zero amount pass through untouched
	assert.True(t, Convert(usd("4"), "USD", day(2024, 1, 15), rates).Equal(usd("4")))
	assert.True(t, Convert(Amount{}, "USD", day(2024, 1, 15), rates).IsZero())
}

func TestProrate(t *testing.T) {
	spread := date.NewRange(day(2024, 1, 1), day(2024, 1, 31))

	part := Prorate(usd("100"), spread, date.NewRange(day(2024, 1, 10), day(2024, 1, 20)))
	require.False(t, part.IsZero())
	assert.Equal(t, "35.48", part.Value().Round(2).String())

	full := Prorate(usd("100"), spread, spread)
	assert.True(t, full.Equal(usd("100")))

	outside := Prorate(usd("100"), spread, date.NewRange(day(2024, 2, 1), day(2024, 2, 10)))
	assert.True(t, outside.IsZero())
}
