package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebkoller/moneyguru/internal/date"
)

func day(y, m, d int) date.Date {
	return date.New(y, time.Month(m), d)
}

func usd(s string) Amount {
	return NewAmount(decimal.RequireFromString(s), "USD")
}

func eur(s string) Amount {
	return NewAmount(decimal.RequireFromString(s), "EUR")
}
