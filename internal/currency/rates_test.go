package currency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebkoller/moneyguru/internal/date"
)

func TestRateSameCurrency(t *testing.T) {
	db := NewRatesDB(nil, nil)
	got := db.Rate(date.New(2020, time.March, 1), "EUR", "EUR")
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Rate = %s, want 1", got)
	}
}

func TestRateNearestAtOrBefore(t *testing.T) {
	db := NewRatesDB(nil, nil)
	db.SetRate(date.New(2020, time.March, 2), "EUR", decimal.RequireFromString("1.10"))
	db.SetRate(date.New(2020, time.March, 9), "EUR", decimal.RequireFromString("1.20"))

	tests := []struct {
		name string
		day  date.Date
		want string
	}{
		{"exact quote", date.New(2020, time.March, 2), "1.1"},
		{"between quotes uses earlier", date.New(2020, time.March, 5), "1.1"},
		{"after last quote", date.New(2020, time.April, 1), "1.2"},
		{"before first quote falls forward", date.New(2020, time.February, 1), "1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := db.Rate(tt.day, "EUR", "USD")
			if got.String() != tt.want {
				t.Errorf("Rate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRateCross(t *testing.T) {
	db := NewRatesDB(nil, nil)
	day := date.New(2020, time.March, 2)
	db.SetRate(day, "EUR", decimal.RequireFromString("1.2"))
	db.SetRate(day, "CAD", decimal.RequireFromString("0.75"))
	// 1 EUR = 1.2 USD, 1 CAD = 0.75 USD, so 1 EUR = 1.6 CAD
	got := db.Rate(day, "EUR", "CAD")
	if got.String() != "1.6" {
		t.Errorf("Rate = %s, want 1.6", got)
	}
}

func TestRateUnknownCurrencyIsParity(t *testing.T) {
	db := NewRatesDB(nil, nil)
	got := db.Rate(date.New(2020, time.March, 2), "XXX", "USD")
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Rate = %s, want 1", got)
	}
}

type countingProvider struct {
	calls int32
}

func (p *countingProvider) FetchRates(_ context.Context, r date.Range, _ string) (map[date.Date]decimal.Decimal, error) {
	atomic.AddInt32(&p.calls, 1)
	return map[date.Date]decimal.Decimal{
		r.Start: decimal.RequireFromString("1.5"),
	}, nil
}

func TestEnsureRatesPopulatesTable(t *testing.T) {
	p := &countingProvider{}
	db := NewRatesDB(p, nil)
	r := date.NewRange(date.New(2020, time.March, 1), date.New(2020, time.March, 31))
	db.EnsureRates(context.Background(), r, []string{"EUR", "USD", ""})

	if got := atomic.LoadInt32(&p.calls); got != 1 {
		t.Errorf("provider called %d times, want 1 (USD and empty codes skipped)", got)
	}
	if got := db.Rate(r.Start, "EUR", "USD"); got.String() != "1.5" {
		t.Errorf("Rate = %s, want 1.5", got)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if !reg.Has("usd") {
		t.Error("registry should be case insensitive")
	}
	if _, err := reg.Get("ZZZ"); err != ErrUnsupported {
		t.Errorf("Get(ZZZ) err = %v, want ErrUnsupported", err)
	}
	reg.Register(Currency{Code: "ZZZ", Name: "Test", Exponent: 2})
	if !reg.Has("ZZZ") {
		t.Error("registered currency not found")
	}
}
