package currency

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sebkoller/moneyguru/internal/date"
)

// Provider fetches historical exchange rates for one currency, expressed
// as USD per one unit of that currency.
type Provider interface {
	FetchRates(ctx context.Context, r date.Range, code string) (map[date.Date]decimal.Decimal, error)
}

type dayRate struct {
	day  date.Date
	rate decimal.Decimal
}

// RatesDB is a date-indexed exchange rate table. All rates are stored
// against USD; cross rates are derived.
//
// Reads tolerate missing data: an unknown pair converts at 1, and a date
// with no quote uses the latest quote before it. That keeps conversion a
// total function, which the cooking pipeline relies on.
type RatesDB struct {
	mu       sync.RWMutex
	rates    map[string][]dayRate // per code, sorted by day
	provider Provider
	group    singleflight.Group
	logger   *slog.Logger
}

// NewRatesDB returns an empty rates table. provider may be nil, in which
// case EnsureRates is a no-op.
func NewRatesDB(provider Provider, logger *slog.Logger) *RatesDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatesDB{
		rates:    make(map[string][]dayRate),
		provider: provider,
		logger:   logger,
	}
}

// SetRate records the USD rate for code on day, replacing any previous
// quote for that day.
func (db *RatesDB) SetRate(day date.Date, code string, rate decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.setRateLocked(day, code, rate)
}

func (db *RatesDB) setRateLocked(day date.Date, code string, rate decimal.Decimal) {
	quotes := db.rates[code]
	i := sort.Search(len(quotes), func(i int) bool { return !quotes[i].day.Before(day) })
	switch {
	case i < len(quotes) && quotes[i].day.Equal(day):
		quotes[i].rate = rate
	default:
		quotes = append(quotes, dayRate{})
		copy(quotes[i+1:], quotes[i:])
		quotes[i] = dayRate{day: day, rate: rate}
	}
	db.rates[code] = quotes
}

// usdRate returns USD per one unit of code, using the latest quote at or
// before day. Returns 1 when no quote is known.
func (db *RatesDB) usdRate(day date.Date, code string) decimal.Decimal {
	if code == "USD" {
		return decimal.NewFromInt(1)
	}
	quotes := db.rates[code]
	i := sort.Search(len(quotes), func(i int) bool { return quotes[i].day.After(day) })
	if i == 0 {
		// no quote at or before day; fall forward to the earliest one we
		// have rather than pretending parity
		if len(quotes) > 0 {
			return quotes[0].rate
		}
		return decimal.NewFromInt(1)
	}
	return quotes[i-1].rate
}

// Rate returns the exchange rate from one currency to another on day:
// the amount of "to" one unit of "from" buys.
func (db *RatesDB) Rate(day date.Date, from, to string) decimal.Decimal {
	if from == to {
		return decimal.NewFromInt(1)
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.usdRate(day, from).Div(db.usdRate(day, to))
}

// EnsureRates fetches quotes for codes over r through the provider,
// concurrently, deduplicating identical in-flight requests. Fetch failures
// are logged, not returned: conversion falls back to the latest known
// quote, so stale data is acceptable.
func (db *RatesDB) EnsureRates(ctx context.Context, r date.Range, codes []string) {
	if db.provider == nil || r.IsEmpty() {
		return
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, code := range codes {
		if code == "" || code == "USD" {
			continue
		}
		code := code
		g.Go(func() error {
			key := fmt.Sprintf("%s|%s|%s", code, r.Start, r.End)
			_, err, _ := db.group.Do(key, func() (interface{}, error) {
				fetched, err := db.provider.FetchRates(ctx, r, code)
				if err != nil {
					return nil, err
				}
				db.mu.Lock()
				for day, rate := range fetched {
					db.setRateLocked(day, code, rate)
				}
				db.mu.Unlock()
				return nil, nil
			})
			if err != nil {
				db.logger.Warn("rate fetch failed", "currency", code, "range", r.String(), "error", err)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors, they log
}
