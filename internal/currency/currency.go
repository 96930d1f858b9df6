// Package currency provides the currency registry and the date-indexed
// exchange rate table used for amount conversion.
//
// The registry and the rates DB are plain injected values, created at
// document-open time and passed down to whatever needs them. The rates DB
// is the only component in the engine that is touched concurrently: a
// background fetcher populates it while the document reads from it.
package currency

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned when a currency code is not in the registry.
var ErrUnsupported = errors.New("unsupported currency")

// Currency describes a registered currency.
type Currency struct {
	Code     string
	Name     string
	Exponent int32 // decimal places conventionally displayed
}

// Registry holds the set of known currencies.
type Registry struct {
	byCode map[string]Currency
}

// builtins is the set of currencies every registry starts with.
var builtins = []Currency{
	{"USD", "US dollar", 2},
	{"EUR", "Euro", 2},
	{"CAD", "Canadian dollar", 2},
	{"GBP", "Pound sterling", 2},
	{"JPY", "Japanese yen", 0},
	{"CHF", "Swiss franc", 2},
	{"AUD", "Australian dollar", 2},
	{"SEK", "Swedish krona", 2},
	{"NOK", "Norwegian krone", 2},
	{"DKK", "Danish krone", 2},
	{"PLN", "Polish zloty", 2},
	{"MXN", "Mexican peso", 2},
	{"BRL", "Brazilian real", 2},
	{"INR", "Indian rupee", 2},
	{"CNY", "Chinese yuan", 2},
}

// NewRegistry returns a registry seeded with the built-in currencies.
func NewRegistry() *Registry {
	r := &Registry{byCode: make(map[string]Currency, len(builtins))}
	for _, c := range builtins {
		r.byCode[c.Code] = c
	}
	return r
}

// Register adds or replaces a currency.
func (r *Registry) Register(c Currency) {
	r.byCode[strings.ToUpper(c.Code)] = c
}

// Get looks a currency up by code (case insensitive).
func (r *Registry) Get(code string) (Currency, error) {
	c, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return Currency{}, ErrUnsupported
	}
	return c, nil
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	_, ok := r.byCode[strings.ToUpper(code)]
	return ok
}

// Codes returns all registered codes, unsorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	return codes
}
