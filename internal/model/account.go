package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// AccountType classifies an account for reporting and for the sign
// convention of budgets.
type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Income    AccountType = "income"
	Expense   AccountType = "expense"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Income, Expense:
		return true
	}
	return false
}

// IsDebit reports whether the account type increases with debits
// (asset and expense accounts).
func (t AccountType) IsDebit() bool {
	return t == Asset || t == Expense
}

// Account is a named bucket money moves in and out of.
type Account struct {
	ID       uuid.UUID
	Name     string
	Type     AccountType
	Currency string
	// Group is the name of the account group in reports, empty for none.
	Group         string
	AccountNumber string
	Notes         string
	Inactive      bool
	// AutoCreated marks accounts created implicitly by naming them in a
	// transaction edit or an import. The undoer garbage-collects them when
	// the last referencing transaction goes away.
	AutoCreated bool
}

// NewAccount returns an account with a fresh identity.
func NewAccount(name string, t AccountType, currencyCode string) *Account {
	return &Account{
		ID:       uuid.New(),
		Name:     name,
		Type:     t,
		Currency: currencyCode,
	}
}

// NormalizeAmount flips the sign of amount for credit accounts so that
// "money in" is always positive from the account's point of view.
func (a *Account) NormalizeAmount(amount Amount) Amount {
	if a.Type.IsDebit() {
		return amount
	}
	return amount.Neg()
}

// Replicate returns a value snapshot of the account sharing its identity.
func (a *Account) Replicate() *Account {
	c := *a
	return &c
}

// CopyFrom overwrites every field except identity with other's values.
func (a *Account) CopyFrom(other *Account) {
	id := a.ID
	*a = *other
	a.ID = id
}

var ErrDuplicateAccountName = errors.New("account name already in use")

// AccountList owns a document's accounts and, because entries only make
// sense per account, the cooked EntryList of each one.
type AccountList struct {
	defaultCurrency string
	accounts        []*Account
	entries         map[uuid.UUID]*EntryList
	rates           *currency.RatesDB
}

// NewAccountList returns an empty account list. Entries of accounts whose
// currency differs from a requested balance currency convert through
// rates.
func NewAccountList(defaultCurrency string, rates *currency.RatesDB) *AccountList {
	return &AccountList{
		defaultCurrency: defaultCurrency,
		entries:         make(map[uuid.UUID]*EntryList),
		rates:           rates,
	}
}

// DefaultCurrency returns the currency accounts fall back to.
func (al *AccountList) DefaultCurrency() string { return al.defaultCurrency }

// Add appends the account, rejecting duplicate names (case insensitive).
func (al *AccountList) Add(a *Account) error {
	if existing := al.Find(a.Name); existing != nil && existing != a {
		return fmt.Errorf("%w: %s", ErrDuplicateAccountName, a.Name)
	}
	if a.Currency == "" {
		a.Currency = al.defaultCurrency
	}
	al.accounts = append(al.accounts, a)
	return nil
}

// Find returns the account with the given name, nil when absent.
func (al *AccountList) Find(name string) *Account {
	for _, a := range al.accounts {
		if strings.EqualFold(a.Name, name) {
			return a
		}
	}
	return nil
}

// FindOrCreate returns the named account, creating it as auto-created
// with the given type when it doesn't exist yet.
func (al *AccountList) FindOrCreate(name string, t AccountType) *Account {
	if a := al.Find(name); a != nil {
		return a
	}
	a := NewAccount(strings.TrimSpace(name), t, al.defaultCurrency)
	a.AutoCreated = true
	al.accounts = append(al.accounts, a)
	return a
}

// NewNameFor returns base, or base with the lowest numeric suffix making
// it unique.
func (al *AccountList) NewNameFor(base string) string {
	if al.Find(base) == nil {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if al.Find(name) == nil {
			return name
		}
	}
}

// Contains reports whether a is in the list (by identity).
func (al *AccountList) Contains(a *Account) bool {
	for _, existing := range al.accounts {
		if existing == a {
			return true
		}
	}
	return false
}

// Remove drops the account and its cooked entries. Removing an account not
// in the list is a no-op.
func (al *AccountList) Remove(a *Account) {
	for i, existing := range al.accounts {
		if existing == a {
			al.accounts = append(al.accounts[:i], al.accounts[i+1:]...)
			delete(al.entries, a.ID)
			return
		}
	}
}

// All returns the accounts in insertion order. The returned slice is
// shared; callers must not mutate it.
func (al *AccountList) All() []*Account {
	return al.accounts
}

// Len returns the number of accounts.
func (al *AccountList) Len() int { return len(al.accounts) }

// Entries returns the cooked entry list for a, creating it empty on first
// use.
func (al *AccountList) Entries(a *Account) *EntryList {
	el, ok := al.entries[a.ID]
	if !ok {
		el = newEntryList(a, al.rates)
		al.entries[a.ID] = el
	}
	return el
}

// ClearEntries truncates every account's cooked entries at or after from.
// A zero from clears everything.
func (al *AccountList) ClearEntries(from date.Date) {
	for _, el := range al.entries {
		el.clear(from)
	}
}
