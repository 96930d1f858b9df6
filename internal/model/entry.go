package model

import (
	"fmt"
	"sort"

	"github.com/sebkoller/moneyguru/internal/cache"
	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// Entry is a split seen from its account, with the running balances after
// it. Entries are derived state: the oven rebuilds them on every cook.
type Entry struct {
	Split *Split
	// Txn is the underlying transaction; for a spawned entry it is the
	// spawn's embedded transaction.
	Txn *Transaction
	// Spawn is nil for entries of real transactions.
	Spawn *Spawn

	// Balance is the running balance excluding budget spawns.
	Balance Amount
	// BalanceWithBudget additionally counts budget spawns.
	BalanceWithBudget Amount
	// ReconciledBalance only advances on reconciled splits.
	ReconciledBalance Amount
}

// Date returns the entry's effective date.
func (e *Entry) Date() date.Date { return e.Txn.Date }

// IsSpawned reports whether the entry comes from a schedule or budget
// rather than a real transaction.
func (e *Entry) IsSpawned() bool { return e.Spawn != nil }

// flowCacheSize bounds the per-account memo of cash flow sums; a handful
// of date ranges per view is typical.
const flowCacheSize = 64

// EntryList holds one account's cooked entries in (date, position) order
// and memoizes cash flow sums per (range, currency).
type EntryList struct {
	account   *Account
	entries   []*Entry
	rates     *currency.RatesDB
	flowCache *cache.LRU[Amount]
}

func newEntryList(account *Account, rates *currency.RatesDB) *EntryList {
	return &EntryList{
		account:   account,
		rates:     rates,
		flowCache: cache.NewLRU[Amount](flowCacheSize),
	}
}

// Account returns the account the entries belong to.
func (el *EntryList) Account() *Account { return el.account }

// All returns the entries in order. The slice is shared; callers must not
// mutate it.
func (el *EntryList) All() []*Entry { return el.entries }

// Len returns the number of entries.
func (el *EntryList) Len() int { return len(el.entries) }

// add appends an entry, which must be in (date, position) order relative
// to the existing ones, and assigns its running balances.
func (el *EntryList) add(e *Entry) {
	var prev Entry
	if n := len(el.entries); n > 0 {
		prev = *el.entries[n-1]
	}
	amount := Convert(e.Split.Amount, el.account.Currency, e.Txn.Date, el.rates)
	if e.Spawn != nil && e.Spawn.Kind == BudgetSpawn {
		e.Balance = prev.Balance
	} else {
		e.Balance = prev.Balance.Add(amount)
	}
	e.BalanceWithBudget = prev.BalanceWithBudget.Add(amount)
	if !e.Split.ReconciliationDate.IsZero() {
		e.ReconciledBalance = prev.ReconciledBalance.Add(amount)
	} else {
		e.ReconciledBalance = prev.ReconciledBalance
	}
	el.entries = append(el.entries, e)
}

// clear truncates entries at or after from (all of them when from is
// zero) and drops the memoized sums.
func (el *EntryList) clear(from date.Date) {
	if from.IsZero() {
		el.entries = nil
	} else {
		i := sort.Search(len(el.entries), func(i int) bool {
			return !el.entries[i].Date().Before(from)
		})
		el.entries = el.entries[:i]
	}
	el.flowCache.Clear()
}

// LastEntryAt returns the last entry dated at or before day, nil when
// there is none.
func (el *EntryList) LastEntryAt(day date.Date) *Entry {
	i := sort.Search(len(el.entries), func(i int) bool {
		return el.entries[i].Date().After(day)
	})
	if i == 0 {
		return nil
	}
	return el.entries[i-1]
}

// Balance returns the account balance at the end of day, expressed in
// currencyCode. withBudget selects the balance variant that counts budget
// spawns.
func (el *EntryList) Balance(day date.Date, currencyCode string, withBudget bool) Amount {
	e := el.LastEntryAt(day)
	if e == nil {
		return Amount{}
	}
	balance := e.Balance
	if withBudget {
		balance = e.BalanceWithBudget
	}
	return Convert(balance, currencyCode, day, el.rates)
}

// CashFlow returns the sum of entry amounts within r, in currencyCode,
// excluding budget spawns. Results are memoized until the next recook.
func (el *EntryList) CashFlow(r date.Range, currencyCode string) Amount {
	key := fmt.Sprintf("%s|%s|%s", r.Start, r.End, currencyCode)
	if cached, ok := el.flowCache.Get(key); ok {
		return cached
	}
	var total Amount
	for _, e := range el.entries {
		if e.Spawn != nil && e.Spawn.Kind == BudgetSpawn {
			continue
		}
		if !r.Contains(e.Date()) {
			continue
		}
		total = total.Add(Convert(e.Split.Amount, currencyCode, e.Date(), el.rates))
	}
	el.flowCache.Set(key, total)
	return total
}
