package model

import (
	"sort"
	"time"

	"github.com/sebkoller/moneyguru/internal/date"
)

// TransactionList manages a document's real transactions in chronological
// order, with Position breaking same-day ties. It also keeps the
// auto-completion caches (payees, account names) derived from them.
type TransactionList struct {
	txns []*Transaction

	payees       []string
	accountNames []string
}

// NewTransactionList returns an empty list.
func NewTransactionList() *TransactionList {
	return &TransactionList{}
}

func (tl *TransactionList) sort() {
	sort.SliceStable(tl.txns, func(i, j int) bool {
		a, b := tl.txns[i], tl.txns[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Position < b.Position
	})
}

// Add inserts the transaction in (date, position) order. Unless
// keepPosition is set, the transaction is assigned the next free position
// on its date.
func (tl *TransactionList) Add(t *Transaction, keepPosition bool) {
	if !keepPosition {
		maxPos := 0
		for _, existing := range tl.AtDate(t.Date) {
			if existing.Position > maxPos {
				maxPos = existing.Position
			}
		}
		t.Position = maxPos + 1
	}
	tl.txns = append(tl.txns, t)
	tl.sort()
	tl.clearCache()
}

// Remove drops the transaction from the list.
func (tl *TransactionList) Remove(t *Transaction) {
	for i, existing := range tl.txns {
		if existing == t {
			tl.txns = append(tl.txns[:i], tl.txns[i+1:]...)
			tl.clearCache()
			return
		}
	}
}

// Contains reports whether t is in the list (by identity).
func (tl *TransactionList) Contains(t *Transaction) bool {
	for _, existing := range tl.txns {
		if existing == t {
			return true
		}
	}
	return false
}

// All returns the transactions in (date, position) order. The returned
// slice is shared; callers must not mutate it.
func (tl *TransactionList) All() []*Transaction {
	return tl.txns
}

// Len returns the number of transactions.
func (tl *TransactionList) Len() int { return len(tl.txns) }

// AtDate returns the transactions on day, in position order.
func (tl *TransactionList) AtDate(day date.Date) []*Transaction {
	var out []*Transaction
	for _, t := range tl.txns {
		if t.Date.Equal(day) {
			out = append(out, t)
		}
	}
	return out
}

// CountAffecting returns how many transactions reference a.
func (tl *TransactionList) CountAffecting(a *Account) int {
	n := 0
	for _, t := range tl.txns {
		if t.Affects(a) {
			n++
		}
	}
	return n
}

// ReassignAccount rewires every transaction referencing from to reference
// to instead; transactions left touching no account at all are removed.
func (tl *TransactionList) ReassignAccount(from, to *Account) {
	kept := tl.txns[:0]
	for _, t := range tl.txns {
		t.ReassignAccount(from, to)
		if len(t.AffectedAccounts()) > 0 {
			kept = append(kept, t)
		}
	}
	tl.txns = kept
	tl.clearCache()
}

// MoveBefore reorders from just before to, which must share its date; a
// nil to moves it last among its day. Recook after moving.
func (tl *TransactionList) MoveBefore(from, to *Transaction) {
	if !tl.Contains(from) {
		return
	}
	if to != nil && !to.Date.Equal(from.Date) {
		to = nil
	}
	sameDay := tl.AtDate(from.Date)
	rest := make([]*Transaction, 0, len(sameDay)-1)
	for _, t := range sameDay {
		if t != from {
			rest = append(rest, t)
		}
	}
	if len(rest) == 0 {
		return
	}
	var target int
	if to == nil {
		for _, t := range rest {
			if t.Position >= target {
				target = t.Position + 1
			}
		}
	} else {
		target = to.Position
	}
	from.Position = target
	for _, t := range rest {
		if t.Position >= target {
			t.Position++
		}
	}
	tl.sort()
}

// MoveLast moves the transaction after every other one sharing its date.
func (tl *TransactionList) MoveLast(t *Transaction) {
	tl.MoveBefore(t, nil)
}

// resort restores (date, position) order after dates or positions of
// member transactions were rewritten in place, as undo swaps do.
func (tl *TransactionList) resort() {
	tl.sort()
	tl.clearCache()
}

// Clear empties the list.
func (tl *TransactionList) Clear() {
	tl.txns = nil
	tl.clearCache()
}

func (tl *TransactionList) clearCache() {
	tl.payees = nil
	tl.accountNames = nil
}

// completionList returns unique values ordered by most recent use.
func completionList(pairs func(yield func(value string, mtime time.Time))) []string {
	latest := make(map[string]time.Time)
	pairs(func(value string, mtime time.Time) {
		if value == "" {
			return
		}
		if existing, ok := latest[value]; !ok || mtime.After(existing) {
			latest[value] = mtime
		}
	})
	out := make([]string, 0, len(latest))
	for value := range latest {
		out = append(out, value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := latest[out[i]], latest[out[j]]
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i] < out[j]
	})
	return out
}

// Payees returns the payees in use, most recently modified first.
func (tl *TransactionList) Payees() []string {
	if tl.payees == nil {
		tl.payees = completionList(func(yield func(string, time.Time)) {
			for _, t := range tl.txns {
				yield(t.Payee, t.MTime)
			}
		})
	}
	return tl.payees
}

// AccountNames returns the active account names in use, most recently
// modified first.
func (tl *TransactionList) AccountNames() []string {
	if tl.accountNames == nil {
		tl.accountNames = completionList(func(yield func(string, time.Time)) {
			for _, t := range tl.txns {
				for _, a := range t.AffectedAccounts() {
					if !a.Inactive {
						yield(a.Name, t.MTime)
					}
				}
			}
		})
	}
	return tl.accountNames
}
