package model

import (
	"log/slog"
	"sort"

	"github.com/sebkoller/moneyguru/internal/date"
)

// Oven derives all per-account entry lists by merging real transactions
// with freshly generated schedule and budget spawns, up to a date horizon.
// It is the single entry point everything above the model reads from.
//
// Cooking is deterministic and idempotent: the same inputs and horizon
// always produce the same entries and balances, and a cook never raises
// for business conditions; invalid input is rejected upstream at the
// command boundary.
type Oven struct {
	accounts     *AccountList
	transactions *TransactionList
	schedules    *ScheduleList
	budgets      *BudgetList
	logger       *slog.Logger

	cookedUntil date.Date
}

// NewOven wires the oven to the entity lists it derives entries from.
func NewOven(accounts *AccountList, transactions *TransactionList, schedules *ScheduleList, budgets *BudgetList, logger *slog.Logger) *Oven {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oven{
		accounts:     accounts,
		transactions: transactions,
		schedules:    schedules,
		budgets:      budgets,
		logger:       logger,
	}
}

// CookedUntil returns the current horizon; zero before the first cook.
func (o *Oven) CookedUntil() date.Date { return o.cookedUntil }

// cookItem pairs an entry source with its sort rank. Real transactions
// come before spawns on the same date; within each class the incoming
// order (position for reals, generation order for spawns) is preserved by
// the stable sort.
type cookItem struct {
	txn   *Transaction
	spawn *Spawn
}

func (ci cookItem) date() date.Date {
	if ci.spawn != nil {
		return ci.spawn.Date
	}
	return ci.txn.Date
}

func (ci cookItem) spawned() bool { return ci.spawn != nil }

// Cook re-derives every account's entries between from and until, both
// inclusive. A zero from recooks everything; entries strictly before from
// are left untouched, which is what makes partial recooks cheap. until
// must not be zero.
func (o *Oven) Cook(from, until date.Date) {
	o.accounts.ClearEntries(from)

	var items []cookItem
	for _, t := range o.transactions.All() {
		items = append(items, cookItem{txn: t})
	}
	for _, r := range o.schedules.All() {
		for _, sp := range r.GetSpawns(until) {
			items = append(items, cookItem{spawn: sp})
		}
	}
	for _, sp := range o.budgets.GetSpawns(until, o.transactions.All()) {
		items = append(items, cookItem{spawn: sp})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.date().Equal(b.date()) {
			return a.date().Before(b.date())
		}
		return !a.spawned() && b.spawned()
	})

	window := date.NewRange(from, until)
	added := 0
	for _, item := range items {
		d := item.date()
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if d.After(until) {
			continue
		}
		txn := item.txn
		if item.spawn != nil {
			txn = &item.spawn.Transaction
		}
		for _, split := range txn.Splits {
			if split.Account == nil {
				continue
			}
			el := o.accounts.Entries(split.Account)
			el.add(&Entry{Split: split, Txn: txn, Spawn: item.spawn})
			added++
		}
	}
	o.cookedUntil = until
	o.logger.Debug("cooked", "window", window.String(), "entries", added)
}

// ContinueCooking extends the horizon to until. When the horizon already
// covers it this is a no-op, which is what lets a widening view avoid a
// full recook.
func (o *Oven) ContinueCooking(until date.Date) {
	if !until.After(o.cookedUntil) {
		return
	}
	from := date.Date{}
	if !o.cookedUntil.IsZero() {
		from = o.cookedUntil.AddDays(1)
	}
	o.Cook(from, until)
}
