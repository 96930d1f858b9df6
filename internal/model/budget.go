package model

import (
	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// Budget is a recurring allowance for one income or expense account. Each
// period yields a spawn worth the budgeted amount minus whatever real
// transactions already hit the account in that period, so the spawn is
// "what's left to spend". Periods wholly in the past yield nothing;
// budgets are forward looking only.
//
// Like schedule spawns, budget spawns carry a recurrence date at the start
// of their period, but their effective date is the period's last day:
// spawns are only cooked up to the horizon, and a start-dated spawn for
// the current period would fall before the horizon's view.
type Budget struct {
	ID      uuid.UUID
	Account *Account
	Amount  Amount
	Notes   string

	// previousSpawns are the spawns of the last GetSpawns call, kept for
	// pro-rated range queries.
	previousSpawns []*Spawn
}

// NewBudget returns a budget of amount per period for account.
func NewBudget(account *Account, amount Amount) *Budget {
	return &Budget{
		ID:      uuid.New(),
		Account: account,
		Amount:  amount,
	}
}

// Replicate returns a value snapshot sharing the budget's identity.
func (b *Budget) Replicate() *Budget {
	c := *b
	c.previousSpawns = nil
	return &c
}

// CopyFrom overwrites everything but identity with other's state.
func (b *Budget) CopyFrom(other *Budget) {
	id := b.ID
	*b = *other
	b.ID = id
	b.previousSpawns = nil
}

// spawnTransaction builds the template of one budget spawn: amount into
// the budgeted account, balanced by an unassigned split.
func (b *Budget) spawnTransaction(slot date.Date, amount Amount) *Transaction {
	t := &Transaction{
		ID:          b.ID,
		Date:        slot,
		Description: b.Account.Name,
		Splits: []*Split{
			{Account: b.Account, Amount: amount},
			{Amount: amount.Neg()},
		},
	}
	return t
}

// getSpawns generates this budget's spawns up to until. The repeat rule is
// shared by all budgets and passed in by the BudgetList.
//
// consumed is the cross-budget bookkeeping set: a transaction subtracted
// from one budget must not also reduce an overlapping one. Budgets are
// processed in list order, spawns in period order and transactions in
// (date, position) order, which makes the claim deterministic when two
// budgets compete for the same transaction.
func (b *Budget) getSpawns(start date.Date, rt date.RepeatType, every int, until date.Date,
	txns []*Transaction, consumed map[uuid.UUID]bool, today date.Date, rates *currency.RatesDB) []*Spawn {

	budgetAmount := b.Amount
	if !b.Account.Type.IsDebit() {
		budgetAmount = budgetAmount.Neg()
	}

	var spawns []*Spawn
	counter := date.NewCounter(start, rt, every, until.AddDays(1))
	for slot, ok := counter.Next(); ok; slot, ok = counter.Next() {
		periodEnd, ok := date.Inc(slot, rt, every)
		if !ok {
			continue
		}
		periodEnd = periodEnd.AddDays(-1)
		if !periodEnd.After(today) {
			// settled past; nothing left to budget
			continue
		}
		sp := newSpawn(b.spawnTransaction(slot, budgetAmount), BudgetSpawn, b.ID, slot, periodEnd)
		spawns = append(spawns, sp)
	}

	var relevant []*Transaction
	for _, t := range txns {
		if !consumed[t.ID] && t.Affects(b.Account) {
			relevant = append(relevant, t)
		}
	}
	for _, sp := range spawns {
		period := date.NewRange(sp.RecurrenceDate, sp.Date)
		var spent Amount
		remaining := relevant[:0]
		for _, t := range relevant {
			if period.Contains(t.Date) {
				spent = spent.Add(t.AmountForAccount(b.Account, budgetAmount.Currency(), rates))
				consumed[t.ID] = true
			} else {
				remaining = append(remaining, t)
			}
		}
		relevant = remaining

		var left Amount
		if spent.Abs().Cmp(budgetAmount.Abs()) < 0 {
			left = budgetAmount.Sub(spent)
		}
		sp.Splits[0].Amount = left
		sp.Splits[1].Amount = left.Neg()
	}
	b.previousSpawns = spawns
	return spawns
}

// AmountForDateRange returns the pro-rated remaining budgeted amount for
// r, in currencyCode. GetSpawns must already have covered r; the sums come
// from the previously generated spawns.
func (b *Budget) AmountForDateRange(r date.Range, currencyCode string, today date.Date, rates *currency.RatesDB) Amount {
	var total Amount
	for _, sp := range b.previousSpawns {
		amount := sp.AmountForAccount(b.Account, currencyCode, rates)
		if amount.IsZero() {
			continue
		}
		// only the not-yet-elapsed part of the period carries budget
		start := date.Max(sp.RecurrenceDate, today.AddDays(1))
		spread := date.NewRange(start, sp.Date)
		total = total.Add(Prorate(amount, spread, r))
	}
	return total
}

// BudgetList manages the document's budgets. All budgets share one repeat
// rule (start date, repeat type, step), the way a household budget rolls
// over as a whole.
//
// Today is injected so forward-looking generation is testable; it defaults
// to the wall clock.
type BudgetList struct {
	budgets     []*Budget
	StartDate   date.Date
	RepeatType  date.RepeatType
	RepeatEvery int
	Today       func() date.Date

	rates *currency.RatesDB
}

// NewBudgetList returns an empty, monthly budget list starting today.
func NewBudgetList(rates *currency.RatesDB) *BudgetList {
	return &BudgetList{
		StartDate:   date.Today(),
		RepeatType:  date.RepeatMonthly,
		RepeatEvery: 1,
		Today:       date.Today,
		rates:       rates,
	}
}

// Add appends a budget.
func (bl *BudgetList) Add(b *Budget) {
	bl.budgets = append(bl.budgets, b)
}

// Remove drops a budget.
func (bl *BudgetList) Remove(b *Budget) {
	for i, existing := range bl.budgets {
		if existing == b {
			bl.budgets = append(bl.budgets[:i], bl.budgets[i+1:]...)
			return
		}
	}
}

// All returns the budgets in order. The slice is shared; callers must not
// mutate it.
func (bl *BudgetList) All() []*Budget { return bl.budgets }

// Len returns the number of budgets.
func (bl *BudgetList) Len() int { return len(bl.budgets) }

// OwnerOf returns the budget that generated sp, nil when none does.
func (bl *BudgetList) OwnerOf(sp *Spawn) *Budget {
	for _, b := range bl.budgets {
		if sp.RecurrenceID == b.ID {
			return b
		}
	}
	return nil
}

// GetSpawns generates the spawns of every budget up to until, consuming
// txns so that no transaction reduces two overlapping budgets on the same
// account. Spawns whose remaining amount is zero are filtered out.
func (bl *BudgetList) GetSpawns(until date.Date, txns []*Transaction) []*Spawn {
	if len(bl.budgets) == 0 {
		return nil
	}
	today := bl.Today()
	consumedByAccount := make(map[uuid.UUID]map[uuid.UUID]bool)
	var result []*Spawn
	for _, b := range bl.budgets {
		if b.Amount.IsZero() {
			continue
		}
		consumed := consumedByAccount[b.Account.ID]
		if consumed == nil {
			consumed = make(map[uuid.UUID]bool)
			consumedByAccount[b.Account.ID] = consumed
		}
		spawns := b.getSpawns(bl.StartDate, bl.RepeatType, bl.RepeatEvery, until, txns, consumed, today, bl.rates)
		for _, sp := range spawns {
			if !sp.Splits[0].Amount.IsZero() {
				result = append(result, sp)
			}
		}
	}
	return result
}

// AmountForAccount sums the pro-rated remaining budgeted amount of every
// budget on account over r. Zero for ranges that don't start in the
// future. An empty currencyCode defaults to the account's currency.
func (bl *BudgetList) AmountForAccount(account *Account, r date.Range, currencyCode string) Amount {
	today := bl.Today()
	if !r.Start.After(today) {
		return Amount{}
	}
	if currencyCode == "" {
		currencyCode = account.Currency
	}
	var total Amount
	for _, b := range bl.budgets {
		if b.Account.ID != account.ID || b.Amount.IsZero() {
			continue
		}
		total = total.Add(b.AmountForDateRange(r, currencyCode, today, bl.rates))
	}
	return total
}

// NormalAmountForAccount is AmountForAccount normalized to the account's
// point of view (credit accounts flip sign).
func (bl *BudgetList) NormalAmountForAccount(account *Account, r date.Range, currencyCode string) Amount {
	return account.NormalizeAmount(bl.AmountForAccount(account, r, currencyCode))
}
