package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebkoller/moneyguru/internal/date"
)

type ovenFixture struct {
	accounts     *AccountList
	transactions *TransactionList
	schedules    *ScheduleList
	budgets      *BudgetList
	oven         *Oven

	checking  *Account
	groceries *Account
}

func newOvenFixture(t *testing.T) *ovenFixture {
	t.Helper()
	f := &ovenFixture{
		accounts:     NewAccountList("USD", nil),
		transactions: NewTransactionList(),
		schedules:    NewScheduleList(),
		budgets:      fixedBudgets(day(2024, 1, 1), day(2024, 1, 1)),
	}
	f.oven = NewOven(f.accounts, f.transactions, f.schedules, f.budgets, nil)
	f.checking = NewAccount("Checking", Asset, "USD")
	f.groceries = NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(f.checking))
	require.NoError(t, f.accounts.Add(f.groceries))
	return f
}

func (f *ovenFixture) spend(d date.Date, amount Amount) *Transaction {
	txn := NewTransaction(d, "", "", f.checking, f.groceries, amount)
	f.transactions.Add(txn, false)
	return txn
}

func TestOven_RunningBalances(t *testing.T) {
	f := newOvenFixture(t)
	f.spend(day(2024, 1, 5), usd("30"))
	f.spend(day(2024, 1, 10), usd("20"))

	f.oven.Cook(date.Date{}, day(2024, 12, 31))

	entries := f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Balance.Equal(usd("-30")))
	assert.True(t, entries[1].Balance.Equal(usd("-50")))

	assert.True(t, f.accounts.Entries(f.groceries).Balance(day(2024, 1, 31), "USD", false).Equal(usd("50")))
}

func TestOven_CookIsIdempotent(t *testing.T) {
	f := newOvenFixture(t)
	f.spend(day(2024, 1, 5), usd("30"))

	f.oven.Cook(date.Date{}, day(2024, 12, 31))
	f.oven.Cook(date.Date{}, day(2024, 12, 31))

	entries := f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Balance.Equal(usd("-30")))
}

func TestOven_IncrementalCookMatchesFullCook(t *testing.T) {
	f := newOvenFixture(t)
	ref := NewTransaction(day(2024, 1, 15), "rent", "", f.checking, f.groceries, usd("800"))
	f.schedules.Add(NewRecurrence(ref, date.RepeatMonthly, 1))
	f.spend(day(2024, 2, 1), usd("25"))

	f.oven.Cook(date.Date{}, day(2024, 3, 31))
	f.oven.ContinueCooking(day(2024, 6, 30))

	incremental := f.accounts.Entries(f.checking).All()

	g := newOvenFixture(t)
	ref2 := NewTransaction(day(2024, 1, 15), "rent", "", g.checking, g.groceries, usd("800"))
	g.schedules.Add(NewRecurrence(ref2, date.RepeatMonthly, 1))
	g.spend(day(2024, 2, 1), usd("25"))
	g.oven.Cook(date.Date{}, day(2024, 6, 30))

	full := g.accounts.Entries(g.checking).All()

	require.Equal(t, len(full), len(incremental))
	for i := range full {
		assert.True(t, full[i].Date().Equal(incremental[i].Date()), "entry %d date", i)
		assert.True(t, full[i].Balance.Equal(incremental[i].Balance), "entry %d balance", i)
	}
}

func TestOven_ContinueCookingIsNoOpWithinHorizon(t *testing.T) {
	f := newOvenFixture(t)
	f.spend(day(2024, 1, 5), usd("30"))
	f.oven.Cook(date.Date{}, day(2024, 6, 30))

	f.spend(day(2024, 2, 1), usd("10"))
	f.oven.ContinueCooking(day(2024, 3, 31))

	// the horizon already covered March; nothing was recooked
	entries := f.accounts.Entries(f.checking).All()
	assert.Len(t, entries, 1)
	assert.True(t, f.oven.CookedUntil().Equal(day(2024, 6, 30)))
}

func TestOven_RealTransactionsSortBeforeSpawns(t *testing.T) {
	f := newOvenFixture(t)
	ref := NewTransaction(day(2024, 1, 15), "rent", "", f.checking, f.groceries, usd("800"))
	f.schedules.Add(NewRecurrence(ref, date.RepeatMonthly, 1))
	f.spend(day(2024, 1, 15), usd("30"))

	f.oven.Cook(date.Date{}, day(2024, 1, 31))

	entries := f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].IsSpawned())
	assert.True(t, entries[1].IsSpawned())
}

func TestOven_BudgetSpawnsOnlyMoveBudgetedBalance(t *testing.T) {
	f := newOvenFixture(t)
	f.budgets.Add(NewBudget(f.groceries, usd("100")))
	f.spend(day(2024, 1, 5), usd("30"))

	f.oven.Cook(date.Date{}, day(2024, 1, 31))

	entries := f.accounts.Entries(f.groceries).All()
	require.Len(t, entries, 2)
	budgetEntry := entries[1]
	require.True(t, budgetEntry.IsSpawned())
	assert.Equal(t, BudgetSpawn, budgetEntry.Spawn.Kind)
	// the plain balance ignores budget spawns, the budgeted one counts them
	assert.True(t, budgetEntry.Balance.Equal(usd("30")))
	assert.True(t, budgetEntry.BalanceWithBudget.Equal(usd("100")))
}

func TestOven_MaterializedSpawnStopsSpawning(t *testing.T) {
	f := newOvenFixture(t)
	ref := NewTransaction(day(2024, 1, 15), "rent", "", f.checking, f.groceries, usd("800"))
	r := NewRecurrence(ref, date.RepeatMonthly, 1)
	f.schedules.Add(r)

	f.oven.Cook(date.Date{}, day(2024, 2, 29))
	entries := f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 2)

	txn := r.Materialize(entries[1].Spawn)
	f.transactions.Add(txn, false)
	f.oven.Cook(date.Date{}, day(2024, 2, 29))

	entries = f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsSpawned())
	assert.False(t, entries[1].IsSpawned())
}

func TestEntryList_LastEntryAt(t *testing.T) {
	f := newOvenFixture(t)
	f.spend(day(2024, 1, 5), usd("30"))
	f.spend(day(2024, 1, 10), usd("20"))
	f.oven.Cook(date.Date{}, day(2024, 12, 31))

	el := f.accounts.Entries(f.checking)

	assert.Nil(t, el.LastEntryAt(day(2024, 1, 4)))
	assert.True(t, el.LastEntryAt(day(2024, 1, 7)).Balance.Equal(usd("-30")))
	assert.True(t, el.LastEntryAt(day(2024, 12, 31)).Balance.Equal(usd("-50")))
}

func TestEntryList_CashFlowExcludesBudgetSpawns(t *testing.T) {
	f := newOvenFixture(t)
	f.budgets.Add(NewBudget(f.groceries, usd("100")))
	f.spend(day(2024, 1, 5), usd("30"))
	f.oven.Cook(date.Date{}, day(2024, 1, 31))

	flow := f.accounts.Entries(f.groceries).CashFlow(date.NewRange(day(2024, 1, 1), day(2024, 1, 31)), "USD")
	assert.True(t, flow.Equal(usd("30")))

	// memoized result survives a second call
	again := f.accounts.Entries(f.groceries).CashFlow(date.NewRange(day(2024, 1, 1), day(2024, 1, 31)), "USD")
	assert.True(t, again.Equal(usd("30")))
}

func TestEntryList_ReconciledBalance(t *testing.T) {
	f := newOvenFixture(t)
	first := f.spend(day(2024, 1, 5), usd("30"))
	f.spend(day(2024, 1, 10), usd("20"))
	first.Splits[0].ReconciliationDate = day(2024, 1, 6)

	f.oven.Cook(date.Date{}, day(2024, 12, 31))

	entries := f.accounts.Entries(f.checking).All()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].ReconciledBalance.Equal(usd("-30")))
	// the unreconciled split doesn't advance the reconciled balance
	assert.True(t, entries[1].ReconciledBalance.Equal(usd("-30")))
}
