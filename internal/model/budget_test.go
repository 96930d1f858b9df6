package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebkoller/moneyguru/internal/date"
)

// fixedBudgets returns a monthly budget list frozen at the given today.
func fixedBudgets(start, today date.Date) *BudgetList {
	bl := NewBudgetList(nil)
	bl.StartDate = start
	bl.Today = func() date.Date { return today }
	return bl
}

func TestBudget_SpawnCarriesRemainingAmount(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	checking := NewAccount("Checking", Asset, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 10))
	bl.Add(NewBudget(groceries, usd("100")))

	spent := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("50"))
	spawns := bl.GetSpawns(day(2024, 1, 31), []*Transaction{spent})

	require.Len(t, spawns, 1)
	sp := spawns[0]
	assert.Equal(t, BudgetSpawn, sp.Kind)
	assert.True(t, sp.Date.Equal(day(2024, 1, 31)))
	assert.True(t, sp.RecurrenceDate.Equal(day(2024, 1, 1)))
	assert.True(t, sp.AmountForAccount(groceries, "USD", nil).Equal(usd("50")))
}

func TestBudget_OverspentPeriodYieldsNoSpawn(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	checking := NewAccount("Checking", Asset, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 10))
	bl.Add(NewBudget(groceries, usd("100")))

	spent := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("140"))
	spawns := bl.GetSpawns(day(2024, 1, 31), []*Transaction{spent})

	assert.Empty(t, spawns)
}

func TestBudget_PastPeriodsYieldNothing(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 3, 31))
	bl.Add(NewBudget(groceries, usd("100")))

	spawns := bl.GetSpawns(day(2024, 4, 30), nil)

	// January through March ended on or before today; only April remains
	require.Len(t, spawns, 1)
	assert.True(t, spawns[0].RecurrenceDate.Equal(day(2024, 4, 1)))
}

func TestBudget_TransactionConsumedByOneBudgetOnly(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	checking := NewAccount("Checking", Asset, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 10))
	bl.Add(NewBudget(groceries, usd("100")))
	bl.Add(NewBudget(groceries, usd("100")))

	spent := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("50"))
	spawns := bl.GetSpawns(day(2024, 1, 31), []*Transaction{spent})

	require.Len(t, spawns, 2)
	first := spawns[0].AmountForAccount(groceries, "USD", nil)
	second := spawns[1].AmountForAccount(groceries, "USD", nil)
	// the transaction reduces the first budget only
	assert.True(t, first.Equal(usd("50")), "first budget got %s", first)
	assert.True(t, second.Equal(usd("100")), "second budget got %s", second)
}

func TestBudget_IncomeBudgetFlipsSign(t *testing.T) {
	salary := NewAccount("Salary", Income, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 10))
	bl.Add(NewBudget(salary, usd("2000")))

	spawns := bl.GetSpawns(day(2024, 1, 31), nil)

	require.Len(t, spawns, 1)
	assert.True(t, spawns[0].AmountForAccount(salary, "USD", nil).Equal(usd("-2000")))
	assert.True(t, salary.NormalizeAmount(spawns[0].AmountForAccount(salary, "USD", nil)).Equal(usd("2000")))
}

func TestBudgetList_AmountForAccountProration(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2023, 12, 31))
	bl.Add(NewBudget(groceries, usd("100")))

	bl.GetSpawns(day(2024, 1, 31), nil)

	part := bl.AmountForAccount(groceries, date.NewRange(day(2024, 1, 10), day(2024, 1, 20)), "USD")
	require.False(t, part.IsZero())
	assert.Equal(t, "35.48", part.Value().Round(2).String())

	full := bl.AmountForAccount(groceries, date.NewRange(day(2024, 1, 1), day(2024, 1, 31)), "USD")
	assert.True(t, full.Equal(usd("100")))
}

func TestBudgetList_AmountForAccountIsForwardOnly(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 15))
	bl.Add(NewBudget(groceries, usd("100")))

	bl.GetSpawns(day(2024, 2, 29), nil)

	// a range starting today or earlier budgets nothing
	past := bl.AmountForAccount(groceries, date.NewRange(day(2024, 1, 10), day(2024, 1, 20)), "USD")
	assert.True(t, past.IsZero())

	future := bl.AmountForAccount(groceries, date.NewRange(day(2024, 2, 1), day(2024, 2, 29)), "USD")
	assert.True(t, future.Equal(usd("100")))
}

func TestBudgetList_OwnerOf(t *testing.T) {
	groceries := NewAccount("Groceries", Expense, "USD")
	bl := fixedBudgets(day(2024, 1, 1), day(2024, 1, 10))
	b := NewBudget(groceries, usd("100"))
	bl.Add(b)

	spawns := bl.GetSpawns(day(2024, 1, 31), nil)
	require.Len(t, spawns, 1)
	assert.Same(t, b, bl.OwnerOf(spawns[0]))
}
