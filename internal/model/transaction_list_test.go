package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionList_Ordering(t *testing.T) {
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	tl := NewTransactionList()

	second := NewTransaction(day(2024, 3, 2), "second", "", checking, groceries, usd("1"))
	first := NewTransaction(day(2024, 3, 1), "first", "", checking, groceries, usd("1"))
	third := NewTransaction(day(2024, 3, 2), "third", "", checking, groceries, usd("1"))

	tl.Add(second, false)
	tl.Add(first, false)
	tl.Add(third, false)

	all := tl.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Description)
	assert.Equal(t, "second", all[1].Description)
	assert.Equal(t, "third", all[2].Description)
}

func TestTransactionList_MoveBefore(t *testing.T) {
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	tl := NewTransactionList()

	a := NewTransaction(day(2024, 3, 1), "a", "", checking, groceries, usd("1"))
	b := NewTransaction(day(2024, 3, 1), "b", "", checking, groceries, usd("1"))
	c := NewTransaction(day(2024, 3, 1), "c", "", checking, groceries, usd("1"))
	tl.Add(a, false)
	tl.Add(b, false)
	tl.Add(c, false)

	tl.MoveBefore(c, a)

	names := func() []string {
		var out []string
		for _, txn := range tl.All() {
			out = append(out, txn.Description)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a", "b"}, names())

	tl.MoveLast(c)
	assert.Equal(t, []string{"a", "b", "c"}, names())
}

func TestTransactionList_ReassignAccountDropsOrphans(t *testing.T) {
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	tl := NewTransactionList()

	both := NewTransaction(day(2024, 3, 1), "both", "", checking, groceries, usd("1"))
	only := NewTransaction(day(2024, 3, 2), "only", "", nil, groceries, usd("1"))
	tl.Add(both, false)
	tl.Add(only, false)

	tl.ReassignAccount(groceries, nil)

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, "both", tl.All()[0].Description)
	assert.True(t, both.Affects(checking))
}

func TestTransactionList_PayeesMostRecentFirst(t *testing.T) {
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	tl := NewTransactionList()

	older := NewTransaction(day(2024, 3, 1), "", "Alice", checking, groceries, usd("1"))
	older.MTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := NewTransaction(day(2024, 3, 2), "", "Bob", checking, groceries, usd("1"))
	newer.MTime = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	tl.Add(older, false)
	tl.Add(newer, false)

	assert.Equal(t, []string{"Bob", "Alice"}, tl.Payees())
	assert.Contains(t, tl.AccountNames(), "Checking")
	assert.Contains(t, tl.AccountNames(), "Groceries")
}

func TestTransactionList_CountAffecting(t *testing.T) {
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	tl := NewTransactionList()

	tl.Add(NewTransaction(day(2024, 3, 1), "", "", checking, groceries, usd("1")), false)
	tl.Add(NewTransaction(day(2024, 3, 2), "", "", nil, groceries, usd("1")), false)

	assert.Equal(t, 1, tl.CountAffecting(checking))
	assert.Equal(t, 2, tl.CountAffecting(groceries))
}
