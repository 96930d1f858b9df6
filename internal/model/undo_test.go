package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebkoller/moneyguru/internal/date"
)

type undoFixture struct {
	accounts     *AccountList
	transactions *TransactionList
	schedules    *ScheduleList
	budgets      *BudgetList
	undoer       *Undoer
}

func newUndoFixture() *undoFixture {
	f := &undoFixture{
		accounts:     NewAccountList("USD", nil),
		transactions: NewTransactionList(),
		schedules:    NewScheduleList(),
		budgets:      fixedBudgets(day(2024, 1, 1), day(2024, 1, 1)),
	}
	f.undoer = NewUndoer(f.accounts, f.transactions, f.schedules, f.budgets)
	return f
}

// addTxn performs an add-transaction command through the undoer.
func (f *undoFixture) addTxn(txn *Transaction) {
	a := NewAction("Add transaction")
	a.AddedTransactions = append(a.AddedTransactions, txn)
	f.undoer.Record(a)
	f.transactions.Add(txn, false)
}

func TestUndoer_UndoRedoAdd(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	require.NoError(t, f.accounts.Add(checking))
	txn := NewTransaction(day(2024, 1, 5), "", "", checking, nil, usd("30"))
	f.addTxn(txn)

	require.True(t, f.undoer.CanUndo())
	assert.Equal(t, "Add transaction", f.undoer.UndoDescription())

	f.undoer.Undo()
	assert.Equal(t, 0, f.transactions.Len())
	assert.False(t, f.undoer.CanUndo())
	require.True(t, f.undoer.CanRedo())

	f.undoer.Redo()
	assert.Equal(t, 1, f.transactions.Len())
	assert.True(t, f.transactions.Contains(txn))
}

func TestUndoer_UndoRestoresChangedState(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(checking))
	require.NoError(t, f.accounts.Add(groceries))
	txn := NewTransaction(day(2024, 1, 5), "food", "", checking, groceries, usd("30"))
	f.transactions.Add(txn, false)

	a := NewAction("Change transaction")
	a.ChangeTransaction(txn)
	f.undoer.Record(a)
	newAmount := usd("99")
	txn.Apply(TransactionEdit{Amount: &newAmount})

	f.undoer.Undo()
	assert.True(t, txn.AmountForAccount(groceries, "USD", nil).Equal(usd("30")))

	f.undoer.Redo()
	assert.True(t, txn.AmountForAccount(groceries, "USD", nil).Equal(usd("99")))
}

func TestUndoer_RepeatedUndoRedoIsSymmetric(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(checking))
	require.NoError(t, f.accounts.Add(groceries))
	txn := NewTransaction(day(2024, 1, 5), "food", "", checking, groceries, usd("30"))
	f.transactions.Add(txn, false)

	a := NewAction("Change transaction")
	a.ChangeTransaction(txn)
	f.undoer.Record(a)
	newAmount := usd("99")
	txn.Apply(TransactionEdit{Amount: &newAmount})

	for i := 0; i < 3; i++ {
		f.undoer.Undo()
		require.True(t, txn.AmountForAccount(groceries, "USD", nil).Equal(usd("30")), "iteration %d", i)
		f.undoer.Redo()
		require.True(t, txn.AmountForAccount(groceries, "USD", nil).Equal(usd("99")), "iteration %d", i)
	}
}

func TestUndoer_RecordDiscardsUndoneTail(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	require.NoError(t, f.accounts.Add(checking))

	first := NewTransaction(day(2024, 1, 5), "first", "", checking, nil, usd("1"))
	second := NewTransaction(day(2024, 1, 6), "second", "", checking, nil, usd("2"))
	f.addTxn(first)
	f.addTxn(second)

	f.undoer.Undo()
	third := NewTransaction(day(2024, 1, 7), "third", "", checking, nil, usd("3"))
	f.addTxn(third)

	assert.False(t, f.undoer.CanRedo())
	assert.Equal(t, 2, f.transactions.Len())
	assert.False(t, f.transactions.Contains(second))
}

func TestUndoer_AutoCreatedAccountGC(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	require.NoError(t, f.accounts.Add(checking))

	groceries := f.accounts.FindOrCreate("Groceries", Expense)
	require.True(t, groceries.AutoCreated)
	txn := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("30"))
	f.addTxn(txn)

	// undoing the only transaction referencing the auto-created account
	// garbage-collects the account too
	f.undoer.Undo()
	assert.False(t, f.accounts.Contains(groceries))

	// redo brings it back
	f.undoer.Redo()
	assert.True(t, f.accounts.Contains(groceries))
	assert.Same(t, groceries, txn.Splits[1].Account)
}

func TestUndoer_AutoCreatedAccountRebindsToSurvivor(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	require.NoError(t, f.accounts.Add(checking))

	groceries := f.accounts.FindOrCreate("Groceries", Expense)
	txn := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("30"))
	f.addTxn(txn)

	f.undoer.Undo()
	require.False(t, f.accounts.Contains(groceries))

	// a same-named account appears while the transaction is undone
	replacement := NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(replacement))

	f.undoer.Redo()
	assert.Same(t, replacement, txn.Splits[1].Account)
}

func TestUndoer_ManuallyCreatedAccountSurvivesGC(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(checking))
	require.NoError(t, f.accounts.Add(groceries))

	txn := NewTransaction(day(2024, 1, 5), "", "", checking, groceries, usd("30"))
	f.addTxn(txn)

	f.undoer.Undo()
	assert.True(t, f.accounts.Contains(groceries))
}

func TestUndoer_UngatedCallsPanic(t *testing.T) {
	f := newUndoFixture()
	assert.Panics(t, func() { f.undoer.Undo() })
	assert.Panics(t, func() { f.undoer.Redo() })
}

func TestUndoer_SavePointAndModified(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	require.NoError(t, f.accounts.Add(checking))

	assert.False(t, f.undoer.Modified())

	txn := NewTransaction(day(2024, 1, 5), "", "", checking, nil, usd("30"))
	f.addTxn(txn)
	assert.True(t, f.undoer.Modified())

	f.undoer.SetSavePoint()
	assert.False(t, f.undoer.Modified())

	f.undoer.Undo()
	assert.True(t, f.undoer.Modified())

	f.undoer.Redo()
	assert.False(t, f.undoer.Modified())
}

func TestUndoer_ScheduleAndBudgetRoundTrip(t *testing.T) {
	f := newUndoFixture()
	checking := NewAccount("Checking", Asset, "USD")
	groceries := NewAccount("Groceries", Expense, "USD")
	require.NoError(t, f.accounts.Add(checking))
	require.NoError(t, f.accounts.Add(groceries))

	r := newTestSchedule(day(2024, 1, 15), date.RepeatMonthly, 1)
	b := NewBudget(groceries, usd("100"))
	a := NewAction("Add schedule and budget")
	a.AddedSchedules = append(a.AddedSchedules, r)
	a.AddedBudgets = append(a.AddedBudgets, b)
	f.undoer.Record(a)
	f.schedules.Add(r)
	f.budgets.Add(b)

	f.undoer.Undo()
	assert.Equal(t, 0, f.schedules.Len())
	assert.Equal(t, 0, f.budgets.Len())

	f.undoer.Redo()
	assert.Equal(t, 1, f.schedules.Len())
	assert.Equal(t, 1, f.budgets.Len())
}
