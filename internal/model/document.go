package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// Command-boundary validation errors. Invalid configuration is rejected
// here, before any Action is recorded; the engines below never see it.
var (
	ErrInvalidRepeatEvery = errors.New("repeat interval must be at least 1")
	ErrInvalidRepeatType  = errors.New("unknown repeat type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrNotBudgetable      = errors.New("budgets require an income or expense account")
	ErrZeroBudget         = errors.New("budget amount cannot be zero")
	ErrSpawnNotFound      = errors.New("spawn does not belong to any schedule")
)

// ScheduleScope says whether an edit to a spawn applies to that occurrence
// only or to it and all later ones. The UI asks the user; by the time a
// command runs the answer is already in hand, so a cancelled prompt simply
// never reaches the document.
type ScheduleScope int

const (
	ScopeLocal ScheduleScope = iota
	ScopeGlobal
)

// Document owns the whole entity graph of one open file and is the only
// mutation path into it. Every command records an Action first, mutates,
// then recooks from the earliest affected date.
type Document struct {
	Accounts     *AccountList
	Transactions *TransactionList
	Schedules    *ScheduleList
	Budgets      *BudgetList

	oven   *Oven
	undoer *Undoer
	rates  *currency.RatesDB
	logger *slog.Logger

	// horizon is the date cooking extends to; widening the visible range
	// moves it forward.
	horizon date.Date
}

// NewDocument returns an empty document. rates may be nil when no foreign
// currency is in play.
func NewDocument(defaultCurrency string, rates *currency.RatesDB, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	accounts := NewAccountList(defaultCurrency, rates)
	transactions := NewTransactionList()
	schedules := NewScheduleList()
	budgets := NewBudgetList(rates)
	d := &Document{
		Accounts:     accounts,
		Transactions: transactions,
		Schedules:    schedules,
		Budgets:      budgets,
		oven:         NewOven(accounts, transactions, schedules, budgets, logger),
		undoer:       NewUndoer(accounts, transactions, schedules, budgets),
		rates:        rates,
		logger:       logger,
	}
	return d
}

// Oven exposes the cooking entry points to outer layers.
func (d *Document) Oven() *Oven { return d.oven }

// Undoer exposes the undo state to outer layers.
func (d *Document) Undoer() *Undoer { return d.undoer }

// CookUntil widens the horizon to until and extends the cooked entries,
// recooking nothing that is already covered.
func (d *Document) CookUntil(until date.Date) {
	if until.After(d.horizon) {
		d.horizon = until
	}
	d.oven.ContinueCooking(d.horizon)
}

// cook re-derives entries from the earliest affected date to the horizon.
// Nothing is derived before the first CookUntil establishes one.
func (d *Document) cook(from date.Date) {
	if d.horizon.IsZero() {
		return
	}
	d.oven.Cook(from, d.horizon)
}

// Recook rebuilds all derived entries from scratch.
func (d *Document) Recook() {
	d.cook(date.Date{})
}

// RefreshRates asks the rate fetcher to cover the cooked span for the
// given currencies. Fetching is concurrent and failure-tolerant; see
// currency.RatesDB.
func (d *Document) RefreshRates(ctx context.Context, codes []string) {
	if d.rates == nil {
		return
	}
	var start date.Date
	for _, t := range d.Transactions.All() {
		start = date.Min(start, t.Date)
	}
	if start.IsZero() {
		return
	}
	d.rates.EnsureRates(ctx, date.NewRange(start, d.horizon), codes)
}

// --- Accounts

// NewAccount creates and records an account with a unique name derived
// from name.
func (d *Document) NewAccount(name string, t AccountType) (*Account, error) {
	account := NewAccount(d.Accounts.NewNameFor(name), t, d.Accounts.DefaultCurrency())
	action := NewAction("Add account")
	action.AddedAccounts = append(action.AddedAccounts, account)
	d.undoer.Record(action)
	if err := d.Accounts.Add(account); err != nil {
		return nil, err
	}
	return account, nil
}

// ChangeAccount renames or reconfigures an account.
func (d *Document) ChangeAccount(account *Account, name string, t AccountType, currencyCode string) error {
	if !t.IsValid() {
		return fmt.Errorf("change account: invalid type %q", t)
	}
	if existing := d.Accounts.Find(name); existing != nil && existing != account {
		return fmt.Errorf("change account: %w: %s", ErrDuplicateAccountName, name)
	}
	action := NewAction("Change account")
	action.ChangeAccount(account)
	d.undoer.Record(action)
	account.Name = name
	account.Type = t
	if currencyCode != "" {
		account.Currency = currencyCode
	}
	d.Recook()
	return nil
}

// DeleteAccount removes an account, reassigning its transactions to
// reassignTo (nil leaves their splits unassigned; transactions left with
// no account at all are deleted).
func (d *Document) DeleteAccount(account *Account, reassignTo *Account) {
	action := NewAction("Remove account")
	action.DeletedAccounts = append(action.DeletedAccounts, account)
	for _, t := range d.Transactions.All() {
		if !t.Affects(account) {
			continue
		}
		if reassignTo == nil && len(t.AffectedAccounts()) == 1 {
			action.DeletedTransactions = append(action.DeletedTransactions, t)
		} else {
			action.ChangeTransaction(t)
		}
	}
	d.undoer.Record(action)
	for _, t := range action.DeletedTransactions {
		d.Transactions.Remove(t)
	}
	for t := range action.ChangedTransactions {
		t.ReassignAccount(account, reassignTo)
	}
	d.Accounts.Remove(account)
	d.Recook()
}

// --- Transactions

// bindAccounts rewires the transaction's splits onto this document's
// accounts, auto-creating unknown ones by name.
func (d *Document) bindAccounts(t *Transaction, preferredType AccountType) {
	for _, split := range t.Splits {
		if split.Account == nil || d.Accounts.Contains(split.Account) {
			continue
		}
		split.Account = d.Accounts.FindOrCreate(split.Account.Name, preferredType)
	}
}

// AddTransaction records and inserts a transaction. Splits naming unknown
// accounts auto-create them.
func (d *Document) AddTransaction(t *Transaction) error {
	if t.Date.IsZero() {
		return fmt.Errorf("add transaction: %w", ErrInvalidDate)
	}
	t.Balance()
	t.assertBalanced()
	action := NewAction("Add transaction")
	action.AddedTransactions = append(action.AddedTransactions, t)
	d.undoer.Record(action)
	d.bindAccounts(t, Expense)
	d.Transactions.Add(t, false)
	d.cook(t.Date)
	return nil
}

// ChangeTransaction applies an edit to a real transaction.
func (d *Document) ChangeTransaction(t *Transaction, edit TransactionEdit) error {
	if edit.Date != nil && edit.Date.IsZero() {
		return fmt.Errorf("change transaction: %w", ErrInvalidDate)
	}
	action := NewAction("Change transaction")
	action.ChangeTransaction(t)
	d.undoer.Record(action)
	minDate := t.Date
	t.Apply(edit)
	d.bindAccounts(t, Expense)
	d.Transactions.Remove(t)
	d.Transactions.Add(t, edit.Date == nil)
	d.cook(date.Min(minDate, t.Date))
	return nil
}

// DeleteTransactions removes real transactions from the document.
func (d *Document) DeleteTransactions(txns []*Transaction) {
	if len(txns) == 0 {
		return
	}
	action := NewAction("Remove transaction")
	action.DeletedTransactions = append(action.DeletedTransactions, txns...)
	d.undoer.Record(action)
	minDate := txns[0].Date
	for _, t := range txns {
		minDate = date.Min(minDate, t.Date)
		d.Transactions.Remove(t)
	}
	d.cook(minDate)
}

// DuplicateTransactions inserts independent copies of txns.
func (d *Document) DuplicateTransactions(txns []*Transaction) []*Transaction {
	if len(txns) == 0 {
		return nil
	}
	action := NewAction("Duplicate transactions")
	duplicated := make([]*Transaction, len(txns))
	minDate := txns[0].Date
	for i, t := range txns {
		duplicated[i] = t.Duplicate()
		minDate = date.Min(minDate, t.Date)
	}
	action.AddedTransactions = append(action.AddedTransactions, duplicated...)
	d.undoer.Record(action)
	for _, t := range duplicated {
		d.Transactions.Add(t, false)
	}
	d.cook(minDate)
	return duplicated
}

// CanMoveTransactions reports whether txns can be reordered between
// before and after: all on one date, spawns excluded, and that date
// bordered by before or after.
func (d *Document) CanMoveTransactions(txns []*Transaction, before, after *Transaction) bool {
	if len(txns) == 0 {
		return false
	}
	day := txns[0].Date
	for _, t := range txns {
		if !t.Date.Equal(day) {
			return false
		}
	}
	return (before != nil && before.Date.Equal(day)) || (after != nil && after.Date.Equal(day))
}

// MoveTransactions reorders txns right before target (nil = last of
// their day).
func (d *Document) MoveTransactions(txns []*Transaction, target *Transaction) {
	if len(txns) == 0 {
		return
	}
	day := txns[0].Date
	action := NewAction("Move transaction")
	for _, t := range txns {
		action.ChangeTransaction(t)
	}
	for _, t := range d.Transactions.AtDate(day) {
		action.ChangeTransaction(t)
	}
	d.undoer.Record(action)
	for _, t := range txns {
		d.Transactions.MoveBefore(t, target)
	}
	d.cook(day)
}

// --- Spawns

// ChangeSpawn applies an edit to one schedule occurrence. With ScopeLocal
// the edit becomes an exception for that slot; with ScopeGlobal it
// becomes the template for that slot and all later ones.
func (d *Document) ChangeSpawn(sp *Spawn, edit TransactionEdit, scope ScheduleScope) error {
	schedule := d.Schedules.OwnerOf(sp)
	if schedule == nil {
		return ErrSpawnNotFound
	}
	action := NewAction("Change transaction")
	action.ChangeSchedule(schedule)
	d.undoer.Record(action)
	minDate := sp.Date
	sp.Apply(edit)
	d.bindAccounts(&sp.Transaction, Expense)
	if scope == ScopeGlobal {
		schedule.ChangeGlobally(sp)
	} else {
		schedule.SetException(sp)
	}
	d.cook(date.Min(minDate, sp.Date))
	return nil
}

// DeleteSpawn removes one occurrence (ScopeLocal) or this and all later
// occurrences (ScopeGlobal) from its schedule.
func (d *Document) DeleteSpawn(sp *Spawn, scope ScheduleScope) error {
	schedule := d.Schedules.OwnerOf(sp)
	if schedule == nil {
		return ErrSpawnNotFound
	}
	action := NewAction("Remove transaction")
	action.ChangeSchedule(schedule)
	d.undoer.Record(action)
	if scope == ScopeGlobal {
		schedule.StopBefore(sp)
	} else {
		schedule.Delete(sp)
	}
	d.cook(date.Min(sp.RecurrenceDate, sp.Date))
	return nil
}

// MaterializeSpawn converts a schedule occurrence into a real,
// independently editable transaction.
func (d *Document) MaterializeSpawn(sp *Spawn) (*Transaction, error) {
	schedule := d.Schedules.OwnerOf(sp)
	if schedule == nil {
		return nil, ErrSpawnNotFound
	}
	action := NewAction("Materialize transaction")
	action.ChangeSchedule(schedule)
	materialized := schedule.Materialize(sp)
	action.AddedTransactions = append(action.AddedTransactions, materialized)
	d.undoer.Record(action)
	d.Transactions.Add(materialized, false)
	d.cook(date.Min(sp.RecurrenceDate, materialized.Date))
	return materialized, nil
}

// --- Schedules

func validateRepeat(repeatType date.RepeatType, repeatEvery int) error {
	if !repeatType.IsValid() {
		return ErrInvalidRepeatType
	}
	if repeatEvery < 1 {
		return ErrInvalidRepeatEvery
	}
	return nil
}

// AddSchedule records and inserts a recurring transaction schedule built
// from the given template.
func (d *Document) AddSchedule(ref *Transaction, repeatType date.RepeatType, repeatEvery int) (*Recurrence, error) {
	if err := validateRepeat(repeatType, repeatEvery); err != nil {
		return nil, fmt.Errorf("add schedule: %w", err)
	}
	if ref.Date.IsZero() {
		return nil, fmt.Errorf("add schedule: %w", ErrInvalidDate)
	}
	ref.Balance()
	ref.assertBalanced()
	d.bindAccounts(ref, Expense)
	schedule := NewRecurrence(ref, repeatType, repeatEvery)
	action := NewAction("Add schedule")
	action.AddedSchedules = append(action.AddedSchedules, schedule)
	d.undoer.Record(action)
	d.Schedules.Add(schedule)
	d.cook(ref.Date)
	return schedule, nil
}

// ScheduleEdit carries the fields of a change-schedule command; nil
// fields are left untouched.
type ScheduleEdit struct {
	RepeatType  *date.RepeatType
	RepeatEvery *int
	StopDate    *date.Date
	Ref         *TransactionEdit
}

// ChangeSchedule rewrites a schedule's rule and/or template. Changing the
// rule or the start date re-slots the schedule, which resets its
// exceptions and global changes.
func (d *Document) ChangeSchedule(schedule *Recurrence, edit ScheduleEdit) error {
	repeatType := schedule.RepeatType
	if edit.RepeatType != nil {
		repeatType = *edit.RepeatType
	}
	repeatEvery := schedule.RepeatEvery
	if edit.RepeatEvery != nil {
		repeatEvery = *edit.RepeatEvery
	}
	if err := validateRepeat(repeatType, repeatEvery); err != nil {
		return fmt.Errorf("change schedule: %w", err)
	}
	action := NewAction("Change schedule")
	action.ChangeSchedule(schedule)
	d.undoer.Record(action)
	minDate := schedule.Start()
	reslotted := repeatType != schedule.RepeatType || repeatEvery != schedule.RepeatEvery
	schedule.RepeatType = repeatType
	schedule.RepeatEvery = repeatEvery
	if edit.StopDate != nil {
		schedule.StopDate = *edit.StopDate
	}
	if edit.Ref != nil {
		if edit.Ref.Date != nil && !edit.Ref.Date.Equal(schedule.Start()) {
			reslotted = true
		}
		schedule.Ref.Apply(*edit.Ref)
		d.bindAccounts(schedule.Ref, Expense)
	}
	if reslotted {
		schedule.ResetExceptions()
	}
	d.cook(date.Min(minDate, schedule.Start()))
	return nil
}

// DeleteSchedule removes a schedule and all its future occurrences.
func (d *Document) DeleteSchedule(schedule *Recurrence) {
	action := NewAction("Remove schedule")
	action.DeletedSchedules = append(action.DeletedSchedules, schedule)
	d.undoer.Record(action)
	d.Schedules.Remove(schedule)
	d.cook(schedule.Start())
}

// --- Budgets

// AddBudget records and inserts a budget for an income or expense
// account.
func (d *Document) AddBudget(account *Account, amount Amount) (*Budget, error) {
	if account == nil || (account.Type != Income && account.Type != Expense) {
		return nil, fmt.Errorf("add budget: %w", ErrNotBudgetable)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("add budget: %w", ErrZeroBudget)
	}
	budget := NewBudget(account, amount)
	action := NewAction("Add budget")
	action.AddedBudgets = append(action.AddedBudgets, budget)
	d.undoer.Record(action)
	d.Budgets.Add(budget)
	d.Recook()
	return budget, nil
}

// ChangeBudget rewrites a budget's account, amount or notes.
func (d *Document) ChangeBudget(budget *Budget, account *Account, amount Amount, notes string) error {
	if account == nil || (account.Type != Income && account.Type != Expense) {
		return fmt.Errorf("change budget: %w", ErrNotBudgetable)
	}
	if amount.IsZero() {
		return fmt.Errorf("change budget: %w", ErrZeroBudget)
	}
	action := NewAction("Change budget")
	action.ChangeBudget(budget)
	d.undoer.Record(action)
	budget.Account = account
	budget.Amount = amount
	budget.Notes = notes
	d.Recook()
	return nil
}

// DeleteBudget removes a budget.
func (d *Document) DeleteBudget(budget *Budget) {
	action := NewAction("Remove budget")
	action.DeletedBudgets = append(action.DeletedBudgets, budget)
	d.undoer.Record(action)
	d.Budgets.Remove(budget)
	d.Recook()
}

// --- Undo plumbing

// CanUndo reports whether Undo has an action to revert.
func (d *Document) CanUndo() bool { return d.undoer.CanUndo() }

// CanRedo reports whether Redo has an action to reapply.
func (d *Document) CanRedo() bool { return d.undoer.CanRedo() }

// Undo reverts the last command and recooks. Gate with CanUndo.
func (d *Document) Undo() {
	d.undoer.Undo()
	d.Recook()
}

// Redo reapplies the last undone command and recooks. Gate with CanRedo.
func (d *Document) Redo() {
	d.undoer.Redo()
	d.Recook()
}

// Modified reports whether the document differs from its last save point.
func (d *Document) Modified() bool { return d.undoer.Modified() }

// SetSavePoint marks the current state as saved.
func (d *Document) SetSavePoint() { d.undoer.SetSavePoint() }

// ReplaceContents swaps in freshly loaded entities, clears the undo
// history and recooks. Loaders call this; it is not an undoable command.
func (d *Document) ReplaceContents(accounts []*Account, txns []*Transaction, schedules []*Recurrence, budgets []*Budget) error {
	d.Accounts = NewAccountList(d.Accounts.DefaultCurrency(), d.rates)
	d.Transactions = NewTransactionList()
	d.Schedules = NewScheduleList()
	d.Budgets = NewBudgetList(d.rates)
	for _, a := range accounts {
		if err := d.Accounts.Add(a); err != nil {
			return fmt.Errorf("load document: %w", err)
		}
	}
	for _, t := range txns {
		d.Transactions.Add(t, true)
	}
	for _, r := range schedules {
		d.Schedules.Add(r)
	}
	for _, b := range budgets {
		d.Budgets.Add(b)
	}
	d.oven = NewOven(d.Accounts, d.Transactions, d.Schedules, d.Budgets, d.logger)
	d.undoer = NewUndoer(d.Accounts, d.Transactions, d.Schedules, d.Budgets)
	d.Recook()
	return nil
}
