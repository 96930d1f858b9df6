// Package storage persists whole documents: a native XML file format and a
// SQLite repository, selected by configuration. Both backends load and save
// the full entity graph in one shot; derived entries are never stored.
package storage

import (
	"context"

	"github.com/sebkoller/moneyguru/internal/date"
	"github.com/sebkoller/moneyguru/internal/model"
)

// Snapshot is the persisted state of one document. Spawns and entries are
// absent: they are derived and recooked after loading.
type Snapshot struct {
	DefaultCurrency string

	Accounts     []*model.Account
	Transactions []*model.Transaction
	Schedules    []*model.Recurrence
	Budgets      []*model.Budget

	// The repeat rule shared by all budgets.
	BudgetStart       date.Date
	BudgetRepeatType  date.RepeatType
	BudgetRepeatEvery int
}

// NewSnapshot captures the persistable state of doc.
func NewSnapshot(doc *model.Document) *Snapshot {
	return &Snapshot{
		DefaultCurrency:   doc.Accounts.DefaultCurrency(),
		Accounts:          doc.Accounts.All(),
		Transactions:      doc.Transactions.All(),
		Schedules:         doc.Schedules.All(),
		Budgets:           doc.Budgets.All(),
		BudgetStart:       doc.Budgets.StartDate,
		BudgetRepeatType:  doc.Budgets.RepeatType,
		BudgetRepeatEvery: doc.Budgets.RepeatEvery,
	}
}

// Restore replaces doc's contents with the snapshot's and marks it saved.
// The caller recooks by re-establishing the horizon with CookUntil.
func (s *Snapshot) Restore(doc *model.Document) error {
	if err := doc.ReplaceContents(s.Accounts, s.Transactions, s.Schedules, s.Budgets); err != nil {
		return err
	}
	if !s.BudgetStart.IsZero() {
		doc.Budgets.StartDate = s.BudgetStart
		doc.Budgets.RepeatType = s.BudgetRepeatType
		doc.Budgets.RepeatEvery = s.BudgetRepeatEvery
	}
	doc.SetSavePoint()
	return nil
}

// Store is a document persistence backend.
type Store interface {
	// Load reads the stored document. A missing or empty store yields an
	// empty snapshot, not an error.
	Load(ctx context.Context) (*Snapshot, error)
	// Save writes the snapshot, replacing the stored document atomically.
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}
