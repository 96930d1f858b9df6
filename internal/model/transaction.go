package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/currency"
	"github.com/sebkoller/moneyguru/internal/date"
)

// Split is one line of a transaction: an amount moving in or out of an
// account (nil account = unassigned). The owning transaction keeps its
// splits summing to zero; Split itself enforces nothing.
type Split struct {
	Account *Account
	Amount  Amount
	Memo    string
	// ReconciliationDate is zero while the split is unreconciled.
	ReconciliationDate date.Date
	// Reference is an import-supplied identifier used for de-duplication.
	Reference string
}

func (s *Split) replicate() *Split {
	c := *s
	return &c
}

// Transaction is a dated movement of money described by balanced splits.
// Position orders transactions sharing a date.
type Transaction struct {
	ID          uuid.UUID
	Date        date.Date
	Description string
	Payee       string
	CheckNo     string
	Notes       string
	Position    int
	MTime       time.Time
	Splits      []*Split
}

// NewTransaction returns a two-split transaction moving amount out of from
// and into to. Either account may be nil (unassigned).
func NewTransaction(day date.Date, description, payee string, from, to *Account, amount Amount) *Transaction {
	t := &Transaction{
		ID:          uuid.New(),
		Date:        day,
		Description: description,
		Payee:       payee,
		MTime:       time.Now(),
	}
	t.Splits = []*Split{
		{Account: from, Amount: amount.Neg()},
		{Account: to, Amount: amount},
	}
	return t
}

// IsBalanced reports whether the splits sum to zero, per currency.
func (t *Transaction) IsBalanced() bool {
	sums := make(map[string]Amount)
	for _, s := range t.Splits {
		if s.Amount.IsZero() {
			continue
		}
		code := s.Amount.Currency()
		sums[code] = sums[code].Add(s.Amount)
	}
	for _, sum := range sums {
		if !sum.IsZero() {
			return false
		}
	}
	return true
}

// assertBalanced panics when the invariant is broken. An unbalanced
// transaction after a public mutation is an internal bug, never user
// input.
func (t *Transaction) assertBalanced() {
	if !t.IsBalanced() {
		panic(fmt.Sprintf("transaction %q (%s) has unbalanced splits", t.Description, t.Date))
	}
}

// Balance restores the splits-sum-to-zero invariant after an edit. An
// imbalance is absorbed by the first unassigned split, or by a new
// unassigned split when there is none. Only single-currency imbalances are
// auto-corrected; multi-currency transactions must come in balanced per
// currency.
func (t *Transaction) Balance() {
	sums := make(map[string]Amount)
	for _, s := range t.Splits {
		if s.Amount.IsZero() {
			continue
		}
		code := s.Amount.Currency()
		sums[code] = sums[code].Add(s.Amount)
	}
	var imbalance Amount
	unbalanced := 0
	for _, sum := range sums {
		if !sum.IsZero() {
			imbalance = sum
			unbalanced++
		}
	}
	if unbalanced == 0 {
		return
	}
	if unbalanced > 1 {
		t.assertBalanced() // multi-currency imbalance: give up loudly
	}
	for _, s := range t.Splits {
		if s.Account == nil && (s.Amount.IsZero() || s.Amount.Currency() == imbalance.Currency()) {
			s.Amount = s.Amount.Sub(imbalance)
			return
		}
	}
	t.Splits = append(t.Splits, &Split{Amount: imbalance.Neg()})
}

// AffectedAccounts returns the distinct non-nil accounts the transaction
// touches, in split order.
func (t *Transaction) AffectedAccounts() []*Account {
	var out []*Account
	seen := make(map[uuid.UUID]bool)
	for _, s := range t.Splits {
		if s.Account == nil || seen[s.Account.ID] {
			continue
		}
		seen[s.Account.ID] = true
		out = append(out, s.Account)
	}
	return out
}

// Affects reports whether any split references a.
func (t *Transaction) Affects(a *Account) bool {
	for _, s := range t.Splits {
		if s.Account != nil && s.Account.ID == a.ID {
			return true
		}
	}
	return false
}

// AmountForAccount sums the transaction's split amounts for account a,
// expressed in currencyCode at the transaction's date.
func (t *Transaction) AmountForAccount(a *Account, currencyCode string, rates *currency.RatesDB) Amount {
	var total Amount
	for _, s := range t.Splits {
		if s.Account == nil || s.Account.ID != a.ID {
			continue
		}
		total = total.Add(Convert(s.Amount, currencyCode, t.Date, rates))
	}
	return total
}

// ReassignAccount rewires every split referencing from to point at to
// (possibly nil, leaving the split unassigned).
func (t *Transaction) ReassignAccount(from, to *Account) {
	for _, s := range t.Splits {
		if s.Account != nil && s.Account.ID == from.ID {
			s.Account = to
		}
	}
}

// Replicate returns a deep value snapshot sharing the transaction's
// identity; undo before-images are built from it.
func (t *Transaction) Replicate() *Transaction {
	c := *t
	c.Splits = make([]*Split, len(t.Splits))
	for i, s := range t.Splits {
		c.Splits[i] = s.replicate()
	}
	return &c
}

// Duplicate returns an independent copy with a fresh identity.
func (t *Transaction) Duplicate() *Transaction {
	c := t.Replicate()
	c.ID = uuid.New()
	c.MTime = time.Now()
	return c
}

// CopyFrom overwrites everything but identity with a deep copy of other's
// state. Replicate/CopyFrom pairs are how the undoer swaps images.
func (t *Transaction) CopyFrom(other *Transaction) {
	id := t.ID
	*t = *other
	t.ID = id
	t.Splits = make([]*Split, len(other.Splits))
	for i, s := range other.Splits {
		t.Splits[i] = s.replicate()
	}
}

// TransactionEdit carries the fields of a change-transaction command; nil
// fields are left untouched.
type TransactionEdit struct {
	Date        *date.Date
	Description *string
	Payee       *string
	CheckNo     *string
	Notes       *string
	// Amount rewrites the amount of a simple two-split transaction.
	Amount *Amount
	// From / To rebind the source and destination accounts of a two-split
	// transaction. A non-nil pointer to a nil account unassigns.
	From **Account
	To   **Account
}

// Apply mutates the transaction per the edit, restores the balance
// invariant and bumps the modification time.
func (t *Transaction) Apply(edit TransactionEdit) {
	if edit.Date != nil {
		t.Date = *edit.Date
	}
	if edit.Description != nil {
		t.Description = *edit.Description
	}
	if edit.Payee != nil {
		t.Payee = *edit.Payee
	}
	if edit.CheckNo != nil {
		t.CheckNo = *edit.CheckNo
	}
	if edit.Notes != nil {
		t.Notes = *edit.Notes
	}
	if edit.Amount != nil && len(t.Splits) == 2 {
		t.Splits[0].Amount = edit.Amount.Neg()
		t.Splits[1].Amount = *edit.Amount
	}
	if edit.From != nil && len(t.Splits) == 2 {
		t.Splits[0].Account = *edit.From
	}
	if edit.To != nil && len(t.Splits) == 2 {
		t.Splits[1].Account = *edit.To
	}
	t.Balance()
	t.MTime = time.Now()
	t.assertBalanced()
}
