package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/date"
	"github.com/sebkoller/moneyguru/internal/model"
)

// XMLStore persists documents in the native XML file format. Saves go
// through a temp file and rename, so a crash mid-write never leaves a
// truncated document behind.
type XMLStore struct {
	path   string
	logger *slog.Logger
}

// NewXMLStore returns a store reading and writing path.
func NewXMLStore(path string, logger *slog.Logger) *XMLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &XMLStore{path: path, logger: logger}
}

func (s *XMLStore) Close() error { return nil }

// Serialized document layout. Schedule exception and change elements are
// keyed by the slot's unmodified recurrence date; the nested transaction
// carries the (possibly moved) effective date.

type xmlFile struct {
	XMLName           xml.Name         `xml:"moneyguru-file"`
	DefaultCurrency   string           `xml:"default_currency,attr"`
	BudgetStart       string           `xml:"budget_start,attr,omitempty"`
	BudgetRepeatType  string           `xml:"budget_repeat_type,attr,omitempty"`
	BudgetRepeatEvery int              `xml:"budget_repeat_every,attr,omitempty"`
	Accounts          []xmlAccount     `xml:"account"`
	Transactions      []xmlTransaction `xml:"transaction"`
	Recurrences       []xmlRecurrence  `xml:"recurrence"`
	Budgets           []xmlBudget      `xml:"budget"`
}

type xmlAccount struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	Type          string `xml:"type,attr"`
	Currency      string `xml:"currency,attr"`
	Group         string `xml:"group,attr,omitempty"`
	AccountNumber string `xml:"account_number,attr,omitempty"`
	Notes         string `xml:"notes,attr,omitempty"`
	Inactive      bool   `xml:"inactive,attr,omitempty"`
	AutoCreated   bool   `xml:"auto_created,attr,omitempty"`
}

type xmlTransaction struct {
	ID          string     `xml:"id,attr"`
	Date        string     `xml:"date,attr"`
	Description string     `xml:"description,attr,omitempty"`
	Payee       string     `xml:"payee,attr,omitempty"`
	CheckNo     string     `xml:"checkno,attr,omitempty"`
	Notes       string     `xml:"notes,attr,omitempty"`
	Position    int        `xml:"position,attr,omitempty"`
	MTime       int64      `xml:"mtime,attr,omitempty"`
	Splits      []xmlSplit `xml:"split"`
}

type xmlSplit struct {
	Account            string `xml:"account,attr,omitempty"`
	Amount             string `xml:"amount,attr"`
	Currency           string `xml:"currency,attr,omitempty"`
	Memo               string `xml:"memo,attr,omitempty"`
	ReconciliationDate string `xml:"reconciliation_date,attr,omitempty"`
	Reference          string `xml:"reference,attr,omitempty"`
}

type xmlRecurrence struct {
	ID      string         `xml:"id,attr"`
	Type    string         `xml:"type,attr"`
	Every   int            `xml:"every,attr"`
	Stop    string         `xml:"stop,attr,omitempty"`
	Ref     xmlTransaction `xml:"transaction"`
	Excepts []xmlException `xml:"exception"`
	Changes []xmlChange    `xml:"change"`
}

// xmlException with no nested transaction marks a deleted slot.
type xmlException struct {
	Date string          `xml:"date,attr"`
	Txn  *xmlTransaction `xml:"transaction"`
}

type xmlChange struct {
	Date string         `xml:"date,attr"`
	Txn  xmlTransaction `xml:"transaction"`
}

type xmlBudget struct {
	ID       string `xml:"id,attr"`
	Account  string `xml:"account,attr"`
	Amount   string `xml:"amount,attr"`
	Currency string `xml:"currency,attr"`
	Notes    string `xml:"notes,attr,omitempty"`
}

// Load reads the document at the store's path. A missing file is an empty
// document.
func (s *XMLStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("no document yet, starting empty", "path", s.path)
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var file xmlFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", s.path, err)
	}
	snap, err := file.toSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", s.path, err)
	}
	s.logger.Info("loaded document", "path", s.path,
		"accounts", len(snap.Accounts), "transactions", len(snap.Transactions),
		"schedules", len(snap.Schedules), "budgets", len(snap.Budgets))
	return snap, nil
}

// Save writes the snapshot to the store's path.
func (s *XMLStore) Save(ctx context.Context, snap *Snapshot) error {
	file := fileFromSnapshot(snap)
	data, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	s.logger.Info("saved document", "path", s.path, "bytes", len(data))
	return nil
}

// --- snapshot -> xml

func fileFromSnapshot(snap *Snapshot) xmlFile {
	file := xmlFile{
		DefaultCurrency:   snap.DefaultCurrency,
		BudgetStart:       snap.BudgetStart.String(),
		BudgetRepeatType:  snap.BudgetRepeatType.String(),
		BudgetRepeatEvery: snap.BudgetRepeatEvery,
	}
	for _, a := range snap.Accounts {
		file.Accounts = append(file.Accounts, xmlAccount{
			ID:            a.ID.String(),
			Name:          a.Name,
			Type:          string(a.Type),
			Currency:      a.Currency,
			Group:         a.Group,
			AccountNumber: a.AccountNumber,
			Notes:         a.Notes,
			Inactive:      a.Inactive,
			AutoCreated:   a.AutoCreated,
		})
	}
	for _, t := range snap.Transactions {
		file.Transactions = append(file.Transactions, txnToXML(t))
	}
	for _, r := range snap.Schedules {
		file.Recurrences = append(file.Recurrences, recurrenceToXML(r))
	}
	for _, b := range snap.Budgets {
		file.Budgets = append(file.Budgets, xmlBudget{
			ID:       b.ID.String(),
			Account:  b.Account.Name,
			Amount:   b.Amount.Value().String(),
			Currency: b.Amount.Currency(),
			Notes:    b.Notes,
		})
	}
	return file
}

func txnToXML(t *model.Transaction) xmlTransaction {
	out := xmlTransaction{
		ID:          t.ID.String(),
		Date:        t.Date.String(),
		Description: t.Description,
		Payee:       t.Payee,
		CheckNo:     t.CheckNo,
		Notes:       t.Notes,
		Position:    t.Position,
	}
	if !t.MTime.IsZero() {
		out.MTime = t.MTime.Unix()
	}
	for _, sp := range t.Splits {
		x := xmlSplit{
			Amount:             sp.Amount.Value().String(),
			Currency:           sp.Amount.Currency(),
			Memo:               sp.Memo,
			ReconciliationDate: sp.ReconciliationDate.String(),
			Reference:          sp.Reference,
		}
		if sp.Account != nil {
			x.Account = sp.Account.Name
		}
		out.Splits = append(out.Splits, x)
	}
	return out
}

func recurrenceToXML(r *model.Recurrence) xmlRecurrence {
	out := xmlRecurrence{
		ID:    r.ID.String(),
		Type:  r.RepeatType.String(),
		Every: r.RepeatEvery,
		Stop:  r.StopDate.String(),
		Ref:   txnToXML(r.Ref),
	}
	for _, slot := range r.ExceptionSlots() {
		x := xmlException{Date: slot.String()}
		if sp, _ := r.ExceptionAt(slot); sp != nil {
			txn := txnToXML(&sp.Transaction)
			x.Txn = &txn
		}
		out.Excepts = append(out.Excepts, x)
	}
	for _, slot := range r.GlobalChangeSlots() {
		sp, _ := r.GlobalChangeAt(slot)
		out.Changes = append(out.Changes, xmlChange{
			Date: slot.String(),
			Txn:  txnToXML(&sp.Transaction),
		})
	}
	return out
}

// --- xml -> snapshot

func (f *xmlFile) toSnapshot() (*Snapshot, error) {
	snap := &Snapshot{DefaultCurrency: f.DefaultCurrency}

	byName := make(map[string]*model.Account, len(f.Accounts))
	for _, xa := range f.Accounts {
		id, err := uuid.Parse(xa.ID)
		if err != nil {
			return nil, fmt.Errorf("account %q: bad id: %w", xa.Name, err)
		}
		a := &model.Account{
			ID:            id,
			Name:          xa.Name,
			Type:          model.AccountType(xa.Type),
			Currency:      xa.Currency,
			Group:         xa.Group,
			AccountNumber: xa.AccountNumber,
			Notes:         xa.Notes,
			Inactive:      xa.Inactive,
			AutoCreated:   xa.AutoCreated,
		}
		if !a.Type.IsValid() {
			return nil, fmt.Errorf("account %q: unknown type %q", xa.Name, xa.Type)
		}
		snap.Accounts = append(snap.Accounts, a)
		byName[a.Name] = a
	}

	for _, xt := range f.Transactions {
		t, err := txnFromXML(xt, byName)
		if err != nil {
			return nil, err
		}
		snap.Transactions = append(snap.Transactions, t)
	}

	for _, xr := range f.Recurrences {
		r, err := recurrenceFromXML(xr, byName)
		if err != nil {
			return nil, err
		}
		snap.Schedules = append(snap.Schedules, r)
	}

	for _, xb := range f.Budgets {
		id, err := uuid.Parse(xb.ID)
		if err != nil {
			return nil, fmt.Errorf("budget for %q: bad id: %w", xb.Account, err)
		}
		account, ok := byName[xb.Account]
		if !ok {
			return nil, fmt.Errorf("budget references unknown account %q", xb.Account)
		}
		amount, err := model.ParseAmount(xb.Amount, xb.Currency)
		if err != nil {
			return nil, fmt.Errorf("budget for %q: %w", xb.Account, err)
		}
		b := model.NewBudget(account, amount)
		b.ID = id
		b.Notes = xb.Notes
		snap.Budgets = append(snap.Budgets, b)
	}

	if f.BudgetStart != "" {
		start, err := date.Parse(f.BudgetStart)
		if err != nil {
			return nil, fmt.Errorf("budget start: %w", err)
		}
		rt, err := date.ParseRepeatType(f.BudgetRepeatType)
		if err != nil {
			return nil, fmt.Errorf("budget repeat: %w", err)
		}
		snap.BudgetStart = start
		snap.BudgetRepeatType = rt
		snap.BudgetRepeatEvery = f.BudgetRepeatEvery
	}

	return snap, nil
}

func parseOptionalDate(s, what string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	d, err := date.Parse(s)
	if err != nil {
		return date.Date{}, fmt.Errorf("%s: %w", what, err)
	}
	return d, nil
}

func txnFromXML(xt xmlTransaction, byName map[string]*model.Account) (*model.Transaction, error) {
	id, err := uuid.Parse(xt.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction %q: bad id: %w", xt.Description, err)
	}
	day, err := date.Parse(xt.Date)
	if err != nil {
		return nil, fmt.Errorf("transaction %q: %w", xt.Description, err)
	}
	t := &model.Transaction{
		ID:          id,
		Date:        day,
		Description: xt.Description,
		Payee:       xt.Payee,
		CheckNo:     xt.CheckNo,
		Notes:       xt.Notes,
		Position:    xt.Position,
	}
	if xt.MTime != 0 {
		t.MTime = time.Unix(xt.MTime, 0).UTC()
	}
	for _, xs := range xt.Splits {
		amount, err := model.ParseAmount(xs.Amount, xs.Currency)
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", xt.Description, err)
		}
		recDate, err := parseOptionalDate(xs.ReconciliationDate, "reconciliation date")
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", xt.Description, err)
		}
		split := &model.Split{
			Amount:             amount,
			Memo:               xs.Memo,
			ReconciliationDate: recDate,
			Reference:          xs.Reference,
		}
		if xs.Account != "" {
			account, ok := byName[xs.Account]
			if !ok {
				return nil, fmt.Errorf("transaction %q references unknown account %q", xt.Description, xs.Account)
			}
			split.Account = account
		}
		t.Splits = append(t.Splits, split)
	}
	return t, nil
}

func recurrenceFromXML(xr xmlRecurrence, byName map[string]*model.Account) (*model.Recurrence, error) {
	id, err := uuid.Parse(xr.ID)
	if err != nil {
		return nil, fmt.Errorf("schedule: bad id: %w", err)
	}
	rt, err := date.ParseRepeatType(xr.Type)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	ref, err := txnFromXML(xr.Ref, byName)
	if err != nil {
		return nil, fmt.Errorf("schedule template: %w", err)
	}
	r := model.NewRecurrence(ref, rt, xr.Every)
	r.ID = id
	r.StopDate, err = parseOptionalDate(xr.Stop, "schedule stop date")
	if err != nil {
		return nil, err
	}

	// Global changes first, in slot order: recording one purges later
	// one-off edits, so the exceptions must come after.
	changes := append([]xmlChange(nil), xr.Changes...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Date < changes[j].Date })
	for _, xc := range changes {
		sp, err := spawnFromXML(r, xc.Date, &xc.Txn, byName)
		if err != nil {
			return nil, err
		}
		r.ChangeGlobally(sp)
	}
	for _, xe := range xr.Excepts {
		slot, err := date.Parse(xe.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule exception: %w", err)
		}
		if xe.Txn == nil {
			r.DeleteAt(slot)
			continue
		}
		sp, err := spawnFromXML(r, xe.Date, xe.Txn, byName)
		if err != nil {
			return nil, err
		}
		r.SetException(sp)
	}
	return r, nil
}

func spawnFromXML(r *model.Recurrence, slotStr string, xt *xmlTransaction, byName map[string]*model.Account) (*model.Spawn, error) {
	slot, err := date.Parse(slotStr)
	if err != nil {
		return nil, fmt.Errorf("schedule slot: %w", err)
	}
	txn, err := txnFromXML(*xt, byName)
	if err != nil {
		return nil, fmt.Errorf("schedule slot %s: %w", slotStr, err)
	}
	sp := &model.Spawn{
		Kind:           model.ScheduleSpawn,
		RecurrenceID:   r.ID,
		RecurrenceDate: slot,
	}
	sp.Transaction = *txn
	return sp, nil
}
