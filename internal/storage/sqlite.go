package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/date"
	"github.com/sebkoller/moneyguru/internal/model"

	_ "modernc.org/sqlite"
)

const (
	scopeLedger   = "ledger"
	scopeSchedule = "schedule"

	metaDefaultCurrency   = "default_currency"
	metaBudgetStart       = "budget_start"
	metaBudgetRepeatType  = "budget_repeat_type"
	metaBudgetRepeatEvery = "budget_repeat_every"
)

// SQLiteStore persists documents in a SQLite database. A save replaces the
// whole stored document inside one transaction; with a single writer and
// document-sized data there is nothing to gain from incremental updates.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// migrates its schema.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the stored document with snap.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"schedule_changes", "schedule_exceptions", "schedules",
		"budgets", "splits", "transactions", "accounts", "document_meta",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, a := range snap.Accounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, type, currency, grp, account_number, notes, inactive, auto_created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID.String(), a.Name, string(a.Type), a.Currency, a.Group,
			a.AccountNumber, a.Notes, boolToInt(a.Inactive), boolToInt(a.AutoCreated))
		if err != nil {
			return fmt.Errorf("save account %q: %w", a.Name, err)
		}
	}

	for _, t := range snap.Transactions {
		if _, err := insertTransaction(ctx, tx, t, scopeLedger); err != nil {
			return err
		}
	}

	for _, r := range snap.Schedules {
		if err := insertSchedule(ctx, tx, r); err != nil {
			return err
		}
	}

	for _, b := range snap.Budgets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (id, account_id, amount, currency, notes)
			VALUES (?, ?, ?, ?, ?)`,
			b.ID.String(), b.Account.ID.String(), b.Amount.Value().String(), b.Amount.Currency(), b.Notes)
		if err != nil {
			return fmt.Errorf("save budget for %q: %w", b.Account.Name, err)
		}
	}

	meta := map[string]string{
		metaDefaultCurrency: snap.DefaultCurrency,
	}
	if !snap.BudgetStart.IsZero() {
		meta[metaBudgetStart] = snap.BudgetStart.String()
		meta[metaBudgetRepeatType] = snap.BudgetRepeatType.String()
		meta[metaBudgetRepeatEvery] = strconv.Itoa(snap.BudgetRepeatEvery)
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO document_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("save meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	s.logger.Info("saved document",
		"accounts", len(snap.Accounts), "transactions", len(snap.Transactions),
		"schedules", len(snap.Schedules), "budgets", len(snap.Budgets))
	return nil
}

// insertTransaction stores t under a fresh synthetic row key and returns
// it. Schedule deviations keep the entity id of the template they
// override, so the entity id cannot key the row.
func insertTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction, scope string) (string, error) {
	rowKey := uuid.NewString()
	var mtime int64
	if !t.MTime.IsZero() {
		mtime = t.MTime.Unix()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (row_key, id, scope, date, description, payee, checkno, notes, position, mtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowKey, t.ID.String(), scope, t.Date.String(), t.Description, t.Payee, t.CheckNo, t.Notes, t.Position, mtime)
	if err != nil {
		return "", fmt.Errorf("save transaction %q: %w", t.Description, err)
	}
	for i, sp := range t.Splits {
		var accountID any
		if sp.Account != nil {
			accountID = sp.Account.ID.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO splits (transaction_id, split_index, account_id, amount, currency, memo, reconciliation_date, reference)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rowKey, i, accountID, sp.Amount.Value().String(), sp.Amount.Currency(),
			sp.Memo, sp.ReconciliationDate.String(), sp.Reference)
		if err != nil {
			return "", fmt.Errorf("save split of %q: %w", t.Description, err)
		}
	}
	return rowKey, nil
}

func insertSchedule(ctx context.Context, tx *sql.Tx, r *model.Recurrence) error {
	refKey, err := insertTransaction(ctx, tx, r.Ref, scopeSchedule)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedules (id, ref_txn_id, repeat_type, repeat_every, stop_date)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID.String(), refKey, r.RepeatType.String(), r.RepeatEvery, r.StopDate.String())
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}

	for _, slot := range r.ExceptionSlots() {
		sp, _ := r.ExceptionAt(slot)
		var txnKey any
		if sp != nil {
			key, err := insertTransaction(ctx, tx, &sp.Transaction, scopeSchedule)
			if err != nil {
				return err
			}
			txnKey = key
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO schedule_exceptions (schedule_id, slot_date, txn_id)
			VALUES (?, ?, ?)`,
			r.ID.String(), slot.String(), txnKey)
		if err != nil {
			return fmt.Errorf("save schedule exception at %s: %w", slot, err)
		}
	}

	for _, slot := range r.GlobalChangeSlots() {
		sp, _ := r.GlobalChangeAt(slot)
		key, err := insertTransaction(ctx, tx, &sp.Transaction, scopeSchedule)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO schedule_changes (schedule_id, slot_date, txn_id)
			VALUES (?, ?, ?)`,
			r.ID.String(), slot.String(), key)
		if err != nil {
			return fmt.Errorf("save schedule change at %s: %w", slot, err)
		}
	}
	return nil
}

// Load reads the stored document. An empty database yields an empty
// snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID.String()] = a
	}
	snap.Accounts = accounts

	txns, err := s.loadTransactions(ctx, byID)
	if err != nil {
		return nil, err
	}
	for _, t := range txns[scopeLedger] {
		snap.Transactions = append(snap.Transactions, t)
	}
	sort.SliceStable(snap.Transactions, func(i, j int) bool {
		a, b := snap.Transactions[i], snap.Transactions[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Position < b.Position
	})

	snap.Schedules, err = s.loadSchedules(ctx, txns[scopeSchedule])
	if err != nil {
		return nil, err
	}

	snap.Budgets, err = s.loadBudgets(ctx, byID)
	if err != nil {
		return nil, err
	}

	if err := s.loadMeta(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Info("loaded document",
		"accounts", len(snap.Accounts), "transactions", len(snap.Transactions),
		"schedules", len(snap.Schedules), "budgets", len(snap.Budgets))
	return snap, nil
}

func (s *SQLiteStore) loadAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, currency, grp, account_number, notes, inactive, auto_created
		FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var (
			a                     model.Account
			id, accountType       string
			inactive, autoCreated int
		)
		if err := rows.Scan(&id, &a.Name, &accountType, &a.Currency, &a.Group,
			&a.AccountNumber, &a.Notes, &inactive, &autoCreated); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("account %q: bad id: %w", a.Name, err)
		}
		a.Type = model.AccountType(accountType)
		a.Inactive = inactive != 0
		a.AutoCreated = autoCreated != 0
		out = append(out, &a)
	}
	return out, rows.Err()
}

// loadTransactions returns all stored transactions with their splits,
// grouped by scope and keyed by row key. Deviation rows share their
// template's entity id, so only the row key identifies a row.
func (s *SQLiteStore) loadTransactions(ctx context.Context, accounts map[string]*model.Account) (map[string]map[string]*model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_key, id, scope, date, description, payee, checkno, notes, position, mtime
		FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	byScope := map[string]map[string]*model.Transaction{
		scopeLedger:   {},
		scopeSchedule: {},
	}
	for rows.Next() {
		var (
			t                 model.Transaction
			rowKey, id, scope string
			dateStr           string
			mtime             int64
		)
		if err := rows.Scan(&rowKey, &id, &scope, &dateStr, &t.Description, &t.Payee,
			&t.CheckNo, &t.Notes, &t.Position, &mtime); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("transaction %q: bad id: %w", t.Description, err)
		}
		t.Date, err = date.Parse(dateStr)
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", t.Description, err)
		}
		if mtime != 0 {
			t.MTime = time.Unix(mtime, 0).UTC()
		}
		scoped := byScope[scope]
		if scoped == nil {
			return nil, fmt.Errorf("transaction %q: unknown scope %q", t.Description, scope)
		}
		scoped[rowKey] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadSplits(ctx, accounts, byScope); err != nil {
		return nil, err
	}
	return byScope, nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, accounts map[string]*model.Account, byScope map[string]map[string]*model.Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, account_id, amount, currency, memo, reconciliation_date, reference
		FROM splits ORDER BY transaction_id, split_index`)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txnKey, amountStr, code     string
			accountID                   sql.NullString
			memo, recDateStr, reference string
		)
		if err := rows.Scan(&txnKey, &accountID, &amountStr, &code, &memo, &recDateStr, &reference); err != nil {
			return fmt.Errorf("scan split: %w", err)
		}
		amount, err := model.ParseAmount(amountStr, code)
		if err != nil {
			return fmt.Errorf("split of %s: %w", txnKey, err)
		}
		split := &model.Split{Amount: amount, Memo: memo, Reference: reference}
		if recDateStr != "" {
			split.ReconciliationDate, err = date.Parse(recDateStr)
			if err != nil {
				return fmt.Errorf("split of %s: %w", txnKey, err)
			}
		}
		if accountID.Valid {
			account, ok := accounts[accountID.String]
			if !ok {
				return fmt.Errorf("split of %s references unknown account %s", txnKey, accountID.String)
			}
			split.Account = account
		}
		for _, scoped := range byScope {
			if t, ok := scoped[txnKey]; ok {
				t.Splits = append(t.Splits, split)
				break
			}
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadSchedules(ctx context.Context, templates map[string]*model.Transaction) ([]*model.Recurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ref_txn_id, repeat_type, repeat_every, stop_date FROM schedules`)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	defer rows.Close()

	var out []*model.Recurrence
	byID := make(map[string]*model.Recurrence)
	for rows.Next() {
		var id, refKey, rtStr, stopStr string
		var every int
		if err := rows.Scan(&id, &refKey, &rtStr, &every, &stopStr); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		ref, ok := templates[refKey]
		if !ok {
			return nil, fmt.Errorf("schedule %s: missing template %s", id, refKey)
		}
		rt, err := date.ParseRepeatType(rtStr)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
		r := model.NewRecurrence(ref, rt, every)
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("schedule: bad id: %w", err)
		}
		if stopStr != "" {
			r.StopDate, err = date.Parse(stopStr)
			if err != nil {
				return nil, fmt.Errorf("schedule %s: %w", id, err)
			}
		}
		out = append(out, r)
		byID[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadScheduleChanges(ctx, byID, templates); err != nil {
		return nil, err
	}
	if err := s.loadScheduleExceptions(ctx, byID, templates); err != nil {
		return nil, err
	}
	return out, nil
}

type slotRow struct {
	schedule *model.Recurrence
	slot     date.Date
	txn      *model.Transaction
}

// Changes load before exceptions, in slot order: recording a global change
// purges later one-off edits.
func (s *SQLiteStore) loadScheduleChanges(ctx context.Context, schedules map[string]*model.Recurrence, templates map[string]*model.Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schedule_id, slot_date, txn_id FROM schedule_changes ORDER BY slot_date`)
	if err != nil {
		return fmt.Errorf("load schedule changes: %w", err)
	}
	defer rows.Close()

	var changes []slotRow
	for rows.Next() {
		row, err := scanSlotRow(rows, schedules, templates)
		if err != nil {
			return fmt.Errorf("schedule change: %w", err)
		}
		changes = append(changes, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].slot.Before(changes[j].slot) })
	for _, c := range changes {
		c.schedule.ChangeGlobally(scheduleSpawn(c.schedule, c.slot, c.txn))
	}
	return nil
}

func (s *SQLiteStore) loadScheduleExceptions(ctx context.Context, schedules map[string]*model.Recurrence, templates map[string]*model.Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schedule_id, slot_date, txn_id FROM schedule_exceptions`)
	if err != nil {
		return fmt.Errorf("load schedule exceptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanSlotRow(rows, schedules, templates)
		if err != nil {
			return fmt.Errorf("schedule exception: %w", err)
		}
		if row.txn == nil {
			row.schedule.DeleteAt(row.slot)
		} else {
			row.schedule.SetException(scheduleSpawn(row.schedule, row.slot, row.txn))
		}
	}
	return rows.Err()
}

func scanSlotRow(rows *sql.Rows, schedules map[string]*model.Recurrence, templates map[string]*model.Transaction) (slotRow, error) {
	var scheduleID, slotStr string
	var txnKey sql.NullString
	if err := rows.Scan(&scheduleID, &slotStr, &txnKey); err != nil {
		return slotRow{}, err
	}
	schedule, ok := schedules[scheduleID]
	if !ok {
		return slotRow{}, fmt.Errorf("unknown schedule %s", scheduleID)
	}
	slot, err := date.Parse(slotStr)
	if err != nil {
		return slotRow{}, err
	}
	row := slotRow{schedule: schedule, slot: slot}
	if txnKey.Valid {
		txn, ok := templates[txnKey.String]
		if !ok {
			return slotRow{}, fmt.Errorf("missing transaction %s", txnKey.String)
		}
		row.txn = txn
	}
	return row, nil
}

func scheduleSpawn(r *model.Recurrence, slot date.Date, txn *model.Transaction) *model.Spawn {
	sp := &model.Spawn{
		Kind:           model.ScheduleSpawn,
		RecurrenceID:   r.ID,
		RecurrenceDate: slot,
	}
	sp.Transaction = *txn
	return sp
}

func (s *SQLiteStore) loadBudgets(ctx context.Context, accounts map[string]*model.Account) ([]*model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, currency, notes FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	defer rows.Close()

	var out []*model.Budget
	for rows.Next() {
		var id, accountID, amountStr, code, notes string
		if err := rows.Scan(&id, &accountID, &amountStr, &code, &notes); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		account, ok := accounts[accountID]
		if !ok {
			return nil, fmt.Errorf("budget %s references unknown account %s", id, accountID)
		}
		amount, err := model.ParseAmount(amountStr, code)
		if err != nil {
			return nil, fmt.Errorf("budget %s: %w", id, err)
		}
		b := model.NewBudget(account, amount)
		b.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("budget: bad id: %w", err)
		}
		b.Notes = notes
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadMeta(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM document_meta")
	if err != nil {
		return fmt.Errorf("load meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan meta: %w", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return err
	}

	snap.DefaultCurrency = meta[metaDefaultCurrency]
	if startStr, ok := meta[metaBudgetStart]; ok {
		snap.BudgetStart, err = date.Parse(startStr)
		if err != nil {
			return fmt.Errorf("budget start: %w", err)
		}
		snap.BudgetRepeatType, err = date.ParseRepeatType(meta[metaBudgetRepeatType])
		if err != nil {
			return fmt.Errorf("budget repeat: %w", err)
		}
		snap.BudgetRepeatEvery, err = strconv.Atoi(meta[metaBudgetRepeatEvery])
		if err != nil {
			return fmt.Errorf("budget repeat interval: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
