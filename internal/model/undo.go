package model

// Action is the undo log record of one user-visible command: which
// entities it added, which it deleted, and a before-image of every entity
// it changed. Add/delete sets hold live instances; the changed maps pair a
// live instance with a deep value snapshot taken just before the mutation.
//
// Undo and redo both apply the changed maps by swapping the live state
// with the stored image; a swap is its own inverse, so no separate
// after-image is needed.
type Action struct {
	Description string

	AddedAccounts   []*Account
	ChangedAccounts map[*Account]*Account
	DeletedAccounts []*Account

	AddedTransactions   []*Transaction
	ChangedTransactions map[*Transaction]*Transaction
	DeletedTransactions []*Transaction

	AddedSchedules   []*Recurrence
	ChangedSchedules map[*Recurrence]*Recurrence
	DeletedSchedules []*Recurrence

	AddedBudgets   []*Budget
	ChangedBudgets map[*Budget]*Budget
	DeletedBudgets []*Budget
}

// NewAction returns an empty action labeled for the undo menu
// ("Add transaction" shows as "Undo Add transaction").
func NewAction(description string) *Action {
	return &Action{
		Description:         description,
		ChangedAccounts:     make(map[*Account]*Account),
		ChangedTransactions: make(map[*Transaction]*Transaction),
		ChangedSchedules:    make(map[*Recurrence]*Recurrence),
		ChangedBudgets:      make(map[*Budget]*Budget),
	}
}

// ChangeAccount records an imminent change to a.
func (a *Action) ChangeAccount(account *Account) {
	if _, ok := a.ChangedAccounts[account]; !ok {
		a.ChangedAccounts[account] = account.Replicate()
	}
}

// ChangeTransaction records an imminent change to t.
func (a *Action) ChangeTransaction(t *Transaction) {
	if _, ok := a.ChangedTransactions[t]; !ok {
		a.ChangedTransactions[t] = t.Replicate()
	}
}

// ChangeSchedule records an imminent change to r, exceptions and all.
func (a *Action) ChangeSchedule(r *Recurrence) {
	if _, ok := a.ChangedSchedules[r]; !ok {
		a.ChangedSchedules[r] = r.Replicate()
	}
}

// ChangeBudget records an imminent change to b.
func (a *Action) ChangeBudget(b *Budget) {
	if _, ok := a.ChangedBudgets[b]; !ok {
		a.ChangedBudgets[b] = b.Replicate()
	}
}

// ChangeSpawn records an imminent change to a spawn, which persists as a
// change to its owning schedule.
func (a *Action) ChangeSpawn(sp *Spawn, schedules *ScheduleList) {
	if owner := schedules.OwnerOf(sp); owner != nil {
		a.ChangeSchedule(owner)
	}
}

// Undoer manages the linear undo history of a document. It holds the
// entity lists directly rather than the document to keep the dependency
// one-way.
//
// The cursor sits between actions: everything before it has been applied,
// everything after it has been undone. Recording while the cursor isn't at
// the end discards the undone tail; there is no branching.
type Undoer struct {
	accounts     *AccountList
	transactions *TransactionList
	schedules    *ScheduleList
	budgets      *BudgetList

	actions   []*Action
	cursor    int
	savePoint *Action
	saved     bool
}

// NewUndoer returns an undoer operating on the given entity lists.
func NewUndoer(accounts *AccountList, transactions *TransactionList, schedules *ScheduleList, budgets *BudgetList) *Undoer {
	return &Undoer{
		accounts:     accounts,
		transactions: transactions,
		schedules:    schedules,
		budgets:      budgets,
	}
}

// CanUndo reports whether at least one applied action is behind the
// cursor.
func (u *Undoer) CanUndo() bool { return u.cursor > 0 }

// CanRedo reports whether the cursor has undone actions ahead of it.
func (u *Undoer) CanRedo() bool { return u.cursor < len(u.actions) }

// UndoDescription returns the label of the action Undo would revert,
// empty when there is none.
func (u *Undoer) UndoDescription() string {
	if !u.CanUndo() {
		return ""
	}
	return u.actions[u.cursor-1].Description
}

// RedoDescription returns the label of the action Redo would reapply,
// empty when there is none.
func (u *Undoer) RedoDescription() string {
	if !u.CanRedo() {
		return ""
	}
	return u.actions[u.cursor].Description
}

// Record appends the action and moves the cursor past it, discarding any
// undone actions beyond the cursor first.
func (u *Undoer) Record(a *Action) {
	u.actions = append(u.actions[:u.cursor], a)
	u.cursor = len(u.actions)
}

// Clear drops the whole history.
func (u *Undoer) Clear() {
	u.actions = nil
	u.cursor = 0
	u.savePoint = nil
	u.saved = false
}

// SetSavePoint marks the current cursor position as the on-disk state.
func (u *Undoer) SetSavePoint() {
	if u.cursor > 0 {
		u.savePoint = u.actions[u.cursor-1]
	} else {
		u.savePoint = nil
	}
	u.saved = true
}

// Modified reports whether the cursor has moved since the last save
// point. A document with no save point is modified as soon as it has any
// applied action.
func (u *Undoer) Modified() bool {
	var current *Action
	if u.cursor > 0 {
		current = u.actions[u.cursor-1]
	}
	if !u.saved {
		return current != nil
	}
	return current != u.savePoint
}

// Undo reverts the action behind the cursor. Callers must gate on
// CanUndo; violating that is a bug, not a recoverable condition.
func (u *Undoer) Undo() {
	if !u.CanUndo() {
		panic("undoer: Undo called with nothing to undo")
	}
	a := u.actions[u.cursor-1]
	u.doAdds(a.DeletedAccounts, a.DeletedTransactions, a.DeletedSchedules, a.DeletedBudgets)
	u.doDeletes(a.AddedAccounts, a.AddedTransactions, a.AddedSchedules, a.AddedBudgets)
	u.doChanges(a)
	u.cursor--
}

// Redo reapplies the action at the cursor. Callers must gate on CanRedo.
func (u *Undoer) Redo() {
	if !u.CanRedo() {
		panic("undoer: Redo called with nothing to redo")
	}
	a := u.actions[u.cursor]
	u.doAdds(a.AddedAccounts, a.AddedTransactions, a.AddedSchedules, a.AddedBudgets)
	u.doDeletes(a.DeletedAccounts, a.DeletedTransactions, a.DeletedSchedules, a.DeletedBudgets)
	u.doChanges(a)
	u.cursor++
}

func (u *Undoer) doAdds(accounts []*Account, txns []*Transaction, schedules []*Recurrence, budgets []*Budget) {
	for _, account := range accounts {
		u.accounts.Add(account) //nolint:errcheck // re-adding a recorded instance can't collide
	}
	for _, t := range txns {
		u.transactions.Add(t, true)
		u.restoreAutoCreatedAccounts(t)
	}
	for _, r := range schedules {
		u.schedules.Add(r)
	}
	for _, b := range budgets {
		u.budgets.Add(b)
	}
}

func (u *Undoer) doDeletes(accounts []*Account, txns []*Transaction, schedules []*Recurrence, budgets []*Budget) {
	for _, t := range txns {
		u.collectAutoCreatedAccounts(t)
		u.transactions.Remove(t)
	}
	for _, account := range accounts {
		u.accounts.Remove(account)
	}
	for _, r := range schedules {
		u.schedules.Remove(r)
	}
	for _, b := range budgets {
		u.budgets.Remove(b)
	}
}

func (u *Undoer) doChanges(a *Action) {
	for account, image := range a.ChangedAccounts {
		swapAccount(account, image)
	}
	for t, image := range a.ChangedTransactions {
		u.collectAutoCreatedAccounts(t)
		swapTransaction(t, image)
		u.restoreAutoCreatedAccounts(t)
	}
	if len(a.ChangedTransactions) > 0 {
		u.transactions.resort()
	}
	for r, image := range a.ChangedSchedules {
		swapSchedule(r, image)
	}
	for b, image := range a.ChangedBudgets {
		swapBudget(b, image)
	}
}

// restoreAutoCreatedAccounts re-adds accounts a restored transaction
// references that were garbage-collected, rebinding to a same-named
// survivor when one exists.
func (u *Undoer) restoreAutoCreatedAccounts(t *Transaction) {
	for _, split := range t.Splits {
		if split.Account == nil || u.accounts.Contains(split.Account) {
			continue
		}
		if existing := u.accounts.Find(split.Account.Name); existing != nil {
			split.Account = existing
			continue
		}
		u.accounts.Add(split.Account) //nolint:errcheck // name was free
	}
}

// collectAutoCreatedAccounts removes auto-created accounts for which t is
// the last referencing transaction. Call before t itself is detached.
func (u *Undoer) collectAutoCreatedAccounts(t *Transaction) {
	for _, split := range t.Splits {
		account := split.Account
		if account == nil || !account.AutoCreated {
			continue
		}
		if u.transactions.CountAffecting(account) <= 1 {
			u.accounts.Remove(account)
		}
	}
}

func swapAccount(live, image *Account) {
	tmp := live.Replicate()
	live.CopyFrom(image)
	image.CopyFrom(tmp)
}

func swapTransaction(live, image *Transaction) {
	tmp := live.Replicate()
	live.CopyFrom(image)
	image.CopyFrom(tmp)
}

func swapSchedule(live, image *Recurrence) {
	tmp := live.Replicate()
	live.CopyFrom(image)
	image.CopyFrom(tmp)
}

func swapBudget(live, image *Budget) {
	tmp := live.Replicate()
	live.CopyFrom(image)
	image.CopyFrom(tmp)
}
