package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/date"
)

// SpawnKind tells which engine produced a spawn.
type SpawnKind int

const (
	// ScheduleSpawn is an occurrence of a recurring transaction.
	ScheduleSpawn SpawnKind = iota
	// BudgetSpawn is the remaining budgeted amount of one budget period.
	// Its entries only move the with-budget balance variant.
	BudgetSpawn
)

// Spawn is a transient transaction instance derived from a Recurrence or
// Budget for one scheduled occurrence. Spawns are never persisted; they
// are regenerated on every cook. Only user-authored exceptions to them are
// persisted, as part of the owning Recurrence.
//
// RecurrenceDate is the slot the spawn was generated for and never changes,
// even when the user moves the spawn's effective Date; exception lookups
// key on it. For budget spawns Date is the period's last day while
// RecurrenceDate is its first.
type Spawn struct {
	Transaction
	Kind           SpawnKind
	RecurrenceID   uuid.UUID
	RecurrenceDate date.Date
}

// newSpawn derives a spawn at the given slot from a template transaction.
func newSpawn(template *Transaction, kind SpawnKind, recurrenceID uuid.UUID, slot, effective date.Date) *Spawn {
	sp := &Spawn{
		Kind:           kind,
		RecurrenceID:   recurrenceID,
		RecurrenceDate: slot,
	}
	sp.Transaction = *template.Replicate()
	sp.Date = effective
	sp.Position = 0
	return sp
}

// Replicate returns a deep value snapshot of the spawn.
func (sp *Spawn) Replicate() *Spawn {
	c := *sp
	c.Transaction = *sp.Transaction.Replicate()
	return &c
}

// Materialize converts the spawn into a real, independently editable
// transaction. The caller is responsible for recording the matching
// deletion exception on the owning recurrence.
func (sp *Spawn) Materialize() *Transaction {
	t := sp.Transaction.Replicate()
	t.ID = uuid.New()
	t.MTime = time.Now()
	return t
}
