package model

import (
	"sort"

	"github.com/google/uuid"

	"github.com/sebkoller/moneyguru/internal/date"
)

// Recurrence is a schedule: a template transaction plus a repeat rule,
// generating one Spawn per slot. Per-slot deviations are persisted on the
// recurrence itself:
//
//   - an exception overrides a single slot (nil = the slot is deleted);
//   - a global change overrides a slot and every later un-excepted slot,
//     until a later global change takes over.
//
// Both maps are keyed by the unmodified recurrence date of the slot, never
// by the (possibly user-moved) effective date. That keeps lookups stable
// when a spawn's date is edited; losing that property makes edited slots
// silently revert to the template on the next cook.
type Recurrence struct {
	ID uuid.UUID
	// Ref is the template transaction, owned exclusively by the
	// recurrence. Its date is the schedule's start date.
	Ref         *Transaction
	RepeatType  date.RepeatType
	RepeatEvery int
	// StopDate is zero for open-ended schedules; no slot after it is
	// generated.
	StopDate date.Date

	exceptions    map[date.Date]*Spawn
	globalChanges map[date.Date]*Spawn
}

// NewRecurrence returns a schedule spawning copies of ref every
// repeatEvery units of repeatType, starting at ref's date.
func NewRecurrence(ref *Transaction, repeatType date.RepeatType, repeatEvery int) *Recurrence {
	return &Recurrence{
		ID:            uuid.New(),
		Ref:           ref,
		RepeatType:    repeatType,
		RepeatEvery:   repeatEvery,
		exceptions:    make(map[date.Date]*Spawn),
		globalChanges: make(map[date.Date]*Spawn),
	}
}

// Start returns the schedule's first slot date.
func (r *Recurrence) Start() date.Date { return r.Ref.Date }

// sortedChangeDates returns the global change slots in ascending order.
func (r *Recurrence) sortedChangeDates() []date.Date {
	dates := make([]date.Date, 0, len(r.globalChanges))
	for d := range r.globalChanges {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// templateFor returns the transaction a spawn at slot derives from: the
// latest global change at or before slot, or the reference transaction.
func (r *Recurrence) templateFor(slot date.Date) *Transaction {
	var tmpl *Transaction
	for _, d := range r.sortedChangeDates() {
		if d.After(slot) {
			break
		}
		tmpl = &r.globalChanges[d].Transaction
	}
	if tmpl == nil {
		tmpl = r.Ref
	}
	return tmpl
}

// GetSpawns generates the spawns of every slot up to and including until.
// Deleted slots are skipped, excepted slots come out as stored (deep
// copied), and everything else derives from the template in effect.
// Exceptions keyed to slots the rule no longer produces are silently
// ignored.
func (r *Recurrence) GetSpawns(until date.Date) []*Spawn {
	var spawns []*Spawn
	counter := date.NewCounter(r.Start(), r.RepeatType, r.RepeatEvery, until.AddDays(1))
	for slot, ok := counter.Next(); ok; slot, ok = counter.Next() {
		if !r.StopDate.IsZero() && slot.After(r.StopDate) {
			break
		}
		if exc, found := r.exceptions[slot]; found {
			if exc == nil {
				continue
			}
			spawns = append(spawns, exc.Replicate())
			continue
		}
		tmpl := r.templateFor(slot)
		sp := newSpawn(tmpl, ScheduleSpawn, r.ID, slot, slot)
		spawns = append(spawns, sp)
	}
	return spawns
}

// Owns reports whether sp was generated by this recurrence.
func (r *Recurrence) Owns(sp *Spawn) bool {
	return sp.RecurrenceID == r.ID
}

// SetException records sp as the single-slot override for its slot.
func (r *Recurrence) SetException(sp *Spawn) {
	r.exceptions[sp.RecurrenceDate] = sp.Replicate()
}

// ChangeGlobally records sp as the template for its slot and every later
// one. Later global changes and later one-off edits are superseded;
// deletions of later slots stay deleted.
func (r *Recurrence) ChangeGlobally(sp *Spawn) {
	for d := range r.globalChanges {
		if !d.Before(sp.RecurrenceDate) {
			delete(r.globalChanges, d)
		}
	}
	for d, exc := range r.exceptions {
		if exc != nil && !d.Before(sp.RecurrenceDate) {
			delete(r.exceptions, d)
		}
	}
	r.globalChanges[sp.RecurrenceDate] = sp.Replicate()
}

// DeleteAt marks a slot as deleted.
func (r *Recurrence) DeleteAt(slot date.Date) {
	r.exceptions[slot] = nil
}

// Delete removes sp's occurrence from the schedule.
func (r *Recurrence) Delete(sp *Spawn) {
	r.DeleteAt(sp.RecurrenceDate)
}

// StopBefore truncates the schedule just before sp. When sp sits on its
// slot, the stop date lands right before it. When sp's effective date was
// moved off its slot, a date-based truncation could cut neighboring slots
// that are still valid, so only sp's own slot is dropped.
func (r *Recurrence) StopBefore(sp *Spawn) {
	if sp.Date.Equal(sp.RecurrenceDate) {
		r.StopDate = sp.RecurrenceDate.AddDays(-1)
		return
	}
	r.DeleteAt(sp.RecurrenceDate)
}

// Materialize turns sp into a real transaction and deletes its slot so it
// isn't spawned again. The returned transaction is not yet part of any
// list.
func (r *Recurrence) Materialize(sp *Spawn) *Transaction {
	r.DeleteAt(sp.RecurrenceDate)
	return sp.Materialize()
}

// ResetExceptions drops every exception and global change; used when the
// repeat rule itself is rewritten, which re-slots the whole schedule.
func (r *Recurrence) ResetExceptions() {
	r.exceptions = make(map[date.Date]*Spawn)
	r.globalChanges = make(map[date.Date]*Spawn)
}

// ExceptionSlots returns the exception slots in ascending order, deleted
// slots included.
func (r *Recurrence) ExceptionSlots() []date.Date {
	dates := make([]date.Date, 0, len(r.exceptions))
	for d := range r.exceptions {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ExceptionAt returns the exception stored for slot; a (nil, true) result
// means the slot is deleted.
func (r *Recurrence) ExceptionAt(slot date.Date) (*Spawn, bool) {
	sp, ok := r.exceptions[slot]
	return sp, ok
}

// GlobalChangeSlots returns the global change slots in ascending order.
func (r *Recurrence) GlobalChangeSlots() []date.Date {
	return r.sortedChangeDates()
}

// GlobalChangeAt returns the global change stored for slot.
func (r *Recurrence) GlobalChangeAt(slot date.Date) (*Spawn, bool) {
	sp, ok := r.globalChanges[slot]
	return sp, ok
}

// Replicate returns a deep value snapshot sharing the recurrence's
// identity.
func (r *Recurrence) Replicate() *Recurrence {
	c := *r
	c.Ref = r.Ref.Replicate()
	c.exceptions = make(map[date.Date]*Spawn, len(r.exceptions))
	for d, sp := range r.exceptions {
		if sp == nil {
			c.exceptions[d] = nil
		} else {
			c.exceptions[d] = sp.Replicate()
		}
	}
	c.globalChanges = make(map[date.Date]*Spawn, len(r.globalChanges))
	for d, sp := range r.globalChanges {
		c.globalChanges[d] = sp.Replicate()
	}
	return &c
}

// CopyFrom overwrites everything but identity with a deep copy of other's
// state.
func (r *Recurrence) CopyFrom(other *Recurrence) {
	snapshot := other.Replicate()
	id := r.ID
	*r = *snapshot
	r.ID = id
}

// ScheduleList is the document's schedules in creation order.
type ScheduleList struct {
	schedules []*Recurrence
}

// NewScheduleList returns an empty schedule list.
func NewScheduleList() *ScheduleList {
	return &ScheduleList{}
}

// Add appends a schedule.
func (sl *ScheduleList) Add(r *Recurrence) {
	sl.schedules = append(sl.schedules, r)
}

// Remove drops a schedule.
func (sl *ScheduleList) Remove(r *Recurrence) {
	for i, existing := range sl.schedules {
		if existing == r {
			sl.schedules = append(sl.schedules[:i], sl.schedules[i+1:]...)
			return
		}
	}
}

// All returns the schedules in order. The slice is shared; callers must
// not mutate it.
func (sl *ScheduleList) All() []*Recurrence { return sl.schedules }

// Len returns the number of schedules.
func (sl *ScheduleList) Len() int { return len(sl.schedules) }

// OwnerOf returns the schedule that generated sp, nil when none does
// (e.g. a budget spawn).
func (sl *ScheduleList) OwnerOf(sp *Spawn) *Recurrence {
	for _, r := range sl.schedules {
		if r.Owns(sp) {
			return r
		}
	}
	return nil
}
