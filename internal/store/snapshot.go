package store

import (
	"github.com/roadwatch/roadwatch/internal/domain"
)

// Snapshot is an immutable point-in-time view of all store state.
//
// Snapshots are built copy-on-write: a mutation replaces the affected
// collection slice and swaps in a fresh Snapshot, so a snapshot handed out
// earlier never reflects later writes. Obtaining one is O(1).
//
// INVARIANT: the slices returned by Collection and Notifications are shared
// with the snapshot and must not be mutated by callers. Records are cloned
// on ingest, so the store never aliases caller-owned maps.
type Snapshot struct {
	revision      int64
	order         []string
	collections   map[string][]domain.Record
	notifications []domain.Notification
}

// Revision returns the logical revision this snapshot was taken at.
// Revision 0 is the empty store before any mutation.
func (s *Snapshot) Revision() int64 {
	return s.revision
}

// Collections returns the registered collection names in declaration order.
func (s *Snapshot) Collections() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether the named collection is registered.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.collections[name]
	return ok
}

// Collection returns the records of the named collection in insertion order.
// Returns nil for an unregistered collection.
func (s *Snapshot) Collection(name string) []domain.Record {
	return s.collections[name]
}

// Len returns the number of records in the named collection.
// Returns 0 for an unregistered collection.
func (s *Snapshot) Len(name string) int {
	return len(s.collections[name])
}

// Notifications returns the bounded notification log, most recent first.
func (s *Snapshot) Notifications() []domain.Notification {
	return s.notifications
}

// withCollection returns a copy of the snapshot with one collection replaced
// and the revision advanced. Untouched collections share their slices.
func (s *Snapshot) withCollection(rev int64, name string, recs []domain.Record) *Snapshot {
	next := &Snapshot{
		revision:      rev,
		order:         s.order,
		collections:   make(map[string][]domain.Record, len(s.collections)),
		notifications: s.notifications,
	}
	for k, v := range s.collections {
		next.collections[k] = v
	}
	next.collections[name] = recs
	return next
}

// withNotifications returns a copy of the snapshot with the notification log
// replaced and the revision advanced.
func (s *Snapshot) withNotifications(rev int64, notes []domain.Notification) *Snapshot {
	return &Snapshot{
		revision:      rev,
		order:         s.order,
		collections:   s.collections,
		notifications: notes,
	}
}
