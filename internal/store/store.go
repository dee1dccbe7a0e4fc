// Package store implements the observable domain store backing the
// violation-tracking dashboard: named key-unique collections of records plus
// a bounded, most-recent-first notification log, with synchronous change
// notification to subscribers.
package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/metrics"
)

// ScopeNotifications is the change scope reported when the notification log
// changes. Collection changes report the collection name as their scope.
const ScopeNotifications = "notifications"

// DefaultNotificationCap is the default bound on the notification log.
const DefaultNotificationCap = 50

// Saver receives every post-mutation snapshot for external persistence.
//
// Calls are fire-and-forget: a Save error is logged and counted but never
// affects in-memory state or the outcome of the mutation that triggered it.
type Saver interface {
	Save(snap *Snapshot) error
}

// Subscriber is notified synchronously after every successful mutation with
// the scope that changed: a collection name, or ScopeNotifications.
//
// CRITICAL: subscribers run inside the mutation and must not call back into
// store mutation methods; doing so would deadlock on the write lock. Mark
// state and defer work instead (see the binding package).
type Subscriber func(scope string)

// Store owns all collections and the notification log and serializes
// mutation.
//
// Thread-safety model:
//   - Mutations (AddRecord, UpdateRecord, RemoveRecord, PushNotification,
//     Restore) are serialized on an internal write lock and are atomic from
//     the caller's perspective: either the snapshot is swapped and all
//     subscribers notified, or nothing changed.
//   - Snapshot() is lock-free and safe from any goroutine.
//   - Subscribe/cancel are safe from any goroutine.
//
// INVARIANTS:
//   - Record keys are unique within a collection at all times.
//   - Notification log length never exceeds the configured cap; the oldest
//     entries are evicted first.
//   - Collection registration order never changes after construction.
type Store struct {
	writeMu sync.Mutex
	state   atomic.Pointer[Snapshot]
	clock   revisionClock

	cap   int
	now   func() time.Time
	ids   IDGenerator
	saver Saver

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

// Option configures a Store at construction.
type Option func(*Store)

// WithNotificationCap sets the bound on the notification log.
// Values below 1 are ignored.
func WithNotificationCap(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.cap = n
		}
	}
}

// WithClock overrides the wall clock used to stamp notifications.
// Used by tests and the scenario harness for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the notification ID generator.
// Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithSaver attaches a persistence collaborator that receives every
// post-mutation snapshot.
func WithSaver(saver Saver) Option {
	return func(s *Store) {
		s.saver = saver
	}
}

// New creates an empty store with the given collections registered in
// declaration order. Duplicate names are ignored (first occurrence wins).
//
// The store is an explicit instance handed to consumers by reference; there
// is no ambient global.
func New(collections []string, opts ...Option) *Store {
	s := &Store{
		cap:  DefaultNotificationCap,
		now:  time.Now,
		ids:  UUIDv7Generator{},
		subs: make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap := &Snapshot{
		collections: make(map[string][]domain.Record, len(collections)),
	}
	for _, name := range collections {
		if _, ok := snap.collections[name]; ok {
			continue
		}
		snap.order = append(snap.order, name)
		snap.collections[name] = nil
	}
	s.state.Store(snap)
	return s
}

// Snapshot returns the current immutable snapshot. O(1), lock-free, safe
// from any goroutine. The snapshot never reflects later mutations.
func (s *Store) Snapshot() *Snapshot {
	return s.state.Load()
}

// NotificationCap returns the configured bound on the notification log.
func (s *Store) NotificationCap() int {
	return s.cap
}

// Subscribe registers a subscriber for change notification and returns a
// cancel function. After cancel returns, the subscriber is never invoked
// again by a subsequent mutation.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// AddRecord appends a record to the named collection.
//
// Fails with DUPLICATE_KEY if the key already exists in the collection,
// NOT_FOUND if the collection is not registered, and INVALID_ARGUMENT for an
// empty key. On success the change is visible to new snapshots and all
// subscribers have been notified before AddRecord returns.
func (s *Store) AddRecord(collection string, rec domain.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.state.Load()
	recs, ok := snap.collections[collection]
	if !ok {
		return s.reject("add", NewUnknownCollectionError(collection))
	}

	key := normalizeKey(rec.Key)
	if key == "" {
		return s.reject("add", NewInvalidArgumentError("record key must not be empty"))
	}
	if indexOf(recs, key) >= 0 {
		return s.reject("add", NewDuplicateKeyError(collection, key))
	}

	stored := rec.Clone()
	stored.Key = key

	next := make([]domain.Record, len(recs)+1)
	copy(next, recs)
	next[len(recs)] = stored

	s.commit("add", collection, snap.withCollection(s.clock.next(), collection, next))
	return nil
}

// UpdateRecord replaces the record under key with a copy merged with patch.
// Patch fields overwrite or add; fields absent from the patch are kept.
//
// Fails with NOT_FOUND if the key is absent or the collection is not
// registered. The stored record is never mutated in place, so snapshots
// taken before the update keep the old record.
func (s *Store) UpdateRecord(collection, key string, patch map[string]string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.state.Load()
	recs, ok := snap.collections[collection]
	if !ok {
		return s.reject("update", NewUnknownCollectionError(collection))
	}

	key = normalizeKey(key)
	i := indexOf(recs, key)
	if i < 0 {
		return s.reject("update", NewNotFoundError(collection, key))
	}

	next := make([]domain.Record, len(recs))
	copy(next, recs)
	next[i] = recs[i].Merge(patch)

	s.commit("update", collection, snap.withCollection(s.clock.next(), collection, next))
	return nil
}

// RemoveRecord removes the record under key from the named collection.
//
// Fails with NOT_FOUND if the key is absent or the collection is not
// registered. Insertion order of the remaining records is preserved.
func (s *Store) RemoveRecord(collection, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.state.Load()
	recs, ok := snap.collections[collection]
	if !ok {
		return s.reject("remove", NewUnknownCollectionError(collection))
	}

	key = normalizeKey(key)
	i := indexOf(recs, key)
	if i < 0 {
		return s.reject("remove", NewNotFoundError(collection, key))
	}

	next := make([]domain.Record, 0, len(recs)-1)
	next = append(next, recs[:i]...)
	next = append(next, recs[i+1:]...)

	s.commit("remove", collection, snap.withCollection(s.clock.next(), collection, next))
	return nil
}

// PushNotification prepends a notification to the bounded log, evicting from
// the tail once the cap is exceeded. An empty ID and a zero CreatedAt are
// filled in from the store's generator and clock.
//
// Returns the notification as stored.
func (s *Store) PushNotification(n domain.Notification) domain.Notification {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if n.ID == "" {
		n.ID = s.ids.Generate()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	snap := s.state.Load()
	old := snap.notifications

	size := len(old) + 1
	if size > s.cap {
		size = s.cap
	}
	next := make([]domain.Notification, size)
	next[0] = n
	copied := copy(next[1:], old)

	if evicted := len(old) - copied; evicted > 0 {
		metrics.EvictionsTotal.Add(float64(evicted))
	}

	s.commit("notify", ScopeNotifications, snap.withNotifications(s.clock.next(), next))
	return n
}

// Restore replaces all collections and the notification log wholesale with
// externally loaded state. Used at startup with data from the persistence
// collaborator or a seed directory.
//
// Fails with NOT_FOUND for an unregistered collection and DUPLICATE_KEY if
// loaded data violates key uniqueness; on failure nothing changes. The
// notification log is truncated to the cap. Subscribers are notified once
// per registered collection plus once for notifications. The saver is not
// invoked - restored state just came from the collaborator.
func (s *Store) Restore(collections map[string][]domain.Record, notifications []domain.Notification) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.state.Load()

	for name := range collections {
		if _, ok := snap.collections[name]; !ok {
			return s.reject("restore", NewUnknownCollectionError(name))
		}
	}

	next := &Snapshot{
		revision:    s.clock.next(),
		order:       snap.order,
		collections: make(map[string][]domain.Record, len(snap.collections)),
	}
	for _, name := range snap.order {
		recs := collections[name]
		seen := make(map[string]struct{}, len(recs))
		clean := make([]domain.Record, 0, len(recs))
		for _, rec := range recs {
			key := normalizeKey(rec.Key)
			if key == "" {
				return s.reject("restore", NewInvalidArgumentError("record key must not be empty"))
			}
			if _, dup := seen[key]; dup {
				return s.reject("restore", NewDuplicateKeyError(name, key))
			}
			seen[key] = struct{}{}
			stored := rec.Clone()
			stored.Key = key
			clean = append(clean, stored)
		}
		next.collections[name] = clean
	}

	notes := notifications
	if len(notes) > s.cap {
		notes = notes[:s.cap]
	}
	next.notifications = make([]domain.Notification, len(notes))
	copy(next.notifications, notes)

	s.state.Store(next)
	metrics.Revision.Set(float64(next.revision))
	for _, name := range snap.order {
		metrics.MutationsTotal.WithLabelValues("restore", name).Inc()
		s.notify(name)
	}
	metrics.MutationsTotal.WithLabelValues("restore", ScopeNotifications).Inc()
	s.notify(ScopeNotifications)
	return nil
}

// commit swaps in the next snapshot, then notifies subscribers and the saver.
// Called with writeMu held, which serializes the whole mutation including
// subscriber notification.
func (s *Store) commit(op, scope string, next *Snapshot) {
	s.state.Store(next)
	metrics.MutationsTotal.WithLabelValues(op, scope).Inc()
	metrics.Revision.Set(float64(next.revision))

	s.notify(scope)

	if s.saver != nil {
		if err := s.saver.Save(next); err != nil {
			metrics.SaveFailuresTotal.Inc()
			slog.Error("snapshot save failed",
				"error", err,
				"op", op,
				"scope", scope,
				"revision", next.revision,
			)
		}
	}
}

// notify invokes all current subscribers synchronously.
func (s *Store) notify(scope string) {
	s.subMu.Lock()
	fns := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(scope)
	}
}

// reject records a rejected operation and returns its error unchanged.
func (s *Store) reject(op string, err *Error) error {
	metrics.RejectionsTotal.WithLabelValues(op, string(err.Code)).Inc()
	return err
}

// normalizeKey applies NFC normalization so visually identical keys compare
// equal regardless of the Unicode form they arrived in.
func normalizeKey(key string) string {
	return norm.NFC.String(key)
}

// indexOf returns the position of key in recs, or -1.
// Collections are dashboard-sized; a linear scan is deliberate.
func indexOf(recs []domain.Record, key string) int {
	for i, r := range recs {
		if r.Key == key {
			return i
		}
	}
	return -1
}
