package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/roadwatch/internal/domain"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	base := []Option{
		WithIDGenerator(NewSequenceGenerator("note")),
		WithClock(fixedClock(t)),
	}
	return New([]string{"users", "vehicles", "violations", "fines"}, append(base, opts...)...)
}

// fixedClock returns a clock that advances one second per call from a fixed
// base, keeping timestamps deterministic.
func fixedClock(t *testing.T) func() time.Time {
	t.Helper()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestStore_AddRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.AddRecord("users", domain.Record{Key: "u1", Fields: map[string]string{"name": "Ada"}})
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Equal(t, 1, snap.Len("users"))
	assert.Equal(t, "u1", snap.Collection("users")[0].Key)
	assert.Equal(t, "Ada", snap.Collection("users")[0].Field("name"))
	assert.Equal(t, int64(1), snap.Revision())
}

func TestStore_AddRecord_DuplicateKey(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))

	err := s.AddRecord("users", domain.Record{Key: "u1"})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	// Rejected add never changes collection length.
	assert.Equal(t, 1, s.Snapshot().Len("users"))
	assert.Equal(t, int64(1), s.Snapshot().Revision(), "rejected mutation must not advance revision")
}

func TestStore_AddRecord_UnknownCollection(t *testing.T) {
	s := newTestStore(t)

	err := s.AddRecord("permits", domain.Record{Key: "p1"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_AddRecord_EmptyKey(t *testing.T) {
	s := newTestStore(t)

	err := s.AddRecord("users", domain.Record{})
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
}

func TestStore_AddRecord_SameKeyDifferentCollections(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "x1"}))
	require.NoError(t, s.AddRecord("vehicles", domain.Record{Key: "x1"}))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Len("users"))
	assert.Equal(t, 1, snap.Len("vehicles"))
}

func TestStore_AddRecord_NormalizesKey(t *testing.T) {
	s := newTestStore(t)

	// "é" precomposed vs "e" + combining acute - same key after NFC.
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "josé"}))

	err := s.AddRecord("users", domain.Record{Key: "josé"})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestStore_UpdateRecord_MergesPatch(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddRecord("vehicles", domain.Record{
		Key:    "v1",
		Fields: map[string]string{"plate": "AB-123", "owner": "u1"},
	}))

	before := s.Snapshot()

	err := s.UpdateRecord("vehicles", "v1", map[string]string{"plate": "CD-456", "color": "red"})
	require.NoError(t, err)

	got := s.Snapshot().Collection("vehicles")[0]
	assert.Equal(t, "CD-456", got.Field("plate"))
	assert.Equal(t, "u1", got.Field("owner"), "fields absent from the patch are kept")
	assert.Equal(t, "red", got.Field("color"))

	// Earlier snapshot keeps the old record - writes replace, never mutate.
	assert.Equal(t, "AB-123", before.Collection("vehicles")[0].Field("plate"))
}

func TestStore_UpdateRecord_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateRecord("vehicles", "v9", map[string]string{"plate": "ZZ-999"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_RemoveRecord(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u2"}))
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u3"}))

	require.NoError(t, s.RemoveRecord("users", "u2"))

	recs := s.Snapshot().Collection("users")
	require.Len(t, recs, 2)
	assert.Equal(t, "u1", recs[0].Key)
	assert.Equal(t, "u3", recs[1].Key, "insertion order preserved after removal")
}

func TestStore_RemoveRecord_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.RemoveRecord("users", "u1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_AddRemoveSequence(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u2"}))
	require.NoError(t, s.RemoveRecord("users", "u1"))

	assert.Equal(t, 1, s.Snapshot().Len("users"))
}

func TestStore_PushNotification_FillsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)

	stored := s.PushNotification(domain.Notification{
		Title:    "Fine issued",
		Category: domain.CategoryWarning,
		Source:   "fines",
	})

	assert.Equal(t, "note-1", stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())

	notes := s.Snapshot().Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, stored, notes[0])
}

func TestStore_PushNotification_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)

	s.PushNotification(domain.Notification{Title: "A", Category: domain.CategoryInfo})
	s.PushNotification(domain.Notification{Title: "B", Category: domain.CategoryInfo})
	s.PushNotification(domain.Notification{Title: "C", Category: domain.CategoryInfo})

	notes := s.Snapshot().Notifications()
	require.Len(t, notes, 3)
	assert.Equal(t, "C", notes[0].Title)
	assert.Equal(t, "B", notes[1].Title)
	assert.Equal(t, "A", notes[2].Title)
}

func TestStore_PushNotification_EvictsOldestAtCap(t *testing.T) {
	s := newTestStore(t, WithNotificationCap(2))

	s.PushNotification(domain.Notification{Title: "A", Category: domain.CategoryInfo})
	s.PushNotification(domain.Notification{Title: "B", Category: domain.CategoryInfo})
	s.PushNotification(domain.Notification{Title: "C", Category: domain.CategoryInfo})

	notes := s.Snapshot().Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "C", notes[0].Title)
	assert.Equal(t, "B", notes[1].Title)
}

func TestStore_Snapshot_DoesNotReflectLaterMutations(t *testing.T) {
	s := newTestStore(t)

	before := s.Snapshot()
	require.NoError(t, s.AddRecord("fines", domain.Record{Key: "f1"}))
	s.PushNotification(domain.Notification{Title: "A", Category: domain.CategoryInfo})

	assert.Equal(t, 0, before.Len("fines"))
	assert.Empty(t, before.Notifications())
	assert.Equal(t, int64(0), before.Revision())

	after := s.Snapshot()
	assert.Equal(t, 1, after.Len("fines"))
	assert.Len(t, after.Notifications(), 1)
}

func TestStore_IngestClonesCallerMap(t *testing.T) {
	s := newTestStore(t)

	fields := map[string]string{"name": "Ada"}
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1", Fields: fields}))

	fields["name"] = "mutated"
	assert.Equal(t, "Ada", s.Snapshot().Collection("users")[0].Field("name"))
}

func TestStore_Subscribe_NotifiedBeforeMutationReturns(t *testing.T) {
	s := newTestStore(t)

	var scopes []string
	cancel := s.Subscribe(func(scope string) {
		scopes = append(scopes, scope)
	})
	defer cancel()

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))
	assert.Equal(t, []string{"users"}, scopes)

	s.PushNotification(domain.Notification{Title: "A", Category: domain.CategoryInfo})
	assert.Equal(t, []string{"users", ScopeNotifications}, scopes)
}

func TestStore_Subscribe_NotNotifiedOnRejection(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))

	calls := 0
	cancel := s.Subscribe(func(string) { calls++ })
	defer cancel()

	require.Error(t, s.AddRecord("users", domain.Record{Key: "u1"}))
	require.Error(t, s.RemoveRecord("users", "absent"))
	assert.Zero(t, calls)
}

func TestStore_Subscribe_CancelStopsNotifications(t *testing.T) {
	s := newTestStore(t)

	calls := 0
	cancel := s.Subscribe(func(string) { calls++ })

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))
	cancel()
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u2"}))

	assert.Equal(t, 1, calls)
}

type failingSaver struct{ calls int }

func (f *failingSaver) Save(*Snapshot) error {
	f.calls++
	return assert.AnError
}

func TestStore_SaverFailureDoesNotAffectState(t *testing.T) {
	saver := &failingSaver{}
	s := newTestStore(t, WithSaver(saver))

	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u1"}))

	assert.Equal(t, 1, saver.calls)
	assert.Equal(t, 1, s.Snapshot().Len("users"), "saver failure must not corrupt in-memory state")
}

func TestStore_Restore(t *testing.T) {
	s := newTestStore(t)

	var scopes []string
	cancel := s.Subscribe(func(scope string) { scopes = append(scopes, scope) })
	defer cancel()

	err := s.Restore(
		map[string][]domain.Record{
			"users":    {{Key: "u1"}, {Key: "u2"}},
			"vehicles": {{Key: "v1"}},
		},
		[]domain.Notification{
			{ID: "n2", Title: "B", Category: domain.CategoryWarning},
			{ID: "n1", Title: "A", Category: domain.CategoryInfo},
		},
	)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Len("users"))
	assert.Equal(t, 1, snap.Len("vehicles"))
	assert.Equal(t, 0, snap.Len("violations"))
	require.Len(t, snap.Notifications(), 2)
	assert.Equal(t, "B", snap.Notifications()[0].Title)

	assert.Contains(t, scopes, "users")
	assert.Contains(t, scopes, ScopeNotifications)
}

func TestStore_Restore_RejectsDuplicateKeys(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "keep"}))

	err := s.Restore(map[string][]domain.Record{
		"users": {{Key: "u1"}, {Key: "u1"}},
	}, nil)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	// Failed restore leaves the store untouched.
	assert.Equal(t, "keep", s.Snapshot().Collection("users")[0].Key)
}

func TestStore_Restore_TruncatesToCap(t *testing.T) {
	s := newTestStore(t, WithNotificationCap(2))

	err := s.Restore(nil, []domain.Notification{
		{ID: "n3", Title: "C"}, {ID: "n2", Title: "B"}, {ID: "n1", Title: "A"},
	})
	require.NoError(t, err)

	notes := s.Snapshot().Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "C", notes[0].Title)
	assert.Equal(t, "B", notes[1].Title)
}

func TestStore_NoAmbientGlobal(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)

	require.NoError(t, a.AddRecord("users", domain.Record{Key: "u1"}))
	assert.Equal(t, 0, b.Snapshot().Len("users"))
}
