package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()

	p, err := Open(filepath.Join(t.TempDir(), "roadwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()

	s := store.New([]string{"users", "vehicles"},
		store.WithIDGenerator(store.NewSequenceGenerator("note")),
		store.WithClock(func() time.Time {
			return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		}))

	require.NoError(t, s.AddRecord("users", domain.Record{
		Key:    "u1",
		Fields: map[string]string{"name": "Ada"},
	}))
	require.NoError(t, s.AddRecord("users", domain.Record{Key: "u2"}))
	require.NoError(t, s.AddRecord("vehicles", domain.Record{
		Key:    "v1",
		Fields: map[string]string{"plate": "AB-123"},
	}))
	s.PushNotification(domain.Notification{Title: "A", Category: domain.CategoryInfo, Source: "registry"})
	s.PushNotification(domain.Notification{Title: "B", Category: domain.CategoryWarning, Source: "fines"})
	return s
}

func TestSQLite_SaveLoadRoundtrip(t *testing.T) {
	p := openTestDB(t)
	s := seededStore(t)

	require.NoError(t, p.Save(s.Snapshot()))

	collections, notifications, err := p.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, collections["users"], 2)
	assert.Equal(t, "u1", collections["users"][0].Key)
	assert.Equal(t, "Ada", collections["users"][0].Field("name"))
	assert.Equal(t, "u2", collections["users"][1].Key)
	require.Len(t, collections["vehicles"], 1)
	assert.Equal(t, "AB-123", collections["vehicles"][0].Field("plate"))

	require.Len(t, notifications, 2)
	assert.Equal(t, "B", notifications[0].Title, "most-recent-first order preserved")
	assert.Equal(t, domain.CategoryWarning, notifications[0].Category)
	assert.Equal(t, "fines", notifications[0].Source)
	assert.Equal(t, "A", notifications[1].Title)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), notifications[0].CreatedAt)
}

func TestSQLite_SaveReplacesPreviousSnapshot(t *testing.T) {
	p := openTestDB(t)
	s := seededStore(t)

	require.NoError(t, p.Save(s.Snapshot()))

	require.NoError(t, s.RemoveRecord("users", "u1"))
	require.NoError(t, p.Save(s.Snapshot()))

	collections, _, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, collections["users"], 1)
	assert.Equal(t, "u2", collections["users"][0].Key)
}

func TestSQLite_LoadEmptyDatabase(t *testing.T) {
	p := openTestDB(t)

	collections, notifications, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, collections)
	assert.Empty(t, notifications)
}

func TestSQLite_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadwatch.db")

	p1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, p1.Save(seededStore(t).Snapshot()))
	require.NoError(t, p1.Close())

	// Reopening applies schema and migrations again without data loss.
	p2, err := Open(path)
	require.NoError(t, err)
	defer p2.Close()

	collections, _, err := p2.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, collections["users"], 2)
}

func TestSQLite_AsStoreSaver(t *testing.T) {
	p := openTestDB(t)

	s := store.New([]string{"fines"},
		store.WithSaver(p),
		store.WithIDGenerator(store.NewSequenceGenerator("note")))

	require.NoError(t, s.AddRecord("fines", domain.Record{Key: "f1"}))

	collections, _, err := p.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, collections["fines"], 1)
	assert.Equal(t, "f1", collections["fines"][0].Key)
}

func TestSQLite_RestoreFromLoad(t *testing.T) {
	p := openTestDB(t)
	require.NoError(t, p.Save(seededStore(t).Snapshot()))

	collections, notifications, err := p.Load(context.Background())
	require.NoError(t, err)

	fresh := store.New([]string{"users", "vehicles"})
	require.NoError(t, fresh.Restore(collections, notifications))

	snap := fresh.Snapshot()
	assert.Equal(t, 2, snap.Len("users"))
	assert.Equal(t, 1, snap.Len("vehicles"))
	require.Len(t, snap.Notifications(), 2)
	assert.Equal(t, "B", snap.Notifications()[0].Title)
}
