// Package persist implements the external persistence collaborator: a
// SQLite-backed saver/loader for store snapshots.
//
// The store treats saves as fire-and-forget; a failed save is logged by the
// store and never corrupts in-memory state. Loads feed the store once at
// startup via Restore.
package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added UNIQUE index on notifications.id
const currentSchemaVersion = 1

// SQLite persists store snapshots to a SQLite database.
// Uses WAL mode for concurrent read access.
type SQLite struct {
	db *sql.DB
}

// SQLite implements store.Saver.
var _ store.Saver = (*SQLite)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (p *SQLite) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Save writes the snapshot wholesale in a single transaction: all records
// of all collections plus the notification log. Either the whole snapshot
// lands or the previous one stays intact.
func (p *SQLite) Save(snap *store.Snapshot) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("save snapshot: clear records: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notifications`); err != nil {
		return fmt.Errorf("save snapshot: clear notifications: %w", err)
	}

	for _, name := range snap.Collections() {
		for pos, rec := range snap.Collection(name) {
			fieldsJSON, err := json.Marshal(rec.Fields)
			if err != nil {
				return fmt.Errorf("save snapshot: marshal fields for %s/%s: %w", name, rec.Key, err)
			}
			if _, err := tx.Exec(`
				INSERT INTO records (collection, pos, key, fields)
				VALUES (?, ?, ?, ?)
			`, name, pos, rec.Key, string(fieldsJSON)); err != nil {
				return fmt.Errorf("save snapshot: insert record %s/%s: %w", name, rec.Key, err)
			}
		}
	}

	for pos, n := range snap.Notifications() {
		if _, err := tx.Exec(`
			INSERT INTO notifications (pos, id, title, category, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, pos, n.ID, n.Title, string(n.Category), n.Source, n.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("save snapshot: insert notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// Load reads the persisted collections and notification log.
// Records come back in insertion order, notifications most-recent-first.
// Returns empty maps/slices (not an error) for a fresh database.
func (p *SQLite) Load(ctx context.Context) (map[string][]domain.Record, []domain.Notification, error) {
	collections, err := p.loadRecords(ctx)
	if err != nil {
		return nil, nil, err
	}

	notifications, err := p.loadNotifications(ctx)
	if err != nil {
		return nil, nil, err
	}

	return collections, notifications, nil
}

func (p *SQLite) loadRecords(ctx context.Context) (map[string][]domain.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT collection, key, fields
		FROM records
		ORDER BY collection ASC, pos ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	collections := make(map[string][]domain.Record)
	for rows.Next() {
		var collection, key, fieldsJSON string
		if err := rows.Scan(&collection, &key, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec := domain.Record{Key: key}
		if fieldsJSON != "" && fieldsJSON != "null" {
			if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields for %s/%s: %w", collection, key, err)
			}
		}
		collections[collection] = append(collections[collection], rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return collections, nil
}

func (p *SQLite) loadNotifications(ctx context.Context) ([]domain.Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, category, source, created_at
		FROM notifications
		ORDER BY pos ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var category, createdAt string
		if err := rows.Scan(&n.ID, &n.Title, &category, &n.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}

		n.Category = domain.Category(category)
		n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", n.ID, err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the UNIQUE index on notifications.id for existing
// databases. New databases get this from the schema.sql UNIQUE constraint,
// but DBs created before v1 need the index added explicitly.
func migrateToV1(db *sql.DB) error {
	// CREATE UNIQUE INDEX IF NOT EXISTS is safe - no-op if index exists
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_id_unique
		ON notifications(id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
