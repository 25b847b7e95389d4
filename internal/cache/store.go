package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// ChatAPIKeyName is the fixed credential name under which the chat
// backend's API key is stored.
const ChatAPIKeyName = "gemini_api_key"

// schemaVersion is the current schema version recorded in PRAGMA
// user_version. Migrations run in order from the stored version up to this
// one and must preserve existing rows.
const schemaVersion = 2

// Store provides SQLite-backed storage for the local scan mirror and the
// chat credential.
//
// Design decision: We keep one database file per user profile rather than
// per scan. The scan history view is a single newest-first query, and a
// single file keeps backup/restore trivial.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the cache database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// is returned instead of creating an empty cache.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "sitesense.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, storageErr("open", fmt.Errorf("database not found at %s", dbPath))
		} else if err != nil {
			return nil, storageErr("open", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, storageErr("open", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}

	// SQLite supports a single writer; extra connections only add lock
	// contention for this workload.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, storageErr("open", fmt.Errorf("enable WAL: %w", err))
		}
	}

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// migrate brings the schema up to schemaVersion. Each step only adds
// collections or indexes; existing records survive every upgrade.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return storageErr("migrate", err)
	}

	if version < 1 {
		schema := `
		-- Scans mirror remote scan records keyed by the service-assigned id.
		-- record_json holds the full last-known snapshot; the remaining
		-- columns exist for listing without decoding every record.
		CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			record_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);
		`
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return storageErr("migrate", err)
		}
	}

	if version < 2 {
		schema := `
		-- Keys store named opaque credentials, independent of scan records.
		CREATE TABLE IF NOT EXISTS keys (
			name TEXT PRIMARY KEY,
			secret TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		`
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return storageErr("migrate", err)
		}
	}

	if version < schemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return storageErr("migrate", err)
		}
	}

	return nil
}

// Put upserts a scan record with full-record replace semantics.
// A write that would regress the cached status (e.g. a stale queued
// snapshot arriving after the scan completed) is silently dropped; the
// cache only ever moves forward through the scan lifecycle.
func (s *Store) Put(ctx context.Context, record *model.ScanRecord) error {
	existing, err := s.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	if existing != nil && !record.Status.AtLeast(existing.Status) {
		return nil
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return storageErr("put scan", err)
	}

	query := `
	INSERT INTO scans (id, url, status, created_at, record_json)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		status = excluded.status,
		created_at = excluded.created_at,
		record_json = excluded.record_json
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.URL,
		string(record.Status),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(recordJSON),
	)
	return storageErr("put scan", err)
}

// Get retrieves a scan record by id. Returns nil without error when the
// record is not cached.
func (s *Store) Get(ctx context.Context, id string) (*model.ScanRecord, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT record_json FROM scans WHERE id = ?", id,
	).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get scan", err)
	}

	var record model.ScanRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, storageErr("get scan", err)
	}
	return &record, nil
}

// GetAll returns all cached scan records ordered by created_at descending,
// regardless of insertion order.
func (s *Store) GetAll(ctx context.Context) ([]model.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record_json FROM scans ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, storageErr("list scans", err)
	}
	defer rows.Close()

	var records []model.ScanRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, storageErr("list scans", err)
		}

		var record model.ScanRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			continue // Skip malformed records rather than failing the listing.
		}
		records = append(records, record)
	}

	return records, storageErr("list scans", rows.Err())
}

// Delete removes a scan record by id. Deleting an absent id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE id = ?", id)
	return storageErr("delete scan", err)
}

// Clear removes all scan records. The keys collection is untouched.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM scans")
	return storageErr("clear scans", err)
}

// PutKey stores a named credential, replacing any previous value.
func (s *Store) PutKey(ctx context.Context, name, secret string) error {
	query := `
	INSERT INTO keys (name, secret, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(name) DO UPDATE SET
		secret = excluded.secret,
		updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query, name, secret)
	return storageErr("put key", err)
}

// Key retrieves a named credential. The second return value reports
// whether the credential exists.
func (s *Store) Key(ctx context.Context, name string) (string, bool, error) {
	var secret string
	err := s.db.QueryRowContext(ctx,
		"SELECT secret FROM keys WHERE name = ?", name,
	).Scan(&secret)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get key", err)
	}
	return secret, true, nil
}

// DeleteKey removes a named credential. Deleting an absent name is not an
// error.
func (s *Store) DeleteKey(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM keys WHERE name = ?", name)
	return storageErr("delete key", err)
}
