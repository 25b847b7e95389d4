package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// setupTestStore creates a temporary cache store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// record builds a minimal scan record for tests.
func record(id string, status model.Status, createdAt time.Time) *model.ScanRecord {
	return &model.ScanRecord{
		ID:        id,
		URL:       "https://example.com/" + id,
		Status:    status,
		CreatedAt: createdAt,
	}
}

// TestOpen tests store opening and creation modes.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()
	})

	t.Run("CreateIfNotExists=false errors on missing database", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false, EnableWAL: true}
		_, err := Open(filepath.Join(t.TempDir(), "nope"), opts)
		if err == nil {
			t.Fatal("Open() should fail when database does not exist")
		}

		var se *StorageError
		if !errors.As(err, &se) {
			t.Errorf("error should be *StorageError, got %T", err)
		}
	})

	t.Run("reopening preserves records across migrations", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		ctx := context.Background()

		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		if err := store.Put(ctx, record("keep-me", model.StatusQueued, time.Now().UTC())); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		_ = store.Close()

		reopened, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.Get(ctx, "keep-me")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got == nil {
			t.Fatal("record should survive reopen")
		}
	})
}

// TestPutAndGet tests upsert and retrieval semantics.
func TestPutAndGet(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("missing record returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, "absent")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("Get() = %+v, want nil", got)
		}
	})

	t.Run("put then get round trips", func(t *testing.T) {
		created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		rec := record("scan-1", model.StatusQueued, created)

		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := store.Get(ctx, "scan-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got == nil {
			t.Fatal("Get() = nil, want record")
		}
		if got.URL != rec.URL || got.Status != model.StatusQueued {
			t.Errorf("Get() = %+v, want %+v", got, rec)
		}
	})

	t.Run("upsert replaces the whole record", func(t *testing.T) {
		created := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
		if err := store.Put(ctx, record("scan-2", model.StatusQueued, created)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		completed := record("scan-2", model.StatusCompleted, created)
		completed.ErrorMessage = ""
		completed.ModuleResults = []model.ModuleResult{
			{ModuleName: model.AggregatedReportModuleName, ResultJSON: []byte(`{"overall_score": 72}`)},
		}
		if err := store.Put(ctx, completed); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := store.Get(ctx, "scan-2")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != model.StatusCompleted {
			t.Errorf("status = %q, want completed", got.Status)
		}
		if len(got.ModuleResults) != 1 {
			t.Errorf("module results length = %d, want 1", len(got.ModuleResults))
		}
	})
}

// TestPutRefusesRegression tests the forward-only status guard.
func TestPutRefusesRegression(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	if err := store.Put(ctx, record("scan-1", model.StatusCompleted, created)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// A stale queued snapshot must not overwrite the terminal record.
	if err := store.Put(ctx, record("scan-1", model.StatusQueued, created)); err != nil {
		t.Fatalf("Put() of stale record error = %v", err)
	}

	got, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed (stale write must be dropped)", got.Status)
	}
}

// TestGetAllOrdering tests newest-first listing regardless of insertion
// order.
func TestGetAllOrdering(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	// Insert out of chronological order.
	for _, tt := range []struct {
		id     string
		offset time.Duration
	}{
		{"middle", 1 * time.Hour},
		{"newest", 2 * time.Hour},
		{"oldest", 0},
	} {
		if err := store.Put(ctx, record(tt.id, model.StatusQueued, base.Add(tt.offset))); err != nil {
			t.Fatalf("Put(%s) error = %v", tt.id, err)
		}
	}

	records, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	want := []string{"newest", "middle", "oldest"}
	if len(records) != len(want) {
		t.Fatalf("GetAll() returned %d records, want %d", len(records), len(want))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, id)
		}
	}
}

// TestDeleteAndClear tests record removal.
func TestDeleteAndClear(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, record(id, model.StatusQueued, now)); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	t.Run("delete removes one record", func(t *testing.T) {
		if err := store.Delete(ctx, "b"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		got, err := store.Get(ctx, "b")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Error("deleted record should be absent")
		}
	})

	t.Run("delete of absent id is not an error", func(t *testing.T) {
		if err := store.Delete(ctx, "b"); err != nil {
			t.Errorf("Delete() of absent id error = %v", err)
		}
	})

	t.Run("clear removes all scans but keeps credentials", func(t *testing.T) {
		if err := store.PutKey(ctx, ChatAPIKeyName, "secret"); err != nil {
			t.Fatalf("PutKey() error = %v", err)
		}

		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		records, err := store.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("GetAll() after Clear() = %d records, want 0", len(records))
		}

		secret, ok, err := store.Key(ctx, ChatAPIKeyName)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if !ok || secret != "secret" {
			t.Error("credential should survive Clear()")
		}
	})
}

// TestKeys tests the credential collection.
func TestKeys(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		_, ok, err := store.Key(ctx, ChatAPIKeyName)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if ok {
			t.Error("Key() reported a credential that was never stored")
		}
	})

	t.Run("put, replace, delete", func(t *testing.T) {
		if err := store.PutKey(ctx, ChatAPIKeyName, "first"); err != nil {
			t.Fatalf("PutKey() error = %v", err)
		}
		if err := store.PutKey(ctx, ChatAPIKeyName, "second"); err != nil {
			t.Fatalf("PutKey() replace error = %v", err)
		}

		secret, ok, err := store.Key(ctx, ChatAPIKeyName)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if !ok || secret != "second" {
			t.Errorf("Key() = (%q, %v), want (\"second\", true)", secret, ok)
		}

		if err := store.DeleteKey(ctx, ChatAPIKeyName); err != nil {
			t.Fatalf("DeleteKey() error = %v", err)
		}
		if _, ok, _ := store.Key(ctx, ChatAPIKeyName); ok {
			t.Error("credential should be gone after DeleteKey()")
		}
	})
}
