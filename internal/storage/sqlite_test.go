package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "tiffin.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.Get(ctx, KeyOrders); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, KeyOrders, `[]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeyOrders, `[{"id":"1"}]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, ok, err := s.Get(ctx, KeyOrders)
	if err != nil || !ok {
		t.Fatalf("expected stored key, got ok=%v err=%v", ok, err)
	}
	if got != `[{"id":"1"}]` {
		t.Fatalf("expected last write to win, got %s", got)
	}
}

func TestSQLiteStoreMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiffin.db")
	for i := 0; i < 2; i++ {
		s, err := NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
		s.Close()
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil || dirty || version != 1 {
		t.Fatalf("expected clean schema version 1, got %d dirty=%v err=%v", version, dirty, err)
	}
}

func TestSchemaVersionOfFreshDatabase(t *testing.T) {
	version, dirty, err := SchemaVersion(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil || dirty || version != 0 {
		t.Fatalf("expected version 0, got %d dirty=%v err=%v", version, dirty, err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var names []string
	ok, err := GetJSON(ctx, s, KeyMembers, &names)
	if err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}

	if err := PutJSON(ctx, s, KeyMembers, []string{"a", "b"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	ok, err = GetJSON(ctx, s, KeyMembers, &names)
	if err != nil || !ok {
		t.Fatalf("expected value, got ok=%v err=%v", ok, err)
	}
	if len(names) != 2 || names[1] != "b" {
		t.Fatalf("unexpected decode %v", names)
	}

	if err := s.Set(ctx, KeyMembers, "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := GetJSON(ctx, s, KeyMembers, &names); err == nil {
		t.Fatalf("expected decode error")
	}
}

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &SQLiteStore{db: db}, mock
}

func TestSQLiteStoreGetWrapsQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT value FROM kv_store").
		WithArgs(KeyOrders).
		WillReturnError(errors.New("database is locked"))

	_, ok, err := s.Get(context.Background(), KeyOrders)
	if err == nil || ok {
		t.Fatalf("expected error, got ok=%v err=%v", ok, err)
	}
	if !strings.Contains(err.Error(), "select orders") || !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStoreGetMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT value FROM kv_store").
		WithArgs(KeyMembers).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	if _, ok, err := s.Get(context.Background(), KeyMembers); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreSetWrapsExecError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs(KeyOrders, `[]`).
		WillReturnError(errors.New("disk I/O error"))

	err := s.Set(context.Background(), KeyOrders, `[]`)
	if err == nil || !strings.Contains(err.Error(), "upsert orders") {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
