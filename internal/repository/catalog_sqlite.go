package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"guardian-inventory/internal/cache"
	"guardian-inventory/internal/repository/migrations"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteCatalogStore implements cache.Cache on a local SQLite file. It is
// the default durable tier of the catalog store.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteCatalogStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// NewSQLiteCatalogStore opens (creating if needed) the catalog database and
// brings its schema up to date.
// dbPath is the path to the SQLite database file (e.g., "./data/catalog.db")
func NewSQLiteCatalogStore(dbPath string) (*SQLiteCatalogStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	log.Printf("[SQLiteCatalogStore] Initialized with database: %s", dbPath)
	return &SQLiteCatalogStore{db: db, path: dbPath}, nil
}

// openSQLite opens a WAL-mode database file and runs the embedded migrations.
func openSQLite(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dbPath, err)
	}
	return db, nil
}

// Get retrieves a value by key.
func (s *SQLiteCatalogStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM catalog_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores a value, replacing any previous one.
func (s *SQLiteCatalogStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO catalog_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a value by key.
func (s *SQLiteCatalogStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (s *SQLiteCatalogStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM catalog_entries WHERE substr(key, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[SQLiteCatalogStore] Deleted %d entries under %s", deleted, prefix)
	}
	return int(deleted), nil
}

// Keys lists the keys starting with prefix in sorted order.
func (s *SQLiteCatalogStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM catalog_entries WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetStats returns statistics about the catalog database.
func (s *SQLiteCatalogStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["path"] = s.path

	var count, bytes int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(length(value)), 0) FROM catalog_entries").Scan(&count, &bytes); err != nil {
		return nil, err
	}
	stats["entries"] = count
	stats["payload_bytes"] = bytes

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteCatalogStore) Close() error {
	return s.db.Close()
}

var (
	_ cache.Cache         = (*SQLiteCatalogStore)(nil)
	_ cache.StatsReporter = (*SQLiteCatalogStore)(nil)
)
