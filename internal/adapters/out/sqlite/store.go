package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	ErrEmptyNamespace = errors.New("namespace is required")
	ErrEmptyKey       = errors.New("key is required")
)

const schema = `
CREATE TABLE IF NOT EXISTS metafields (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// MetafieldStore это хранилище ключ/значение в SQLite, одно значение на (namespace, key)
type MetafieldStore struct {
	db     *sql.DB
	now    func() time.Time
	logger out.LoggerPort
}

func NewMetafieldStore(dbPath string, logger out.LoggerPort) (*MetafieldStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение: так :memory: не теряется между запросами
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &MetafieldStore{
		db:     db,
		now:    time.Now,
		logger: logger.WithModule("SQLiteMetafieldStore"),
	}, nil
}

func (s *MetafieldStore) Close() error {
	return s.db.Close()
}

func validateKey(namespace, key string) error {
	if strings.TrimSpace(namespace) == "" {
		return ErrEmptyNamespace
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

func (s *MetafieldStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := validateKey(namespace, key); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metafields WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read metafield %s/%s: %w", namespace, key, err)
	}

	return value, true, nil
}

func (s *MetafieldStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metafields (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, value, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write metafield %s/%s: %w", namespace, key, err)
	}

	s.logger.Debug("metafield.stored", out.LogFields{
		"namespace": namespace,
		"key":       key,
		"size":      len(value),
	})
	return nil
}

// UpdatedAt это время последней записи, для CLI
func (s *MetafieldStore) UpdatedAt(ctx context.Context, namespace, key string) (time.Time, bool, error) {
	if err := validateKey(namespace, key); err != nil {
		return time.Time{}, false, err
	}

	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM metafields WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read metafield %s/%s: %w", namespace, key, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return parsed, true, nil
}

var _ out.RulesStorePort = (*MetafieldStore)(nil)
