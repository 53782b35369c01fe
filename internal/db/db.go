package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tgienger/sprintdash/internal/logging"
)

//go:embed schema.sql
var schema string

// DB wraps the database connection and exposes it as a document store
type DB struct {
	*sql.DB
	path    string
	now     func() time.Time
	logger  *logging.Logger
	hub     *hub
	watch   bool
	watcher *fsnotify.Watcher
}

// Option configures a DB
type Option func(*DB)

// WithClock replaces the store clock used for server timestamps
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// WithLogger sets the logger used for store diagnostics. Nil keeps the default.
func WithLogger(l *logging.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithWatch enables watching the database file for writes made by other
// processes, so subscriptions see them too
func WithWatch(enabled bool) Option {
	return func(db *DB) { db.watch = enabled }
}

// New opens (creating if needed) the database at path and initializes the
// schema. An empty path uses DefaultPath.
func New(path string, opts ...Option) (*DB, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrStoreUnavailable, err)
	}

	// Initialize schema
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init schema: %w: %w", ErrStoreUnavailable, err)
	}

	db := &DB{
		DB:     sqlDB,
		path:   path,
		now:    time.Now,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.hub = newHub()

	if db.watch {
		if err := db.startWatcher(); err != nil {
			db.logger.Warn("store watcher disabled", "path", path, "error", err)
		}
	}

	return db, nil
}

// DefaultPath returns the database location under the XDG data directory
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sprintdash.db"), nil
}

// DataDir returns $XDG_DATA_HOME/sprintdash, falling back to ~/.local/share
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sprintdash"), nil
}

// Path returns the database file location
func (db *DB) Path() string {
	return db.path
}

// Close stops subscriptions and the file watcher, then closes the connection
func (db *DB) Close() error {
	db.hub.close()
	if db.watcher != nil {
		_ = db.watcher.Close()
	}
	return db.DB.Close()
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (db *DB) clock() time.Time {
	return db.now().UTC()
}
