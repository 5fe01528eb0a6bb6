package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a small durable key/value store backed by SQLite. It holds the
// state that must survive process restarts: the daily call-quota fields and
// the per-device last-accepted observation epochs.
type Store struct {
	db *sql.DB
}

// Open creates or opens the preference database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// busy_timeout covers the occasional API read racing the poll loop's
	// writes; WAL keeps readers off the writer's back.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("prefs open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prefs ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS preferences (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS device_epochs (
    device_key TEXT PRIMARY KEY,
    epoch      INTEGER NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("prefs migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetString returns the stored value for key, or def when unset.
func (s *Store) GetString(key, def string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("prefs get %s: %w", key, err)
	}
	return value, nil
}

// SetString writes value under key, replacing any previous value.
func (s *Store) SetString(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("prefs set %s: %w", key, err)
	}
	return nil
}

// GetInt returns the stored integer for key, or def when unset or
// unparsable.
func (s *Store) GetInt(key string, def int) (int, error) {
	raw, err := s.GetString(key, "")
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// SetInt writes an integer value under key.
func (s *Store) SetInt(key string, value int) error {
	return s.SetString(key, strconv.Itoa(value))
}

// GetBool returns the stored boolean for key, or def when unset.
func (s *Store) GetBool(key string, def bool) (bool, error) {
	raw, err := s.GetString(key, "")
	if err != nil {
		return def, err
	}
	if raw == "" {
		return def, nil
	}
	return raw == "true", nil
}

// SetBool writes a boolean value under key.
func (s *Store) SetBool(key string, value bool) error {
	return s.SetString(key, strconv.FormatBool(value))
}

// SetDeviceEpoch records the last accepted observation epoch for a device.
func (s *Store) SetDeviceEpoch(deviceKey string, epoch int64) error {
	_, err := s.db.Exec(
		`INSERT INTO device_epochs (device_key, epoch) VALUES (?, ?)
		 ON CONFLICT(device_key) DO UPDATE SET epoch = excluded.epoch`, deviceKey, epoch)
	if err != nil {
		return fmt.Errorf("prefs set device epoch %s: %w", deviceKey, err)
	}
	return nil
}

// DeviceEpochs returns all recorded device epochs.
func (s *Store) DeviceEpochs() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT device_key, epoch FROM device_epochs`)
	if err != nil {
		return nil, fmt.Errorf("prefs device epochs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var epoch int64
		if err := rows.Scan(&key, &epoch); err != nil {
			return nil, err
		}
		out[key] = epoch
	}
	return out, rows.Err()
}
