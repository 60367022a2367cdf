package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clipboard (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		content    BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		name  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

const timeLayout = time.RFC3339Nano

// Store owns the clipboard history and settings tables. Writes are
// serialized; each one commits before returning. Readers may run between
// writes and never see a partially written entry.
type Store struct {
	path string
	cfg  config

	mu sync.RWMutex // Lock for writes and reopen, RLock for reads
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Call Initialize
// before any other method. Failures are returned as *InitError.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	db, err := openDB(path, &cfg)
	if err != nil {
		return nil, &InitError{Op: "open", Err: err}
	}
	return &Store{path: path, cfg: cfg, db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Initialize creates the entry and settings tables if absent and seeds
// DefaultSettings that are missing. It is idempotent and never overwrites an
// existing setting.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Store) initLocked(ctx context.Context) error {
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
		}
		for _, d := range DefaultSettings {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO properties (name, value) VALUES (?, ?)`,
				d.Name, d.Value,
			); err != nil {
				return fmt.Errorf("seed %s: %w", d.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return &InitError{Op: "schema", Err: err}
	}
	return nil
}

// Reopen closes and reopens the database file, then initializes it. It is
// used when the file was removed from under a running process.
func (s *Store) Reopen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.db.Close()
	db, err := openDB(s.path, &s.cfg)
	if err != nil {
		return &InitError{Op: "reopen", Err: err}
	}
	s.db = db
	return s.initLocked(ctx)
}

// Insert records content with the current time and returns the stored
// entry, including its newly assigned id.
func (s *Store) Insert(ctx context.Context, content []byte) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Timestamp: s.cfg.now().UTC(), Content: append([]byte{}, content...)}
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO clipboard (created_at, content) VALUES (?, ?)`,
			e.Timestamp.Format(timeLayout), e.Content,
		)
		if err != nil {
			return err
		}
		e.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Entry{}, &WriteError{Op: "insert", Err: err}
	}
	return e, nil
}

// List returns every entry in ascending id order.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, content FROM clipboard ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, content FROM clipboard WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get %d: %w", id, err)
	}
	return e, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clipboard`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

// Delete removes the entries with the given ids in a single transaction.
// Ids that do not exist are ignored.
func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM clipboard WHERE id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &WriteError{Op: "delete", Err: err}
	}
	return nil
}

// Clear removes every entry and resets id allocation, so the next Insert is
// assigned id 1 again.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clipboard`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'clipboard'`)
		return err
	})
	if err != nil {
		return &WriteError{Op: "clear", Err: err}
	}
	return nil
}

// Setting returns the value stored under name, or ErrNotFound.
func (s *Store) Setting(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM properties WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("history: setting %s: %w", name, err)
	}
	return v, nil
}

// SetSetting inserts or replaces the value stored under name. Known settings
// are validated first and rejected with ErrInvalidSetting.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	if err := validateSetting(name, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO properties (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, value,
		)
		return err
	})
	if err != nil {
		return &WriteError{Op: "set " + name, Err: err}
	}
	return nil
}

// Settings returns all settings ordered by name.
func (s *Store) Settings(ctx context.Context) ([]Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM properties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("history: settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Name, &st.Value); err != nil {
			return nil, fmt.Errorf("history: settings: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(...any) error }

func scanEntry(sc scanner) (Entry, error) {
	var (
		e  Entry
		ts string
	)
	if err := sc.Scan(&e.ID, &ts, &e.Content); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %d: bad timestamp %q: %w", e.ID, ts, err)
	}
	e.Timestamp = t
	return e, nil
}
