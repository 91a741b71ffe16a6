package db

import (
	"fmt"
	"time"
)

// Store persists the two things netcore's Server entity needs durable
// across restarts: the pinned Diffie-Hellman prime and an append-only
// connection audit log, adapted from the teacher's RolesDatabase
// migrate-then-query shape.
type Store struct {
	db *Database
}

// AuditEntry is one row of the connection audit log.
type AuditEntry struct {
	ID         int64     `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	Event      string    `json:"event"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStore opens (or creates) the persistence database at dbPath and runs
// its migrations.
func NewStore(dbPath string) (*Store, error) {
	database, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: database}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dh_params (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			prime_hex TEXT NOT NULL,
			pinned_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS connection_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_addr TEXT NOT NULL,
			event TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_connection_audit_occurred_at
			ON connection_audit(occurred_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SavePrime persists the active Diffie-Hellman prime, overwriting any
// previously pinned value, so a restart without an operator-supplied
// config.Crypto.PinnedPrimeHex still reuses the same group.
func (s *Store) SavePrime(primeHex string) error {
	_, err := s.db.Exec(
		`INSERT INTO dh_params (id, prime_hex, pinned_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET prime_hex = excluded.prime_hex, pinned_at = excluded.pinned_at`,
		primeHex,
	)
	return err
}

// LoadPrime returns the previously persisted prime, or "" if none has been
// saved yet.
func (s *Store) LoadPrime() (string, error) {
	row := s.db.QueryRow(`SELECT prime_hex FROM dh_params WHERE id = 1`)
	var primeHex string
	if err := row.Scan(&primeHex); err != nil {
		return "", nil
	}
	return primeHex, nil
}

// RecordEvent appends one row to the connection audit log.
func (s *Store) RecordEvent(remoteAddr, event, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO connection_audit (remote_addr, event, detail) VALUES (?, ?, ?)`,
		remoteAddr, event, detail,
	)
	return err
}

// RecentEvents returns the most recent audit rows, newest first, for the
// monitor API's activity feed.
func (s *Store) RecentEvents(limit int) ([]AuditEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, remote_addr, event, detail, occurred_at
		 FROM connection_audit ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.RemoteAddr, &e.Event, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
