package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wcpredict/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	// Bearer token for the current session.
	KeyToken = "token"
	// League join code saved across a login/registration redirect.
	KeyPendingInvite = "pendingLeagueInvite"
)

const (
	maxArchiveBytes  int64 = 64 << 20 // 64 MiB
	evictBatchSize         = 100
	vacuumInterval         = 50
)

// Store is the client-local state database: a small key/value table for the
// bearer token and pending invite code, plus a FIFO archive of raw push
// frames capped by byte budget.
type Store struct {
	db           *sql.DB
	mu           sync.Mutex
	cachedSize   int64
	evictCounter int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS push_payloads (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			channel   TEXT    NOT NULL,
			received  TEXT    NOT NULL,
			byte_size INTEGER NOT NULL,
			raw       BLOB    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pp_received ON push_payloads(received)`,
		`CREATE INDEX IF NOT EXISTS idx_pp_channel  ON push_payloads(channel)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}

	var size int64
	row := db.QueryRow(`SELECT COALESCE(SUM(byte_size), 0) FROM push_payloads`)
	if err := row.Scan(&size); err != nil {
		db.Close()
		return nil, fmt.Errorf("read archive size: %w", err)
	}

	telemetry.Debugf("localstore: opened %s  archive_bytes=%d", path, size)

	return &Store{db: db, cachedSize: size}, nil
}

// Get returns the value for key, with ok=false when the key is absent.
func (s *Store) Get(key string) (string, bool, error) {
	if s == nil {
		return "", false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Put(key, value string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// ArchivePush stores a raw push frame asynchronously.
func (s *Store) ArchivePush(channel string, raw []byte) {
	if s == nil {
		return
	}
	rawLen := int64(len(raw))
	rawCopy := make([]byte, rawLen)
	copy(rawCopy, raw)

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		_, err := s.db.Exec(
			`INSERT INTO push_payloads (channel, received, byte_size, raw) VALUES (?, ?, ?, ?)`,
			channel,
			time.Now().UTC().Format(time.RFC3339Nano),
			rawLen,
			rawCopy,
		)
		if err != nil {
			telemetry.Warnf("localstore: archive insert failed: %v", err)
			return
		}

		s.cachedSize += rawLen
		if s.cachedSize > maxArchiveBytes {
			s.evict()
		}
	}()
}

func (s *Store) evict() {
	for s.cachedSize > maxArchiveBytes {
		var freed int64
		err := s.db.QueryRow(
			`WITH deleted AS (
				DELETE FROM push_payloads
				WHERE id IN (SELECT id FROM push_payloads ORDER BY id ASC LIMIT ?)
				RETURNING byte_size
			)
			SELECT COALESCE(SUM(byte_size), 0) FROM deleted`,
			evictBatchSize,
		).Scan(&freed)
		if err != nil {
			telemetry.Warnf("localstore: eviction query failed: %v", err)
			break
		}
		if freed == 0 {
			telemetry.Warnf("localstore: eviction freed 0 bytes, cachedSize=%d", s.cachedSize)
			break
		}
		s.cachedSize -= freed
		s.evictCounter++

		if s.evictCounter%vacuumInterval == 0 {
			if _, err := s.db.Exec(`PRAGMA incremental_vacuum`); err != nil {
				telemetry.Warnf("localstore: incremental_vacuum failed: %v", err)
			}
		}
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
