package infra

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

const (
	historyDBName  = "history.db"
	historyKeyName = ".key"
	historyKeySize = 32
)

// HistoryStore implements domain.HistoryStore using a SQLCipher
// encrypted SQLite database under the data directory. The passphrase
// is a random key generated once into a hidden 0600 file next to it.
type HistoryStore struct {
	db     *sql.DB
	dbPath string
}

// NewHistoryStore opens (or creates) the encrypted history database.
func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	key, err := ensureHistoryKey(filepath.Join(dataDir, historyKeyName))
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, historyDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store := &HistoryStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return store, nil
}

// ensureHistoryKey reads the key file, generating it on first use.
func ensureHistoryKey(keyPath string) ([]byte, error) {
	if encoded, err := os.ReadFile(keyPath); err == nil {
		key, err := hex.DecodeString(string(encoded))
		if err != nil || len(key) != historyKeySize {
			return nil, fmt.Errorf("history key file %s is corrupt", keyPath)
		}
		return key, nil
	}

	key := make([]byte, historyKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate history key: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write history key: %w", err)
	}
	return key, nil
}

func (s *HistoryStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL DEFAULT 0,
		sites INTEGER NOT NULL,
		duration_sec INTEGER NOT NULL,
		ended_by TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordStart inserts an open session row and returns its id.
func (s *HistoryStore) RecordStart(startedAt time.Time, sites int, duration time.Duration) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sessions (started_at, sites, duration_sec)
		VALUES (?, ?, ?)`,
		startedAt.Unix(), sites, int64(duration.Seconds()),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordEnd closes a session row with its termination trigger.
func (s *HistoryStore) RecordEnd(id int64, endedAt time.Time, trigger domain.Trigger) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET ended_at = ?, ended_by = ? WHERE id = ?`,
		endedAt.Unix(), string(trigger), id,
	)
	return err
}

// Last returns the most recent session row, or nil when the table is
// empty.
func (s *HistoryStore) Last() (*domain.SessionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, ended_at, sites, duration_sec, ended_by
		FROM sessions ORDER BY id DESC LIMIT 1`)

	var rec domain.SessionRecord
	var startedAt, endedAt, durationSec int64
	var trigger string
	err := row.Scan(&rec.ID, &startedAt, &endedAt, &rec.Sites, &durationSec, &trigger)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.StartedAt = time.Unix(startedAt, 0)
	if endedAt > 0 {
		rec.EndedAt = time.Unix(endedAt, 0)
	}
	rec.Duration = time.Duration(durationSec) * time.Second
	rec.Trigger = domain.Trigger(trigger)
	return &rec, nil
}

// Close releases the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Ensure HistoryStore implements domain.HistoryStore.
var _ domain.HistoryStore = (*HistoryStore)(nil)
