package contextstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps the state document in a single-row table. The state
// is still read and written whole; the table only buys transactional writes.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the backend is single-writer anyway and this keeps
	// SQLite from reporting busy errors against itself.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, dbPath: path}
	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS context_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create context_state table: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Location() string {
	return b.dbPath
}

func (b *SQLiteBackend) Load() (*State, error) {
	var data string
	err := b.db.QueryRow(`SELECT data FROM context_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return NewState(time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read context row: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to parse stored context: %w", err)
	}
	state.normalize()
	return &state, nil
}

func (b *SQLiteBackend) Save(state *State) error {
	data, err := marshalJSON(state, false)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	_, err = b.db.Exec(`
		INSERT INTO context_state (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data))
	if err != nil {
		return fmt.Errorf("failed to write context row: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
