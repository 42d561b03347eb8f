package contextstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backend persists the whole state at once. There is no caching: every
// Load reads storage again, so edits made outside the process are seen.
//
// Backends assume a single writer. Two processes saving concurrently lose
// one of the writes; nothing locks.
type Backend interface {
	// Load returns the stored state, or a fresh empty one when nothing has
	// been stored yet.
	Load() (*State, error)
	Save(state *State) error
	// Location describes where the state lives, for messages.
	Location() string
}

// Backend kinds accepted by OpenBackend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the backend of the given kind at path.
func OpenBackend(kind, path string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", BackendJSON:
		return NewFileBackend(path), nil
	case BackendSQLite:
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown context backend %q (valid: json, sqlite)", kind)
	}
}

// closeBackend closes b when it holds resources.
func closeBackend(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FileBackend stores the state as an indented JSON document.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend for the document at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Location() string {
	return b.path
}

func (b *FileBackend) Load() (*State, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return NewState(time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse context file %s: %w", b.path, err)
	}
	state.normalize()
	return &state, nil
}

// Save writes to a temporary file and renames it over the document so a
// crash mid-write leaves the previous version intact.
func (b *FileBackend) Save(state *State) error {
	data, err := marshalJSON(state, true)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	return writeFileAtomic(b.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
