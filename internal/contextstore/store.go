// Package contextstore keeps a bounded conversation history plus project and
// preference notes, persisted write-through on every operation.
package contextstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	DefaultMaxConversations = 10
	DefaultPreviewLength    = 500

	snapshotVersion = "1.0.0"
	previewMarker   = "..."
)

// Options configure a Store.
type Options struct {
	MaxConversations int
	PreviewLength    int
	ExportDir        string
	Now              func() time.Time
}

// Store is the conversation log. It keeps nothing in memory between calls:
// each operation loads the state, changes it, and saves it back.
//
// Storage failures never reach the caller. They are logged and the operation
// continues against an empty state, so a damaged file costs history rather
// than the task that was being recorded.
type Store struct {
	mu               sync.Mutex
	backend          Backend
	maxConversations int
	previewLength    int
	exportDir        string
	now              func() time.Time
}

// New creates a store over backend.
func New(backend Backend, opts Options) *Store {
	s := &Store{
		backend:          backend,
		maxConversations: opts.MaxConversations,
		previewLength:    opts.PreviewLength,
		exportDir:        opts.ExportDir,
		now:              opts.Now,
	}
	if s.maxConversations <= 0 {
		s.maxConversations = DefaultMaxConversations
	}
	if s.previewLength <= 0 {
		s.previewLength = DefaultPreviewLength
	}
	if s.exportDir == "" {
		s.exportDir = filepath.Dir(backend.Location())
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location reports where the live state is stored.
func (s *Store) Location() string {
	return s.backend.Location()
}

// Close releases the backend.
func (s *Store) Close() error {
	return closeBackend(s.backend)
}

func (s *Store) load() *State {
	state, err := s.backend.Load()
	if err != nil {
		logging.ContextError("Failed to load context from %s, starting empty: %v", s.backend.Location(), err)
		return NewState(s.now())
	}
	return state
}

func (s *Store) save(state *State) error {
	state.UpdatedAt = s.now()
	if err := s.backend.Save(state); err != nil {
		logging.ContextError("Failed to save context to %s: %v", s.backend.Location(), err)
		return err
	}
	return nil
}

// mutate runs one load, change, save cycle.
func (s *Store) mutate(fn func(state *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load()
	fn(state)
	_ = s.save(state)
}

// read runs fn against a freshly loaded state.
func (s *Store) read(fn func(state *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.load())
}

// Batch loads once, lets fn change the state, and saves once. Nothing is
// saved when fn fails. Unlike the single operations, a save failure is
// returned.
func (s *Store) Batch(fn func(state *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load()
	if err := fn(state); err != nil {
		return err
	}
	return s.save(state)
}

func (s *Store) newEntry(kind EntryType, content interface{}) Entry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	raw, err := marshalJSON(content, false)
	if err != nil {
		logging.ContextWarn("Failed to encode %s content: %v", kind, err)
		raw = json.RawMessage("null")
	}
	return Entry{ID: id.String(), Type: kind, Content: raw, Timestamp: s.now()}
}

// rawValue turns a caller-supplied value into JSON. Strings stay strings.
func rawValue(v interface{}) json.RawMessage {
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	data, err := marshalJSON(v, false)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// marshalJSON encodes v without HTML escaping so stored content keeps <, >
// and & as written.
func marshalJSON(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// htmlUnescaper reverses the escapes other JSON writers apply to <, > and &,
// so documents written elsewhere still match on those characters.
var htmlUnescaper = strings.NewReplacer(`\u003c`, "<", `\u003e`, ">", `\u0026`, "&")

func searchable(content json.RawMessage) []byte {
	return bytes.ToLower([]byte(htmlUnescaper.Replace(string(content))))
}

// RecordConversation appends a task and a preview of its response. The
// oldest conversations are evicted once the cap is exceeded.
func (s *Store) RecordConversation(task, response string, provider types.ProviderID) Entry {
	entry := s.newEntry(TypeConversation, Conversation{
		Task:      task,
		Response:  preview(response, s.previewLength),
		Provider:  string(provider),
		Timestamp: s.now(),
	})

	s.mutate(func(state *State) {
		state.Conversations = append(state.Conversations, entry)
		if n := len(state.Conversations); n > s.maxConversations {
			state.Conversations = state.Conversations[n-s.maxConversations:]
		}
	})
	logging.ContextDebug("Recorded conversation %s (provider=%s)", entry.ID, provider)
	return entry
}

// RecordPreference stores a preference under a fresh entry id.
func (s *Store) RecordPreference(key string, value interface{}) Entry {
	entry := s.newEntry(TypePreference, Preference{Key: key, Value: rawValue(value), Timestamp: s.now()})
	s.mutate(func(state *State) {
		state.UserPreferences[entry.ID] = entry
	})
	return entry
}

// RecordProjectInfo stores a note about the project at path.
func (s *Store) RecordProjectInfo(path string, info interface{}) Entry {
	entry := s.newEntry(TypeProject, ProjectInfo{ProjectPath: path, Info: rawValue(info), Timestamp: s.now()})
	s.mutate(func(state *State) {
		state.ProjectContext[entry.ID] = entry
	})
	return entry
}

// RecentConversations returns up to limit conversations, oldest first.
// A non-positive limit returns all of them.
func (s *Store) RecentConversations(limit int) []Entry {
	var out []Entry
	s.read(func(state *State) {
		convs := state.Conversations
		if limit > 0 && len(convs) > limit {
			convs = convs[len(convs)-limit:]
		}
		out = append([]Entry{}, convs...)
	})
	return out
}

// ProjectContextFor returns the notes recorded for exactly path, newest first.
func (s *Store) ProjectContextFor(path string) []Entry {
	var out []Entry
	s.read(func(state *State) {
		for _, e := range state.ProjectContext {
			if gjson.GetBytes(e.Content, "projectPath").String() == path {
				out = append(out, e)
			}
		}
	})
	sortNewestFirst(out)
	return out
}

// Preferences returns every preference entry, newest first.
func (s *Store) Preferences() []Entry {
	var out []Entry
	s.read(func(state *State) {
		for _, e := range state.UserPreferences {
			out = append(out, e)
		}
	})
	sortNewestFirst(out)
	return out
}

// Search matches query case-insensitively against the serialized content of
// every conversation and project entry. Results are newest first.
func (s *Store) Search(query string) []Entry {
	needle := bytes.ToLower([]byte(query))
	match := func(e Entry) bool {
		return bytes.Contains(searchable(e.Content), needle)
	}

	var out []Entry
	s.read(func(state *State) {
		for _, e := range state.Conversations {
			if match(e) {
				out = append(out, e)
			}
		}
		for _, e := range state.ProjectContext {
			if match(e) {
				out = append(out, e)
			}
		}
	})
	sortNewestFirst(out)
	return out
}

// Summary reports section sizes.
func (s *Store) Summary() Summary {
	var sum Summary
	s.read(func(state *State) {
		sum = Summary{
			TotalConversations:  len(state.Conversations),
			TotalPreferences:    len(state.UserPreferences),
			TotalProjectEntries: len(state.ProjectContext),
			LastUpdated:         state.UpdatedAt,
			CreatedAt:           state.CreatedAt,
		}
	})
	return sum
}

// Clear replaces the whole store with an empty one.
func (s *Store) Clear() {
	s.mutate(func(state *State) {
		now := s.now()
		*state = *NewState(now)
		state.ClearedAt = &now
	})
	logging.Context("Context cleared")
	logging.Audit().ContextEvent(logging.AuditContextClear, s.backend.Location(), true)
}

// ClearConversations empties the conversation log and keeps everything else.
func (s *Store) ClearConversations() {
	s.mutate(func(state *State) {
		now := s.now()
		state.Conversations = []Entry{}
		state.ConversationsClearedAt = &now
	})
	logging.Context("Conversations cleared")
}

// Export writes a timestamped snapshot of the full state and returns its path.
// The live store is not modified.
func (s *Store) Export() (string, error) {
	var snap Snapshot
	s.read(func(state *State) {
		snap = Snapshot{State: *state, ExportedAt: s.now(), Version: snapshotVersion}
	})

	data, err := marshalJSON(snap, true)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("context-export-%d.json", snap.ExportedAt.UnixMilli()))
	if err := writeFileAtomic(path, data); err != nil {
		logging.Audit().ContextEvent(logging.AuditContextExport, path, false)
		return "", err
	}
	logging.Context("Exported context to %s", path)
	logging.Audit().ContextEvent(logging.AuditContextExport, path, true)
	return path, nil
}

// Import merges the snapshot at path into the store. It reports false, and
// leaves the store untouched, when the file cannot be read or lacks any of
// the three sections.
//
// Conversations are concatenated and capped at twice the live cap, so an
// import may briefly hold more history than recording alone would keep.
func (s *Store) Import(path string) bool {
	ok := s.importSnapshot(path)
	logging.Audit().ContextEvent(logging.AuditContextImport, path, ok)
	return ok
}

func (s *Store) importSnapshot(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.ContextWarn("Import of %s failed: %v", path, err)
		return false
	}
	if !validSnapshot(data) {
		logging.ContextWarn("Import of %s failed: not a context snapshot", path)
		return false
	}

	var imported State
	if err := json.Unmarshal(data, &imported); err != nil {
		logging.ContextWarn("Import of %s failed: %v", path, err)
		return false
	}
	imported.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load()
	state.Conversations = append(state.Conversations, imported.Conversations...)
	if limit := 2 * s.maxConversations; len(state.Conversations) > limit {
		state.Conversations = state.Conversations[len(state.Conversations)-limit:]
	}
	for id, e := range imported.UserPreferences {
		state.UserPreferences[id] = e
	}
	for id, e := range imported.ProjectContext {
		state.ProjectContext[id] = e
	}
	now := s.now()
	state.ImportedAt = &now
	state.ImportedFrom = path

	if err := s.save(state); err != nil {
		return false
	}
	logging.Context("Imported %d conversations from %s", len(imported.Conversations), path)
	return true
}

func validSnapshot(data []byte) bool {
	if !gjson.ValidBytes(data) {
		return false
	}
	sections := gjson.GetManyBytes(data, "conversations", "userPreferences", "projectContext")
	return sections[0].IsArray() && sections[1].IsObject() && sections[2].IsObject()
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + previewMarker
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return strings.Compare(entries[i].ID, entries[j].ID) > 0
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
