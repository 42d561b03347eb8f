package contextstore

import (
	"encoding/json"
	"time"
)

// EntryType names the section an entry lives in.
type EntryType string

const (
	TypeConversation EntryType = "conversation"
	TypePreference   EntryType = "preference"
	TypeProject      EntryType = "project"
)

// Entry is one record in the store. Content is kept as raw JSON so entries
// written by other tools survive a load/save cycle untouched.
type Entry struct {
	ID        string          `json:"id"`
	Type      EntryType       `json:"type"`
	Content   json.RawMessage `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
}

// Conversation is the content of a conversation entry.
type Conversation struct {
	Task      string    `json:"task"`
	Response  string    `json:"response"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

// Preference is the content of a preference entry.
type Preference struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProjectInfo is the content of a project entry.
type ProjectInfo struct {
	ProjectPath string          `json:"projectPath"`
	Info        json.RawMessage `json:"info"`
	Timestamp   time.Time       `json:"timestamp"`
}

// State is the whole persisted document.
type State struct {
	Conversations   []Entry          `json:"conversations"`
	UserPreferences map[string]Entry `json:"userPreferences"`
	ProjectContext  map[string]Entry `json:"projectContext"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`

	ClearedAt              *time.Time `json:"clearedAt,omitempty"`
	ConversationsClearedAt *time.Time `json:"conversationsClearedAt,omitempty"`
	ImportedAt             *time.Time `json:"importedAt,omitempty"`
	ImportedFrom           string     `json:"importedFrom,omitempty"`
}

// NewState returns an empty state created at now.
func NewState(now time.Time) *State {
	return &State{
		Conversations:   []Entry{},
		UserPreferences: make(map[string]Entry),
		ProjectContext:  make(map[string]Entry),
		CreatedAt:       now,
	}
}

// normalize fills sections a hand-edited or partial document may lack.
func (s *State) normalize() {
	if s.Conversations == nil {
		s.Conversations = []Entry{}
	}
	if s.UserPreferences == nil {
		s.UserPreferences = make(map[string]Entry)
	}
	if s.ProjectContext == nil {
		s.ProjectContext = make(map[string]Entry)
	}
}

// Snapshot is the export format: the full state plus export metadata.
type Snapshot struct {
	State
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
}

// Summary reports section sizes and timestamps.
type Summary struct {
	TotalConversations  int       `json:"totalConversations"`
	TotalPreferences    int       `json:"totalPreferences"`
	TotalProjectEntries int       `json:"totalProjectEntries"`
	LastUpdated         time.Time `json:"lastUpdated"`
	CreatedAt           time.Time `json:"createdAt"`
}
