// Package history persists chat transcripts as JSON files on disk, one
// file per chat under the data directory.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// Chat names become filenames; anything outside this pattern is
// rejected to keep paths safe.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]{0,63}$`)

// Message is a single chat message.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is one conversation transcript.
type Chat struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMeta is lightweight chat metadata for listing.
type ChatMeta struct {
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	modTime      time.Time // file mtime, for cache invalidation
}

// Store handles chat persistence with metadata caching.
type Store struct {
	dir       string
	mu        sync.RWMutex
	metaCache map[string]*ChatMeta
}

// NewStore creates a chat store rooted at dir. The directory is created
// lazily on first save.
func NewStore(dir string) *Store {
	return &Store{
		dir:       dir,
		metaCache: make(map[string]*ChatMeta),
	}
}

// ValidName reports whether name is acceptable as a chat name.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// NewChat creates an empty chat.
func NewChat(name, model string) *Chat {
	now := time.Now()
	return &Chat{
		Name:      name,
		Model:     model,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the chat.
func (c *Chat) Append(role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	c.UpdatedAt = time.Now()
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes a chat to disk and refreshes its cached metadata.
func (s *Store) Save(chat *Chat) error {
	if !ValidName(chat.Name) {
		return fmt.Errorf("invalid chat name %q", chat.Name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create chats directory: %w", err)
	}

	chat.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	if err := os.WriteFile(s.path(chat.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write chat file: %w", err)
	}

	s.mu.Lock()
	s.metaCache[chat.Name] = &ChatMeta{
		Name:         chat.Name,
		Model:        chat.Model,
		MessageCount: len(chat.Messages),
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
		modTime:      time.Now(),
	}
	s.mu.Unlock()

	return nil
}

// Load reads a chat from disk.
func (s *Store) Load(name string) (*Chat, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid chat name %q", name)
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("chat '%s' not found", name)
		}
		return nil, fmt.Errorf("failed to read chat file: %w", err)
	}

	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to parse chat file: %w", err)
	}

	return &chat, nil
}

// Delete removes a chat from disk.
func (s *Store) Delete(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid chat name %q", name)
	}

	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("chat '%s' not found", name)
		}
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	s.mu.Lock()
	delete(s.metaCache, name)
	s.mu.Unlock()

	return nil
}

// Exists checks whether a chat file is present.
func (s *Store) Exists(name string) bool {
	if !ValidName(name) {
		return false
	}
	_, err := os.Stat(s.path(name))
	return err == nil
}

// List returns metadata for all chats, most recently updated first.
// Metadata is cached and invalidated by file modification time.
func (s *Store) List() ([]ChatMeta, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return []ChatMeta{}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chats directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := []ChatMeta{}
	currentFiles := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		name := entry.Name()[:len(entry.Name())-5]
		currentFiles[name] = true

		info, err := entry.Info()
		if err != nil {
			continue
		}
		modTime := info.ModTime()

		if cached, ok := s.metaCache[name]; ok && cached.modTime.Equal(modTime) {
			result = append(result, *cached)
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}

		var chat Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			continue // skip corrupted files
		}

		meta := &ChatMeta{
			Name:         chat.Name,
			Model:        chat.Model,
			MessageCount: len(chat.Messages),
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
			modTime:      modTime,
		}
		s.metaCache[name] = meta
		result = append(result, *meta)
	}

	for name := range s.metaCache {
		if !currentFiles[name] {
			delete(s.metaCache, name)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return result, nil
}
