// internal/state/payload.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/user/artifactdl/internal/types"
)

// FileStore caches one conversation payload per JSON file.
// Files are located at conversations/<conversationID>.json.
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a new file-backed payload store rooted at the given directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) dir() string {
	return filepath.Join(s.root, "conversations")
}

func (s *FileStore) path(id types.ConversationID) string {
	return filepath.Join(s.dir(), string(id)+".json")
}

// Get returns the cached payload, or types.ErrPayloadNotFound.
func (s *FileStore) Get(_ context.Context, id types.ConversationID) (*types.Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrPayloadNotFound, id)
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var payload types.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// Put replaces the cached payload for id.
func (s *FileStore) Put(_ context.Context, id types.ConversationID, payload *types.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}

	// Atomic write via temp file + rename
	target := s.path(id)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp payload: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp payload: %w", err)
	}
	return nil
}

// List returns the ids of all cached conversations, sorted.
func (s *FileStore) List(_ context.Context) ([]types.ConversationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir(), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob payloads: %w", err)
	}
	ids := make([]types.ConversationID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, types.ConversationID(strings.TrimSuffix(filepath.Base(m), ".json")))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Delete removes the cached payload. Deleting a missing payload is not an error.
func (s *FileStore) Delete(_ context.Context, id types.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload: %w", err)
	}
	return nil
}
