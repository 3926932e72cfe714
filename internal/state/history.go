// internal/state/history.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/artifactdl/internal/types"
)

// HistoryStore is a JSONL-backed append-only export log.
// Records are stored per-conversation in history/<conversationID>.jsonl.
type HistoryStore struct {
	root  string
	mu    sync.Mutex
	locks map[types.ConversationID]*sync.Mutex
}

// NewHistoryStore creates a new file-backed HistoryStore rooted at the given directory.
func NewHistoryStore(root string) *HistoryStore {
	return &HistoryStore{
		root:  root,
		locks: make(map[types.ConversationID]*sync.Mutex),
	}
}

// getLock returns the per-conversation mutex, creating one if it doesn't exist.
func (h *HistoryStore) getLock(id types.ConversationID) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	if lock, ok := h.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	h.locks[id] = lock
	return lock
}

func (h *HistoryStore) logPath(id types.ConversationID) string {
	return filepath.Join(h.root, "history", string(id)+".jsonl")
}

// count reads the log and counts lines. Caller must hold the conversation lock.
func (h *HistoryStore) count(id types.ConversationID) (int64, error) {
	f, err := os.Open(h.logPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan history file: %w", err)
	}
	return count, nil
}

// Append adds a record to the conversation's log with an auto-incremented sequence number.
func (h *HistoryStore) Append(_ context.Context, record *types.ExportRecord) error {
	lock := h.getLock(record.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.logPath(record.ConversationID)), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	existing, err := h.count(record.ConversationID)
	if err != nil {
		return err
	}
	record.Seq = existing + 1
	if record.ID == "" {
		record.ID = types.NewRecordID()
	}
	if record.At.IsZero() {
		record.At = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	f, err := os.OpenFile(h.logPath(record.ConversationID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Tail returns the last N records for the given conversation.
func (h *HistoryStore) Tail(_ context.Context, id types.ConversationID, limit int) ([]*types.ExportRecord, error) {
	lock := h.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(h.logPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()

	var records []*types.ExportRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record types.ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Count returns the number of records for the given conversation.
func (h *HistoryStore) Count(_ context.Context, id types.ConversationID) (int64, error) {
	lock := h.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	return h.count(id)
}
