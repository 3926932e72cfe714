// internal/state/bolt.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/user/artifactdl/internal/types"
)

var payloadBucket = []byte("payloads")

// BoltStore caches payloads in a single bbolt database, one key per
// conversation.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(payloadBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create payload bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(_ context.Context, id types.ConversationID) (*types.Payload, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(payloadBucket).Get([]byte(id))
		if v != nil {
			// v is only valid inside the transaction.
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrPayloadNotFound, id)
	}

	var payload types.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

func (s *BoltStore) Put(_ context.Context, id types.ConversationID, payload *types.Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(payloadBucket).Put([]byte(id), data)
	})
}

// List returns cached conversation ids in key order.
func (s *BoltStore) List(_ context.Context) ([]types.ConversationID, error) {
	var ids []types.ConversationID
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(payloadBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, types.ConversationID(string(k)))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list payloads: %w", err)
	}
	return ids, nil
}

func (s *BoltStore) Delete(_ context.Context, id types.ConversationID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(payloadBucket).Delete([]byte(id))
	})
}
