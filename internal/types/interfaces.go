// internal/types/interfaces.go
package types

import (
	"context"
	"errors"
)

// ErrPayloadNotFound is returned by PayloadStore.Get when nothing is cached
// for the conversation.
var ErrPayloadNotFound = errors.New("payload not found")

type PayloadStore interface {
	Get(ctx context.Context, id ConversationID) (*Payload, error)
	Put(ctx context.Context, id ConversationID, payload *Payload) error
	List(ctx context.Context) ([]ConversationID, error)
	Delete(ctx context.Context, id ConversationID) error
}

type HistoryStore interface {
	Append(ctx context.Context, record *ExportRecord) error
	Tail(ctx context.Context, id ConversationID, limit int) ([]*ExportRecord, error)
	Count(ctx context.Context, id ConversationID) (int64, error)
}

// ArchiveSink hands a finished archive to its final destination and returns
// a human-readable location.
type ArchiveSink interface {
	Deliver(ctx context.Context, target, name string, data []byte) (string, error)
}
