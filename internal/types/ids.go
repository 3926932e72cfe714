// internal/types/ids.go
package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ConversationID string
type MessageID string
type RecordID string

// RootParentID is the parent_message_uuid carried by top-level messages.
const RootParentID MessageID = "00000000-0000-4000-8000-000000000000"

func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// ParseConversationID validates s as a UUID and returns it in canonical
// lower-case form.
func ParseConversationID(s string) (ConversationID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid conversation id %q: %w", s, err)
	}
	return ConversationID(id.String()), nil
}

// ArchiveName is the suggested download name for a conversation's archive.
func ArchiveName(id ConversationID) string {
	return "Claude_Artifacts_" + string(id) + ".zip"
}
