// internal/types/models.go
package types

import (
	"strings"
	"time"
)

type Sender string

const (
	SenderHuman     Sender = "human"
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ContentBlock is one element of a message's structured content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is a single node of a conversation tree.
type Message struct {
	UUID              MessageID      `json:"uuid"`
	ParentMessageUUID MessageID      `json:"parent_message_uuid"`
	Sender            Sender         `json:"sender"`
	Text              string         `json:"text"`
	Content           []ContentBlock `json:"content,omitempty"`
	Index             int            `json:"index"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Body returns the message's free text. Payloads that leave Text empty carry
// the text in content blocks instead.
func (m *Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	var parts []string
	for _, block := range m.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Payload is a full conversation as returned by the chat API.
type Payload struct {
	UUID         ConversationID `json:"uuid"`
	Name         string         `json:"name"`
	UpdatedAt    time.Time      `json:"updated_at"`
	ChatMessages []Message      `json:"chat_messages"`
}

// Artifact is a tagged block lifted out of an assistant message.
type Artifact struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// NamedEntry is an artifact placed at a unique path inside an archive.
type NamedEntry struct {
	Path      string    `json:"path"`
	Content   []byte    `json:"-"`
	Language  string    `json:"language"`
	MessageID MessageID `json:"message_id"`
}

type ExportStatus string

const (
	ExportStatusSuccess     ExportStatus = "success"
	ExportStatusEmpty       ExportStatus = "empty"
	ExportStatusNoArtifacts ExportStatus = "no_artifacts"
	ExportStatusFailed      ExportStatus = "failed"
	// ExportStatusNotFound means no payload is cached; it is never recorded.
	ExportStatusNotFound ExportStatus = "not_found"
)

// ExportRecord is one line of a conversation's export history.
type ExportRecord struct {
	ID             RecordID       `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	Seq            int64          `json:"seq"`
	At             time.Time      `json:"at"`
	Status         ExportStatus   `json:"status"`
	Artifacts      int            `json:"artifacts"`
	Destination    string         `json:"destination,omitempty"`
	Location       string         `json:"location,omitempty"`
	Error          string         `json:"error,omitempty"`
}
