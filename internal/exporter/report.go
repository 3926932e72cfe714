package exporter

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/artifactdl/internal/types"
	"github.com/user/artifactdl/internal/walker"
)

var (
	// ErrEmptyConversation is returned when the payload has no top-level
	// message to start from.
	ErrEmptyConversation = walker.ErrEmptyConversation
	// ErrNoArtifacts is returned when the walk found nothing to archive.
	ErrNoArtifacts = errors.New("no artifacts found")
)

// ArchiveError is a terminal failure while finalizing or delivering an
// archive.
type ArchiveError struct {
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

const (
	msgSuccess     = "%d artifacts downloaded successfully."
	msgNoArtifacts = "No artifacts found in this conversation."
	msgEmpty       = "This conversation has no messages to export."
	msgNotFound    = "Conversation is not cached."
	msgFailed      = "Error downloading artifacts."
)

// Report is the outcome of one export, successful or not.
type Report struct {
	ConversationID types.ConversationID
	Status         types.ExportStatus
	Artifacts      int
	// Failed counts assistant messages skipped during the walk.
	Failed      int
	Truncated   bool
	Destination string
	Location    string
	Archive     *Archive
	Err         error
}

// Archive is a finalized zip held in memory.
type Archive struct {
	Name    string
	Data    []byte
	Entries []types.NamedEntry
}

// Message is the user-facing status line for the report.
func (r *Report) Message() string {
	switch r.Status {
	case types.ExportStatusSuccess:
		return fmt.Sprintf(msgSuccess, r.Artifacts)
	case types.ExportStatusNoArtifacts:
		return msgNoArtifacts
	case types.ExportStatusEmpty:
		return msgEmpty
	case types.ExportStatusNotFound:
		return msgNotFound
	default:
		return msgFailed
	}
}

// Record converts the report into a history entry.
func (r *Report) Record() *types.ExportRecord {
	rec := &types.ExportRecord{
		ConversationID: r.ConversationID,
		Status:         r.Status,
		Artifacts:      r.Artifacts,
		Destination:    r.Destination,
		Location:       r.Location,
		At:             time.Now().UTC(),
	}
	if r.Err != nil && r.Status == types.ExportStatusFailed {
		rec.Error = r.Err.Error()
	}
	return rec
}

// statusFor classifies a pipeline error.
func statusFor(err error) types.ExportStatus {
	switch {
	case err == nil:
		return types.ExportStatusSuccess
	case errors.Is(err, ErrEmptyConversation):
		return types.ExportStatusEmpty
	case errors.Is(err, ErrNoArtifacts):
		return types.ExportStatusNoArtifacts
	case errors.Is(err, types.ErrPayloadNotFound):
		return types.ExportStatusNotFound
	default:
		return types.ExportStatusFailed
	}
}

func failedReport(req Request, err error) *Report {
	return &Report{
		ConversationID: req.ConversationID,
		Status:         statusFor(err),
		Destination:    destinationLabel(req.Destination),
		Err:            err,
	}
}

func destinationLabel(dest string) string {
	if dest == "" {
		return "download"
	}
	return dest
}
