package exporter

import (
	"context"
	"time"

	"github.com/user/artifactdl/internal/types"
)

// JobStatus represents the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Request describes one export. An empty Destination builds the archive
// without delivering it; the bytes are returned in Report.Archive.
type Request struct {
	ConversationID types.ConversationID
	Destination    string
	DirectoryMode  bool
}

// Job tracks a single export waiting in, or running from, a conversation lane.
type Job struct {
	ID         types.RecordID
	Request    Request
	Status     JobStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
	Report     *Report
	Ctx        context.Context
	OnComplete func(*Report)
}

// NewJob creates a Job in the Queued state for the given request.
func NewJob(req Request) *Job {
	return &Job{
		ID:        types.NewRecordID(),
		Request:   req,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}
