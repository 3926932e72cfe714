// Package exporter composes root selection, tree walking, archive building and
// delivery into a single export, and serializes exports per conversation.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/artifactdl/internal/archive"
	"github.com/user/artifactdl/internal/metrics"
	"github.com/user/artifactdl/internal/types"
	"github.com/user/artifactdl/internal/walker"
)

// Options tune an Exporter. Zero values fall back to defaults.
type Options struct {
	MaxDepth      int
	MaxConcurrent int64
	Retry         *RetryPolicy
}

// Exporter runs exports against a payload store. History and sink are
// optional; without a sink only downloads (empty destination) succeed.
type Exporter struct {
	payloads types.PayloadStore
	history  types.HistoryStore
	sink     types.ArchiveSink
	retry    *RetryPolicy
	maxDepth int

	Queue *Queue
}

// New creates an Exporter. Call Start before Submit.
func New(payloads types.PayloadStore, history types.HistoryStore, sink types.ArchiveSink, opts Options) *Exporter {
	var concurrency int64 = 2
	if opts.MaxConcurrent > 0 {
		concurrency = opts.MaxConcurrent
	}
	retry := opts.Retry
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	e := &Exporter{
		payloads: payloads,
		history:  history,
		sink:     sink,
		retry:    retry,
		maxDepth: opts.MaxDepth,
		Queue:    NewQueue(concurrency),
	}
	e.Queue.SetProcessor(e.process)
	return e
}

// Start starts the export queue.
func (e *Exporter) Start(ctx context.Context) {
	e.Queue.Start(ctx)
}

// Stop stops the queue and waits for running exports.
func (e *Exporter) Stop() {
	e.Queue.Stop()
}

// Walk loads a conversation and walks it from its selected root without
// building an archive.
func (e *Exporter) Walk(ctx context.Context, id types.ConversationID, directoryMode bool) (*types.Payload, *walker.Result, error) {
	payload, err := e.payloads.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load payload: %w", err)
	}
	root, err := walker.SelectRoot(payload.ChatMessages)
	if err != nil {
		return payload, nil, err
	}
	w := &walker.Walker{
		DirectoryMode: directoryMode,
		MaxDepth:      e.maxDepth,
		Logger:        slog.With("conversation_id", string(id)),
	}
	return payload, w.Walk(root, payload.ChatMessages), nil
}

// Build walks a conversation and finalizes its archive in memory.
func (e *Exporter) Build(ctx context.Context, id types.ConversationID, directoryMode bool) (*Archive, *walker.Result, error) {
	start := time.Now()
	_, res, err := e.Walk(ctx, id, directoryMode)
	if err != nil {
		return nil, res, err
	}
	if len(res.Entries) == 0 {
		return nil, res, ErrNoArtifacts
	}

	b := archive.NewBuilder()
	for _, entry := range res.Entries {
		if err := b.AddBytes(entry.Path, entry.Content); err != nil {
			return nil, res, &ArchiveError{Op: "add", Err: err}
		}
	}
	data, err := b.Finalize(ctx)
	if err != nil {
		return nil, res, &ArchiveError{Op: "finalize", Err: err}
	}
	metrics.RecordBuild(time.Since(start), len(data))

	return &Archive{
		Name:    types.ArchiveName(id),
		Data:    data,
		Entries: res.Entries,
	}, res, nil
}

// Export builds the archive for req and, when a destination is set, delivers
// it with retries. Every outcome except a missing payload is appended to the
// export history. The returned report is never nil; its Err is also returned.
func (e *Exporter) Export(ctx context.Context, req Request) (*Report, error) {
	log := slog.With("conversation_id", string(req.ConversationID))
	report := &Report{
		ConversationID: req.ConversationID,
		Destination:    destinationLabel(req.Destination),
	}

	arc, res, err := e.Build(ctx, req.ConversationID, req.DirectoryMode)
	if res != nil {
		report.Artifacts = len(res.Entries)
		report.Failed = res.Failed
		report.Truncated = res.Truncated
	}
	if err == nil {
		report.Archive = arc
		if req.Destination != "" {
			report.Location, err = e.deliver(ctx, req.Destination, arc)
		}
	}
	report.Err = err
	report.Status = statusFor(err)

	switch report.Status {
	case types.ExportStatusSuccess:
		log.Info("export complete", "artifacts", report.Artifacts, "failed_messages", report.Failed, "location", report.Location)
	case types.ExportStatusFailed:
		log.Error("export failed", "error", err)
	case types.ExportStatusNotFound:
		log.Warn("conversation not cached")
		metrics.RecordExport(string(report.Status), 0, 0)
		return report, err
	default:
		log.Info("nothing to export", "status", string(report.Status))
	}

	metrics.RecordExport(string(report.Status), report.Artifacts, report.Failed)
	e.record(ctx, report)
	return report, err
}

func (e *Exporter) deliver(ctx context.Context, destination string, arc *Archive) (string, error) {
	if e.sink == nil {
		return "", &ArchiveError{Op: "deliver", Err: fmt.Errorf("no sink for destination: %s", destination)}
	}
	var location string
	err := e.retry.Execute(ctx, func() error {
		loc, err := e.sink.Deliver(ctx, destination, arc.Name, arc.Data)
		metrics.RecordDelivery(sinkLabel(destination), err)
		if err != nil {
			slog.Warn("delivery attempt failed", "destination", destination, "error", err)
			return err
		}
		location = loc
		return nil
	})
	if err != nil {
		return "", &ArchiveError{Op: "deliver", Err: err}
	}
	return location, nil
}

func (e *Exporter) record(ctx context.Context, report *Report) {
	if e.history == nil {
		return
	}
	// History must be written even when the export was cancelled.
	if err := e.history.Append(context.WithoutCancel(ctx), report.Record()); err != nil {
		slog.Warn("append export history", "conversation_id", string(report.ConversationID), "error", err)
	}
}

func (e *Exporter) process(job *Job) error {
	report, err := e.Export(job.Ctx, job.Request)
	job.Report = report
	// Empty conversations are reported, not failed.
	switch report.Status {
	case types.ExportStatusFailed, types.ExportStatusNotFound:
		return err
	}
	return nil
}

// Submit enqueues req on its conversation's lane. onComplete, if set, is
// called with the report once the export has run.
func (e *Exporter) Submit(ctx context.Context, req Request, onComplete func(*Report)) error {
	job := NewJob(req)
	job.Ctx = ctx
	job.OnComplete = onComplete
	return e.Queue.Enqueue(job)
}

// ExportAndWait submits req and blocks until it has run or ctx ends.
func (e *Exporter) ExportAndWait(ctx context.Context, req Request) (*Report, error) {
	done := make(chan *Report, 1)
	if err := e.Submit(ctx, req, func(r *Report) { done <- r }); err != nil {
		return nil, fmt.Errorf("submit export: %w", err)
	}
	select {
	case r := <-done:
		if r.Status == types.ExportStatusSuccess {
			return r, nil
		}
		return r, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsNotFound reports whether err means the conversation has no cached payload.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrPayloadNotFound)
}

func sinkLabel(destination string) string {
	if i := strings.Index(destination, ":"); i >= 0 {
		return destination[:i]
	}
	return destination
}
