package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/user/artifactdl/internal/capture"
	"github.com/user/artifactdl/internal/config"
	"github.com/user/artifactdl/internal/exporter"
	"github.com/user/artifactdl/internal/sink"
	"github.com/user/artifactdl/internal/state"
	"github.com/user/artifactdl/internal/types"
)

// app bundles the stores, sinks and exporter shared by every command.
type app struct {
	cfg      *config.Config
	payloads types.PayloadStore
	history  *state.HistoryStore
	watches  *state.WatchStore
	sinks    *sink.Registry
	exporter *exporter.Exporter
	capture  *capture.Client
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	a := &app{
		cfg:     cfg,
		history: state.NewHistoryStore(cfg.DataDir),
		watches: state.NewWatchStore(filepath.Join(cfg.DataDir, "watches.json")),
	}

	switch cfg.Store.Driver {
	case "bolt":
		db, err := state.OpenBoltStore(filepath.Join(cfg.DataDir, "payloads.db"))
		if err != nil {
			return nil, fmt.Errorf("open payload store (is the daemon running?): %w", err)
		}
		a.payloads = db
		a.closers = append(a.closers, db.Close)
	case "", "file":
		a.payloads = state.NewFileStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sinks = sinks

	retry := exporter.DefaultRetryPolicy()
	a.exporter = exporter.New(a.payloads, a.history, sinks, exporter.Options{
		MaxDepth:      cfg.Export.MaxDepth,
		MaxConcurrent: int64(cfg.MaxConcurrent),
		Retry:         retry,
	})
	a.capture = capture.New(capture.Config{
		BaseURL:    cfg.Capture.BaseURL,
		OrgID:      cfg.Capture.OrgID,
		SessionKey: cfg.Capture.SessionKey,
		UserAgent:  cfg.Capture.UserAgent,
	}, retry)
	return a, nil
}

func buildSinks(ctx context.Context, cfg *config.Config) (*sink.Registry, error) {
	reg := sink.NewRegistry()
	reg.Register("file:", sink.NewFileSink(cfg.Export.OutputDir))

	s3Sink, err := sink.NewS3Sink(ctx, sink.S3Options{
		Bucket:       cfg.S3.Bucket,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		AccessKeyID:  cfg.S3.AccessKeyID,
		SecretKey:    cfg.S3.SecretKey,
		Prefix:       cfg.S3.Prefix,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 sink: %w", err)
	}
	// Registered even when disabled so s3: destinations fail with a clear error.
	reg.Register("s3:", s3Sink)

	if cfg.Telegram.Token != "" {
		tg, err := sink.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram sink disabled", "error", err)
		} else {
			reg.Register("telegram:", tg)
		}
	}
	return reg, nil
}

// Close releases the payload store.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}
}

// defaultDestination is the configured destination, or the output directory.
func (a *app) defaultDestination() string {
	if a.cfg.Export.Destination != "" {
		return a.cfg.Export.Destination
	}
	return "file:"
}

// fetchAndStore captures a conversation from the chat API into the cache.
func (a *app) fetchAndStore(ctx context.Context, id types.ConversationID) (*types.Payload, error) {
	payload, err := a.capture.Fetch(ctx, a.cfg.Capture.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if err := a.payloads.Put(ctx, id, payload); err != nil {
		return nil, fmt.Errorf("store payload: %w", err)
	}
	slog.Info("conversation captured", "conversation_id", string(id), "messages", len(payload.ChatMessages))
	return payload, nil
}

// runWatch captures the watched conversation and, if it names a destination,
// exports it through the queue.
func (a *app) runWatch(ctx context.Context, w state.Watch) (*exporter.Report, error) {
	id, err := types.ParseConversationID(w.ConversationID)
	if err != nil {
		return nil, err
	}
	if _, err := a.fetchAndStore(ctx, id); err != nil {
		return nil, err
	}
	if w.Destination == "" {
		return nil, nil
	}
	return a.exporter.ExportAndWait(ctx, exporter.Request{
		ConversationID: id,
		Destination:    w.Destination,
		DirectoryMode:  a.cfg.Export.DirectoryMode,
	})
}

// resolveID accepts a conversation id or a chat page URL.
func resolveID(arg string) (types.ConversationID, error) {
	return capture.ConversationIDFromURL(arg)
}
