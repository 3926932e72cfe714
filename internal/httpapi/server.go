// internal/httpapi/server.go
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/artifactdl/internal/exporter"
	"github.com/user/artifactdl/internal/metrics"
	"github.com/user/artifactdl/internal/state"
	"github.com/user/artifactdl/internal/stats"
	"github.com/user/artifactdl/internal/types"
)

const maxPayloadBytes = 64 << 20

// WatchHandler runs a watch immediately (capture, then optional export).
type WatchHandler func(r *http.Request, watch state.Watch) (*exporter.Report, error)

// Options configures optional parts of the Server.
type Options struct {
	// DefaultDestination is used by POST .../export when the body names none.
	DefaultDestination string
	Counter            *stats.Counter
	Watches            *state.WatchStore
	RunWatch           WatchHandler
}

// Server exposes payload ingest, archive download and export over HTTP.
type Server struct {
	payloads types.PayloadStore
	history  types.HistoryStore
	exporter *exporter.Exporter
	opts     Options
	mux      *http.ServeMux
}

// NewServer creates a Server. The exporter's queue must be started.
func NewServer(payloads types.PayloadStore, history types.HistoryStore, exp *exporter.Exporter, opts Options) *Server {
	s := &Server{
		payloads: payloads,
		history:  history,
		exporter: exp,
		opts:     opts,
		mux:      http.NewServeMux(),
	}
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /api/conversations", s.handleListConversations)
	s.handle("PUT /api/conversations/{id}/payload", s.handlePutPayload)
	s.handle("DELETE /api/conversations/{id}/payload", s.handleDeletePayload)
	s.handle("GET /api/conversations/{id}/artifacts", s.handleArtifacts)
	s.handle("GET /api/conversations/{id}/archive", s.handleArchive)
	s.handle("POST /api/conversations/{id}/export", s.handleExport)
	s.handle("GET /api/conversations/{id}/history", s.handleHistory)
	s.handle("POST /api/watches/{name}/run", s.handleRunWatch)
	s.mux.Handle("GET /metrics", metrics.Handler())
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.RecordRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func conversationID(w http.ResponseWriter, r *http.Request) (types.ConversationID, bool) {
	id, err := types.ParseConversationID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return "", false
	}
	return id, true
}

func directoryMode(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("dirs"))
	return v
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.payloads.List(r.Context())
	if err != nil {
		slog.Error("list payloads failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if ids == nil {
		ids = []types.ConversationID{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handlePutPayload(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var payload types.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if payload.UUID == "" {
		payload.UUID = id
	} else if pid, err := types.ParseConversationID(string(payload.UUID)); err != nil || pid != id {
		writeError(w, http.StatusBadRequest, "payload uuid does not match conversation id")
		return
	}

	if err := s.payloads.Put(r.Context(), id, &payload); err != nil {
		slog.Error("store payload failed", "conversation_id", string(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	slog.Info("payload ingested", "conversation_id", string(id), "messages", len(payload.ChatMessages))
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"messages":        len(payload.ChatMessages),
	})
}

func (s *Server) handleDeletePayload(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := s.payloads.Delete(r.Context(), id); err != nil {
		slog.Error("delete payload failed", "conversation_id", string(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type artifactsResponse struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	Name           string               `json:"name"`
	Artifacts      int                  `json:"artifacts"`
	Failed         int                  `json:"failed_messages"`
	Truncated      bool                 `json:"truncated"`
	Summary        *stats.Summary       `json:"summary"`
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	payload, res, err := s.exporter.Walk(r.Context(), id, directoryMode(r))
	switch {
	case exporter.IsNotFound(err):
		writeError(w, http.StatusNotFound, "payload not found")
		return
	case errors.Is(err, exporter.ErrEmptyConversation):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  string(types.ExportStatusEmpty),
			"message": (&exporter.Report{Status: types.ExportStatusEmpty}).Message(),
		})
		return
	case err != nil:
		slog.Error("walk conversation failed", "conversation_id", string(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, artifactsResponse{
		ConversationID: id,
		Name:           payload.Name,
		Artifacts:      len(res.Entries),
		Failed:         res.Failed,
		Truncated:      res.Truncated,
		Summary:        stats.Summarize(res.Entries, s.opts.Counter),
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	report, err := s.exporter.ExportAndWait(r.Context(), exporter.Request{
		ConversationID: id,
		DirectoryMode:  directoryMode(r),
	})
	if err != nil {
		writeExportError(w, report, err)
		return
	}

	arc := report.Archive
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, arc.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(arc.Data)))
	w.Header().Set("X-Artifact-Count", strconv.Itoa(report.Artifacts))
	w.WriteHeader(http.StatusOK)
	w.Write(arc.Data)
}

type exportRequest struct {
	Destination string `json:"destination"`
	Dirs        bool   `json:"dirs"`
}

type exportResponse struct {
	Status    types.ExportStatus `json:"status"`
	Message   string             `json:"message"`
	Artifacts int                `json:"artifacts"`
	Location  string             `json:"location,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func toResponse(report *exporter.Report) exportResponse {
	resp := exportResponse{
		Status:    report.Status,
		Message:   report.Message(),
		Artifacts: report.Artifacts,
		Location:  report.Location,
	}
	if report.Status == types.ExportStatusFailed && report.Err != nil {
		resp.Error = report.Err.Error()
	}
	return resp
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}

	var body exportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	dest := body.Destination
	if dest == "" {
		dest = s.opts.DefaultDestination
	}
	if dest == "" {
		writeError(w, http.StatusBadRequest, "destination required")
		return
	}

	report, err := s.exporter.ExportAndWait(r.Context(), exporter.Request{
		ConversationID: id,
		Destination:    dest,
		DirectoryMode:  body.Dirs || directoryMode(r),
	})
	if err != nil {
		writeExportError(w, report, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(report))
}

// writeExportError maps export failures onto HTTP statuses.
func writeExportError(w http.ResponseWriter, report *exporter.Report, err error) {
	var archErr *exporter.ArchiveError
	switch {
	case exporter.IsNotFound(err):
		writeError(w, http.StatusNotFound, "payload not found")
	case report == nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case report.Status == types.ExportStatusEmpty || report.Status == types.ExportStatusNoArtifacts:
		writeJSON(w, http.StatusNotFound, toResponse(report))
	case errors.As(err, &archErr):
		writeJSON(w, http.StatusBadGateway, toResponse(report))
	default:
		writeJSON(w, http.StatusInternalServerError, toResponse(report))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.history.Tail(r.Context(), id, limit)
	if err != nil {
		slog.Error("tail history failed", "conversation_id", string(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if records == nil {
		records = []*types.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRunWatch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Watches == nil || s.opts.RunWatch == nil {
		writeError(w, http.StatusServiceUnavailable, "watches not configured")
		return
	}
	name := r.PathValue("name")

	watch, err := s.opts.Watches.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "watch not found")
		return
	}
	if !watch.Enabled {
		writeError(w, http.StatusForbidden, "watch is disabled")
		return
	}

	report, err := s.opts.RunWatch(r, *watch)
	if err != nil {
		slog.Error("run watch failed", "watch", name, "error", err)
		if report != nil {
			writeExportError(w, report, err)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if report == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "captured"})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(report))
}
