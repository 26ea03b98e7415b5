package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/notes"
	"github.com/globalfish/notes/internal/rag"
	"github.com/globalfish/notes/internal/storage"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))

	resp, err := s.pipeline.Ask(r.Context(), &req)
	if err != nil {
		if errors.Is(err, rag.ErrVectorStoreUnavailable) ||
			errors.Is(err, rag.ErrChatUnavailable) ||
			errors.Is(err, rag.ErrEmbedderUnavailable) {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	result, err := s.indexer.Scan(r.Context())
	if err != nil {
		s.logger.Error("index scan failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"files":   result.Files,
		"chunks":  result.Chunks,
		"message": result.Message(),
	})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	filter := models.RecordFilter{
		Attendee: r.URL.Query().Get("attendee"),
		Date:     r.URL.Query().Get("date"),
		Topic:    r.URL.Query().Get("topic"),
	}
	recs, err := s.storage.ListRecords(r.Context(), filter, 0, 200)
	if err != nil {
		s.logger.Error("list notes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*models.MeetingRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"notes": recs,
		"count": len(recs),
	})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	rec, err := s.storage.GetRecord(r.Context(), fileID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "note not found")
		return
	}
	resp := map[string]interface{}{"note": rec}
	if chunks, err := s.storage.GetChunksByFileID(r.Context(), fileID); err == nil {
		resp["chunk_count"] = len(chunks)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var input models.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ActionLines != "" {
		input.ActionItems = append(input.ActionItems, notes.ParseActionLines(input.ActionLines, time.Now())...)
	}
	if input.Notes == "" && len(input.ActionItems) == 0 {
		s.respondError(w, http.StatusBadRequest, "notes or action items required")
		return
	}
	if input.Date == "" {
		input.Date = time.Now().Format("2006-01-02")
	}

	if err := os.MkdirAll(s.config.Notes.Dir, 0755); err != nil {
		s.logger.Error("creating notes directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	path := filepath.Join(s.config.Notes.Dir, notes.NoteFilename(input.Date, input.Title))
	if err := os.WriteFile(path, []byte(notes.ComposeMarkdown(&input)), 0644); err != nil {
		s.logger.Error("writing note failed", zap.String("path", path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chunks, err := s.indexer.IndexFile(r.Context(), path)
	if err != nil {
		s.logger.Error("indexing new note failed", zap.String("path", path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("note created", zap.String("path", path), zap.Int("chunks", chunks))
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"path":   path,
		"chunks": chunks,
		"status": "created",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordCount, err := s.storage.CountRecords(ctx)
	if err != nil {
		s.logger.Error("status: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"records": recordCount,
		"chunks":  chunkCount,
		"config": map[string]interface{}{
			"notes_dir":     s.config.Notes.Dir,
			"database_path": s.config.Storage.DatabasePath,
			"chunk_size":    s.config.Index.ChunkSize,
			"chunk_overlap": s.config.Index.ChunkOverlap,
			"collection":    s.config.Vector.Collection,
			"chat_model":    s.config.Chat.Model,
		},
	}
	if s.store != nil {
		resp["vector_entries"] = s.store.Count()
	}
	if bytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.VectorStorePath); err == nil {
		resp["storage_bytes"] = bytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
