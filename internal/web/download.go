package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/p-n-ai/highscore/internal/events"
	"github.com/p-n-ai/highscore/internal/export"
)

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	state, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if len(state.Results) == 0 {
		http.Error(w, "no generated questions to download", http.StatusNotFound)
		return
	}

	generatedAt := s.now()
	filename := export.Filename(generatedAt)

	err = export.WithTempDocument(state.Results, generatedAt, s.exportDir, func(f *os.File, size int64) error {
		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Error("document export failed", "session_id", id, "error", err)
		if w.Header().Get("Content-Length") == "" {
			http.Error(w, "error creating word document", http.StatusInternalServerError)
		}
		return
	}

	s.logEvent(r.Context(), id, events.DocumentExported, map[string]any{
		"topics":   len(state.Results),
		"filename": filename,
	})
}
