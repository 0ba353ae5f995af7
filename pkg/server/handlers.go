package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/clio-ai/clio/pkg/rag"
)

// Text analysis bounds, matching the import form limits.
const (
	minTextLen = 10
	maxTextLen = 2000
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.store.Stats().Documents,
	})
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		writeError(w, http.StatusBadRequest, "please provide some historical text to analyze")
		return
	case len(text) < minTextLen:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("please provide at least %d characters of historical text", minTextLen))
		return
	case len(text) > maxTextLen:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("text is too long, limit is %d characters", maxTextLen))
		return
	}

	result, err := s.agent.ListFacts(r.Context(), text)
	if err != nil {
		slog.Error("fact extraction failed", "error", err)
		writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	path, cleanup, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	docs, err := rag.ExtractFile(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var parts []string
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	text := strings.Join(parts, "\n\n")

	result, err := s.agent.ListFacts(r.Context(), text)
	if err != nil {
		slog.Error("fact extraction failed", "error", err)
		writeError(w, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	path, cleanup, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	docs, err := rag.ExtractFile(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	report, err := s.store.AddDocuments(r.Context(), docs)
	if err != nil {
		slog.Error("indexing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "indexing failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// receiveUpload validates and saves the uploaded document_file. On failure
// it writes the error response and returns ok=false.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (path string, cleanup func(), ok bool) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is too large, maximum size allowed is %d bytes", s.cfg.MaxUploadBytes))
		return "", noop, false
	}

	file, header, err := r.FormFile("document_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file was selected, please choose a file to upload")
		return "", noop, false
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file was selected, please choose a file to upload")
		return "", noop, false
	}
	if !rag.IsSupportedFile(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType,
			"invalid file type, supported extensions: "+strings.Join(rag.SupportedExtensions, ", "))
		return "", noop, false
	}
	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, "the uploaded file is empty, please choose a valid file")
		return "", noop, false
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "saving upload failed")
		return "", noop, false
	}
	dst := filepath.Join(s.cfg.UploadDir, filepath.Base(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "saving upload failed")
		return "", noop, false
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dst)
		writeError(w, http.StatusInternalServerError, "saving upload failed")
		return "", noop, false
	}
	out.Close()

	return dst, func() { os.Remove(dst) }, true
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := s.agent.Run(r.Context(), req.Question)
	if err != nil {
		slog.Error("ask failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Hits      []rag.SearchHit `json:"hits"`
	Citations string          `json:"citations"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	hits, err := s.store.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		slog.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Hits:      hits,
		Citations: rag.FormatCitations(hits),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
