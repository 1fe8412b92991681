// Package api exposes the intake pipeline over HTTP. Callers submit a
// document either as an uploaded file or as a raw text form field and get
// back the full conversation context accumulated while processing it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/flowbit-ai/intake-agent/agent/contract"
	statex "github.com/flowbit-ai/intake-agent/agent/state"
	"github.com/flowbit-ai/intake-agent/pkg/pdftext"
)

const maxUploadBytes = 16 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".json": true,
	".txt":  true,
	".eml":  true,
}

// Pipeline is the slice of the orchestrator the server needs.
type Pipeline interface {
	ProcessInput(ctx context.Context, sourceType string, content string) (string, *statex.Context, error)
}

type Server struct {
	router   *chi.Mux
	pipeline Pipeline
	port     int
}

func NewServer(pipeline Pipeline, port int) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		pipeline: pipeline,
		port:     port,
	}

	router.Get("/health", s.health)
	router.Post("/process_input", s.processInput)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Info().Str("addr", addr).Msg("api server starting")
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) processInput(w http.ResponseWriter, r *http.Request) {
	sourceType, content, errResp := readSubmission(r)
	if errResp != nil {
		writeJSON(w, http.StatusBadRequest, errResp)
		return
	}

	conversationID, cc, err := s.pipeline.ProcessInput(r.Context(), sourceType, content)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("pipeline failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "processing failed",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"input_metadata":  cc.InputMetadata,
		"extracted_data":  cc.ExtractedData,
	})
}

// readSubmission accepts either a multipart file upload or a raw_text_input
// form field. PDF uploads are converted to plain text before processing.
func readSubmission(r *http.Request) (sourceType, content string, errResp map[string]string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", "", map[string]string{"error": "could not parse request body"}
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExtensions[ext] {
			return "", "", map[string]string{
				"error": fmt.Sprintf("unsupported file type %q, expected .pdf, .json, .txt or .eml", ext),
			}
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return "", "", map[string]string{"error": "could not read uploaded file"}
		}

		if ext == ".pdf" {
			text, err := pdftext.Extract(data)
			if err != nil {
				return "", "", map[string]string{"error": "could not extract text from PDF file"}
			}
			return "file:" + header.Filename, text, nil
		}
		return "file:" + header.Filename, string(data), nil
	}

	raw := r.FormValue("raw_text_input")
	if strings.TrimSpace(raw) != "" {
		return "raw_text", raw, nil
	}
	if _, ok := r.Form["raw_text_input"]; ok {
		return "", "", map[string]string{"error": "input content is empty"}
	}

	return "", "", map[string]string{"error": "provide either a file upload or a raw_text_input field"}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
