package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/ai-tutor/internal/core/speech"
	"github.com/jinford/ai-tutor/internal/core/tutor"
)

type queryRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type ttsRequest struct {
	Text      string   `json:"text"`
	Stability *float64 `json:"stability"`
}

type uploadResponse struct {
	Detail       string `json:"detail"`
	ChunksStored int    `json:"chunks_stored"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readFormFile(w, r)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("File too large (max %d bytes)", maxErr.Limit))
		return
	}
	if err != nil || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeDetail(w, http.StatusBadRequest, "Only PDF allowed")
		return
	}

	result, err := s.tutor.Ingest(r.Context(), tutor.IngestParams{Filename: filename, Data: data})
	if err != nil {
		if errors.Is(err, tutor.ErrNoExtractableContent) {
			writeDetail(w, http.StatusBadRequest, "No extractable text found in PDF")
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Detail:       fmt.Sprintf("Stored %d chunks", result.ChunksStored),
		ChunksStored: result.ChunksStored,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[queryRequest](r)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeDetail(w, http.StatusBadRequest, "Missing 'question'")
		return
	}

	result, err := s.tutor.AskOnce(r.Context(), question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[chatRequest](r)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeDetail(w, http.StatusBadRequest, "Missing 'message'")
		return
	}

	params := tutor.ChatParams{Message: message}
	if req.SessionID != "" {
		params.SessionID = mo.Some(req.SessionID)
	}

	result, err := s.tutor.Chat(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readFormFile(w, r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Missing audio file")
		return
	}

	transcript, err := s.speech.Transcribe(r.Context(), data, filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	req := decodeJSON[ttsRequest](r)

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeDetail(w, http.StatusBadRequest, "Missing 'text'")
		return
	}

	synth := speech.SynthesisRequest{Text: text}
	if req.Stability != nil {
		synth.Stability = mo.Some(*req.Stability)
	}

	audio, err := s.speech.Synthesize(r.Context(), synth)
	if err != nil {
		var provErr *speech.ProviderError
		if errors.As(err, &provErr) && provErr.Hint != nil {
			s.logger.Error("request failed", "path", r.URL.Path, "error", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Detail: err.Error(), Hint: provErr.Hint})
			return
		}
		s.writeError(w, r, err)
		return
	}

	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

// readFormFile はマルチパートの "file" フィールドを読み込む
func (s *Server) readFormFile(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// decodeJSON は本文を読み込む。不正な JSON は空のリクエストとして扱う
func decodeJSON[T any](r *http.Request) T {
	var v T
	if r.Body == nil {
		return v
	}
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var zero T
		return zero
	}
	return v
}
