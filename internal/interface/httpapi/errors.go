package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jinford/ai-tutor/internal/core/document"
	"github.com/jinford/ai-tutor/internal/core/index"
	"github.com/jinford/ai-tutor/internal/core/speech"
	"github.com/jinford/ai-tutor/internal/core/tutor"
)

type errorResponse struct {
	Detail string            `json:"detail"`
	Hint   map[string]string `json:"hint,omitempty"`
}

// statusFor はドメインのエラーを HTTP ステータスに対応付ける
func statusFor(err error) int {
	switch {
	case errors.Is(err, tutor.ErrInvalidInput),
		errors.Is(err, tutor.ErrNoExtractableContent),
		errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, speech.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, index.ErrEmbeddingService),
		errors.Is(err, tutor.ErrGenerationService),
		errors.Is(err, speech.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, tutor.ErrIngestionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError はエラーを {"detail": ...} 形式で書き出す。500 の場合は内部の詳細を返さない
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
