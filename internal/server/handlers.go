package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/roy0424/memenews/internal/apperr"
	"github.com/roy0424/memenews/internal/pipeline"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// User-facing messages. Kept short and localized; internals never leak.
const (
	msgURLRequired     = "URL을 입력해주세요"
	msgTextRequired    = "텍스트를 입력해주세요"
	msgCrawlFailed     = "뉴스 크롤링에 실패했습니다. URL을 확인하거나 텍스트를 직접 입력해주세요."
	msgPolicyRejected  = "해당 뉴스 내용으로는 이미지를 생성할 수 없습니다. 다른 뉴스를 시도해주세요."
	msgGenerateFailed  = "밈 생성에 실패했습니다"
	msgListCrawlFailed = "뉴스 목록 크롤링에 실패했습니다"
	msgFeedFailed      = "밈 목록을 불러오지 못했습니다"
)

func (s *Server) handleCrawlNews(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = "politics"
	}

	newsList, err := s.extractor.Listing(r.Context(), category)
	if err != nil {
		log.Printf("Error crawling news list: %v", err)
		writeError(w, http.StatusInternalServerError, msgListCrawlFailed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"newsList": newsList})
}

func (s *Server) handleGenerateMeme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgGenerateFailed)
		return
	}

	result, err := s.pipeline.Generate(r.Context(), req)
	if err != nil {
		status, msg := classifyGenerateError(req, err)
		log.Printf("Error generating meme: %v", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// classifyGenerateError maps a pipeline failure to a status and localized
// message. Missing input and extraction failures are caller errors;
// content-policy rejections get their own message; everything else is a
// generic failure.
func classifyGenerateError(req pipeline.Request, err error) (int, string) {
	var inputErr *apperr.InputError
	if errors.As(err, &inputErr) {
		if req.Kind == "url" {
			return http.StatusBadRequest, msgURLRequired
		}
		return http.StatusBadRequest, msgTextRequired
	}

	var extractionErr *apperr.ExtractionError
	if errors.As(err, &extractionErr) {
		return http.StatusBadRequest, msgCrawlFailed
	}
	var fetchErr *apperr.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadRequest, msgCrawlFailed
	}

	var genErr *apperr.GenerationError
	if errors.As(err, &genErr) {
		status := genErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if genErr.PolicyViolation() {
			return status, msgPolicyRejected
		}
		return status, msgGenerateFailed
	}

	return http.StatusInternalServerError, msgGenerateFailed
}

func (s *Server) handleListMemes(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	memes, nextCursor, err := s.db.ListMemes(cursor, limit)
	if err != nil {
		log.Printf("Error fetching memes: %v", err)
		writeError(w, http.StatusInternalServerError, msgFeedFailed)
		return
	}

	resp := map[string]any{"memes": memes}
	if memes == nil {
		resp["memes"] = []struct{}{}
	}
	if nextCursor != "" {
		resp["nextCursor"] = nextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleComposeImage(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	imageRef := r.URL.Query().Get("image")

	card, err := s.composer.Render(r.Context(), text, imageRef)
	if err != nil {
		log.Printf("Image composition error: %v", err)
		http.Error(w, "Failed to generate image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(card)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
