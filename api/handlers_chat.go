package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/intent"
	"github.com/poiesic/policyrag/qa"
)

// IntentConfidence is reported with every classification. The classifier
// is rule based and has no calibrated score.
const IntentConfidence = 0.85

type chatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type queryRequest struct {
	Question       string     `json:"question"`
	ChatHistory    []chatTurn `json:"chat_history"`
	IncludeSources *bool      `json:"include_sources"`
}

type source struct {
	Content  string         `json:"content"`
	Section  string         `json:"section,omitempty"`
	Category string         `json:"category,omitempty"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type queryResponse struct {
	Status      string   `json:"status"`
	Answer      string   `json:"answer"`
	Sources     []source `json:"sources,omitempty"`
	Question    string   `json:"question"`
	Intent      string   `json:"intent"`
	Suggestions []string `json:"suggestions"`
	Origin      string   `json:"origin"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	q := core.Question{Text: req.Question}
	for _, t := range req.ChatHistory {
		q.History = append(q.History, core.ChatTurn{Question: t.Question, Answer: t.Answer})
	}

	answer, err := s.answerer.AskWithMonitor(r.Context(), q, s.metrics.Monitor())
	if err != nil {
		if errors.Is(err, core.ErrInvalidQuestion) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("query failed", "err", err)
		jsonError(w, "Query processing failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := queryResponse{
		Status:      "success",
		Answer:      answer.Text,
		Question:    answer.Question,
		Intent:      string(answer.Intent),
		Suggestions: intent.Suggestions(answer.Question),
		Origin:      string(answer.Origin),
	}
	if req.IncludeSources == nil || *req.IncludeSources {
		resp.Sources = sources(answer.Sources)
	}
	writeJSON(w, http.StatusOK, resp)
}

func sources(ranked []core.ScoredChunk) []source {
	citations := qa.Citations(ranked)
	out := make([]source, 0, len(citations))
	for _, c := range citations {
		out = append(out, source{
			Content:  c.Excerpt,
			Section:  c.Section,
			Category: string(c.Category),
			Score:    c.Score,
			Metadata: metadataJSON(c.Metadata),
		})
	}
	return out
}

func metadataJSON(m core.DocumentMetadata) map[string]any {
	out := map[string]any{
		"filename":      m.Filename,
		"uploaded_by":   m.UploadedBy,
		"document_id":   m.DocumentID,
		"document_type": m.DocumentType,
	}
	if !m.UploadDate.IsZero() {
		out["upload_date"] = m.UploadDate
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	for k, v := range m.Extra {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// questionParam reads the question from the query string or a JSON body.
func questionParam(r *http.Request) (string, error) {
	question := r.URL.Query().Get("question")
	if question == "" && r.ContentLength != 0 {
		var body struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.New("invalid request body: " + err.Error())
		}
		question = body.Question
	}
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is required")
	}
	return question, nil
}

func (s *Server) handleClassifyIntent(w http.ResponseWriter, r *http.Request) {
	question, err := questionParam(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question":   question,
		"intent":     intent.Classify(question),
		"confidence": IntentConfidence,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	question, err := questionParam(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"original_question": question,
		"intent":            intent.Classify(question),
		"suggestions":       intent.Suggestions(question),
	})
}

func (s *Server) handleChatHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.system.Repository().Count(r.Context())
	if err != nil {
		s.log.Error("counting chunks failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "unhealthy",
			"rag_system": "unavailable",
			"message":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"rag_system":        "initialized",
		"documents_loaded":  count,
		"ready_for_queries": count > 0,
	})
}
