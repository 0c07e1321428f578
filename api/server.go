// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package api exposes the policy QA engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/ingestion"
	"github.com/poiesic/policyrag/qa"
)

// DefaultMaxUploadBytes limits the size of an uploaded document.
const DefaultMaxUploadBytes = 10 << 20

// Config configures the HTTP server.
type Config struct {
	// APIKey enables bearer authentication of /api routes when set.
	APIKey string

	// UploadDir holds uploaded documents. Default: ./uploads
	UploadDir string

	// MaxUploadBytes limits the size of an uploaded document.
	MaxUploadBytes int64

	// Answerer options applied to the query path.
	AnswererOptions []qa.Option

	// Pipeline options applied to uploads.
	PipelineOptions []ingestion.Option
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		UploadDir:      "./uploads",
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Server is the HTTP API server for policyrag.
type Server struct {
	router   chi.Router
	system   *policyrag.System
	answerer *qa.Answerer
	pipeline *ingestion.Pipeline
	uploads  *UploadStore
	metrics  *Metrics
	log      *slog.Logger
	cfg      Config
}

// NewServer creates and configures the HTTP server. Call Close to release
// the ingestion workers; the System stays owned by the caller.
func NewServer(system *policyrag.System, log *slog.Logger, cfg Config) (*Server, error) {
	if system == nil {
		return nil, errors.New("api: system required")
	}
	if log == nil {
		log = slog.Default().With("component", "api")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultConfig().UploadDir
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	uploads, err := NewUploadStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	answerer, err := system.NewAnswerer(cfg.AnswererOptions...)
	if err != nil {
		return nil, err
	}
	pipeline, err := system.NewIngestionPipeline(cfg.PipelineOptions...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		system:   system,
		answerer: answerer,
		pipeline: pipeline,
		uploads:  uploads,
		metrics:  NewMetrics(),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Close releases the ingestion pipeline.
func (s *Server) Close() {
	s.pipeline.Release()
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Route("/api/chat", func(r chi.Router) {
			r.Post("/query", s.handleQuery)
			r.Post("/classify-intent", s.handleClassifyIntent)
			r.Post("/suggest", s.handleSuggest)
			r.Get("/health", s.handleChatHealth)
		})

		r.Route("/api/documents", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Get("/stats", s.handleStats)
			r.Get("/list", s.handleList)
			r.Delete("/all", s.handleDeleteAll)
			r.Delete("/{documentID}", s.handleDeleteDocument)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"status": "error", "message": msg})
}
