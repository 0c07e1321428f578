package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/ingestion"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !ingestion.IsSupported(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s (supported: %s)",
			filepath.Ext(filename), strings.Join(ingestion.SupportedExtensions, ", ")), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	documentID := s.uploads.DocumentID(filename)
	path, err := s.uploads.Save(documentID, data)
	if err != nil {
		if errors.Is(err, ErrUploadExists) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		s.log.Error("saving upload failed", "document", documentID, "err", err)
		jsonError(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	uploadedBy := r.FormValue("uploaded_by")
	if uploadedBy == "" {
		uploadedBy = "api"
	}
	result, err := s.pipeline.IngestFile(r.Context(), path, core.DocumentMetadata{
		Filename:     filename,
		UploadedBy:   uploadedBy,
		DocumentID:   documentID,
		DocumentType: r.FormValue("document_type"),
	})
	if err != nil {
		if _, rmErr := s.uploads.Remove(documentID); rmErr != nil {
			s.log.Warn("removing failed upload", "document", documentID, "err", rmErr)
		}
		s.log.Error("ingest failed", "document", documentID, "err", err)
		code := http.StatusInternalServerError
		if errors.Is(err, ingestion.ErrNoText) || errors.Is(err, core.ErrInvalidDocument) {
			code = http.StatusUnprocessableEntity
		}
		jsonError(w, "Failed to process document: "+err.Error(), code)
		return
	}
	s.metrics.ObserveIngest(result.ChunksCreated)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "success",
		"message":            "Successfully ingested document: " + filename,
		"chunks_created":     result.ChunksCreated,
		"sections_processed": result.SectionsProcessed,
		"pages_processed":    result.PagesProcessed,
		"document_id":        documentID,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.system.Stats(r.Context())
	if err != nil {
		s.log.Error("stats failed", "err", err)
		jsonError(w, "Failed to get stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"collection_name": stats.Collection,
		"document_count":  stats.DocumentCount,
		"chunk_count":     stats.ChunkCount,
		"embedding_model": stats.EmbeddingModel,
		"generator_model": stats.GeneratorModel,
	})
}

// handleList lists the files in the uploads directory. Failures yield an
// empty list.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	files, err := s.uploads.List()
	if err != nil {
		s.log.Warn("listing uploads failed", "err", err)
		files = []UploadInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"documents": files,
		"total":     len(files),
	})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	result := s.system.DeleteAll(r.Context())
	if _, err := s.uploads.Clear(); err != nil {
		s.log.Warn("clearing uploads failed", "err", err)
	}
	if !result.Known() {
		jsonError(w, "Failed to delete documents: "+result.String(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       "All documents deleted successfully",
		"deleted_count": result.Count(),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	result := s.system.DeleteDocument(r.Context(), documentID)
	if _, err := s.uploads.Remove(documentID); err != nil {
		s.log.Warn("removing upload failed", "document", documentID, "err", err)
	}
	if !result.Known() {
		jsonError(w, "Failed to delete document: "+result.String(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       fmt.Sprintf("Document %s deleted", documentID),
		"deleted_count": result.Count(),
	})
}
