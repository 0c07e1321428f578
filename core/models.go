package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the identifier of the ordinal-th chunk of a document.
func ChunkID(documentID string, ordinal int, text string) ID {
	return IDFromContent(documentID + "\x00" + strconv.Itoa(ordinal) + "\x00" + text)
}

// DefaultDocumentType is applied to documents ingested without an explicit type.
const DefaultDocumentType = "policy"

// DocumentMetadata describes the document a chunk was cut from.
// It is copied verbatim into every chunk of the document.
type DocumentMetadata struct {
	Filename     string
	UploadedBy   string
	UploadDate   time.Time
	DocumentID   string
	DocumentType string
	Source       string            // Path of the ingested file
	Extra        map[string]string // Free-form caller metadata
}

// Clone returns a deep copy of the metadata.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// OriginalFilename strips the "timestamp_" prefix that uploads carry in their
// document IDs. IDs without an underscore are returned unchanged.
func OriginalFilename(documentID string) string {
	if _, after, ok := strings.Cut(documentID, "_"); ok && after != "" {
		return after
	}
	return documentID
}

// Matches reports whether the metadata belongs to the document identified by
// id. The id may be a full document ID, a bare filename, or a path suffix.
func (m DocumentMetadata) Matches(id string) bool {
	if id == "" {
		return false
	}
	original := OriginalFilename(id)
	switch {
	case m.DocumentID == id:
		return true
	case m.Filename != "" && (m.Filename == id || m.Filename == original):
		return true
	case m.Source != "" && strings.HasSuffix(m.Source, id):
		return true
	}
	for _, v := range m.Extra {
		if v == id || v == original {
			return true
		}
	}
	return false
}

// Document is a unit of ingestion.
type Document struct {
	ID       string
	Text     string
	Metadata DocumentMetadata
}

// Chunk is a bounded passage of a document, the unit of retrieval.
type Chunk struct {
	Id           ID
	Text         string
	SectionTitle string   // Empty for untitled chunks
	Category     Category // Topic tag derived from the section title
	ChunkIndex   int      // Position within the section
	Ordinal      int      // Position within the document
	Offset       int      // Byte offset of Text within the document text
	Metadata     DocumentMetadata
	Vector       []float32 // Embedding vector (populated during ingestion)
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// HasTitle reports whether the chunk carries a real section title.
func (c *Chunk) HasTitle() bool {
	t := strings.TrimSpace(c.SectionTitle)
	return t != "" && t != NoTitle
}

// NoTitle is the placeholder some producers store for untitled chunks.
const NoTitle = "N/A"

// ScoredChunk pairs a chunk with a non-negative relevance score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// ChatTurn is one prior question/answer exchange.
type ChatTurn struct {
	Question string
	Answer   string
}

// Question is a user query with optional conversation history.
type Question struct {
	Text    string
	History []ChatTurn
}

// AnswerOrigin identifies which path produced an answer.
type AnswerOrigin string

const (
	// OriginModel marks answers produced by the generative model.
	OriginModel AnswerOrigin = "model"
	// OriginFallback marks answers produced by the deterministic fallback engine.
	OriginFallback AnswerOrigin = "fallback"
)

// Intent is the coarse label assigned to a question.
type Intent string

const (
	IntentPolicy       Intent = "policy"
	IntentPersonalData Intent = "personal_data"
)

// Answer is the result of a query.
type Answer struct {
	Text     string
	Sources  []ScoredChunk // Reranked order
	Origin   AnswerOrigin
	Question string
	Intent   Intent
}

// Stats summarizes the contents of a collection.
type Stats struct {
	Collection     string
	ChunkCount     int
	DocumentCount  int
	EmbeddingModel string
	GeneratorModel string
}
