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


package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxChunkChars bounds the length of a chunk's text in characters. Sections
// up to this size are stored whole; longer sections are cut into smaller windows.
const MaxChunkChars = 600

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Metadata.DocumentID, when set, must equal ID
//
// Empty text is valid and produces no chunks.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}
	if doc.Metadata.DocumentID != "" && doc.Metadata.DocumentID != doc.ID {
		return fmt.Errorf("%w: metadata document id %q does not match %q", ErrInvalidDocument, doc.Metadata.DocumentID, doc.ID)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// NOT validated (populated during ingestion):
//   - Vector
//   - ID
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if n := utf8.RuneCountInString(chunk.Text); n > MaxChunkChars {
		return fmt.Errorf("%w: %w (%d chars)", ErrInvalidChunk, ErrChunkTooLong, n)
	}
	if chunk.Metadata.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}
	return nil
}

// ValidateQuestion validates a Question according to domain rules.
func ValidateQuestion(q *Question) error {
	if q == nil {
		return fmt.Errorf("%w: question is nil", ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuestion, ErrEmptyContent)
	}
	return nil
}
