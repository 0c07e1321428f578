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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidQuestion indicates a Question failed validation.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrEmptyContent indicates a text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyDocumentID indicates the document identifier is missing.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrChunkTooLong indicates a chunk exceeds the maximum chunk size.
	ErrChunkTooLong = errors.New("chunk text exceeds maximum size")

	// ErrInvalidSearch indicates invalid retrieval parameters.
	ErrInvalidSearch = errors.New("invalid search parameters")

	// ErrUpstreamUnavailable indicates the embedder or the store could not
	// serve a query. No partial answer is produced.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
