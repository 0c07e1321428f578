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


// Package storage provides the storage abstraction layer for policyrag.
//
// This package defines the ChunkRepository interface that decouples the
// vector store from retrieval and ingestion logic, plus the value
// serialization shared by backends.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.ChunkRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Deletion
//
// Administrative deletes never fail loudly. DeleteDocument and DeleteAll
// return a DeleteResult whose Outcome is DeleteUnknown when the store failed
// part way, in which case Count reports UnknownCount.
//
// # Usage
//
//	repo, err := badger.NewRepository("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
