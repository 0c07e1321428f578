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


package storage

import "errors"

var (
	// ErrNotFound indicates that no chunk has the requested ID.
	ErrNotFound = errors.New("chunk not found")

	// ErrTransactionFailed indicates that a badger transaction could not commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInvalidQuery indicates invalid search parameters.
	ErrInvalidQuery = errors.New("invalid search parameters")

	// ErrSerializationFailed indicates a chunk record could not be encoded or decoded.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates a stored record ended early.
	ErrTruncatedData = errors.New("truncated data")
)
