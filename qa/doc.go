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


// Package qa answers questions against the ingested policy corpus.
//
// An Answerer runs one query end to end:
//
//	expand → retrieve (MMR) → rerank → generate, or fall back → classify intent
//
// The original question, not its expansion, is what the reranker scores and
// what the generator sees. A generator failure of any kind (error, timeout,
// blank or overlong output) is replaced by the deterministic fallback answer
// and never surfaces to the caller. Retrieval failures do surface, wrapped in
// core.ErrUpstreamUnavailable, and produce no partial answer.
package qa
