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


// Package rerank reorders retrieved chunks using lexical and category signals
// and reduces them to the compact context handed to answer generation.
//
// Scores are raw sums with no normalization:
//
//	+5   chunk carries a real section title
//	+15  chunk category equals the question's category
//	+3   per distinct category keyword present in the chunk text
//	+1   per whitespace token shared by question and chunk
//
// Untitled chunks are dropped before scoring unless no retrieved chunk has
// a title. Ties keep their retrieval order.
package rerank
