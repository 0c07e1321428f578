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


// Package ai provides abstractions for the AI services policyrag depends on.
//
// Two capabilities are modelled: an Embedder that turns text into vectors for
// similarity search, and a Generator that completes a prompt into an answer.
// AIProvider bundles both so callers configure them in one place.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockGenerator) return CONCRETE types so tests can inject behavior
// and assert call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	mockGen := mock.NewMockGenerator()            // returns *mock.MockGenerator
//
// A provider may be configured without a generator. Generator() then returns
// nil and callers answer from the deterministic fallback engine instead.
package ai
