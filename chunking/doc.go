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


// Package chunking cuts policy documents into section-aware chunks.
//
// Section headers are numbered lines such as "4. Leave Policy" or
// "4.1 Casual Leave". Each header opens a section that runs to the next
// header. Sections are tagged with a core.Category from the shared taxonomy
// and kept whole unless they exceed the section limit, in which case they
// are cut into overlapping windows. Documents without headers are cut into
// windows directly.
//
// The output is a pure function of the input: chunking the same document
// twice yields identical chunks, IDs included.
package chunking
