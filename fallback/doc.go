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


// Package fallback synthesizes answers without a generative model.
//
// The Engine runs an ordered cascade of rules over the question and the
// reranked context. Each stage either answers or passes to the next:
//
//  1. arrival time against the 9:15 AM grace period
//  2. late-arrival counts against the three-lates deduction rule
//  3. canned answers for procedural questions
//  4. the sick-leave encashment override
//  5. extraction of the question's policy section from the context
//  6. a keyword summary of the context
//
// Earlier stages shadow later ones. The last stage always produces text,
// so the engine never fails.
package fallback
