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


// Package search provides hybrid retrieval over ocean profiles.
//
// The Retriever combines structured filtering with vector similarity:
//   - Filters are extracted from the natural-language query by a model.
//     Extraction failures degrade to an unconstrained search.
//   - A non-empty filter selects a bounded set of candidate profiles from
//     the relational store.
//   - The query embedding is matched against the vector index, restricted
//     to the candidates when there are any.
//   - Hits are resolved back to profiles in distance order. Hits whose
//     profile no longer exists are dropped.
//
// FindFloats answers float-level questions from the per-float index built
// by the rebuild job.
package search
