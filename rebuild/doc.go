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


// Package rebuild regenerates the float-level vector index.
//
// A Rebuilder reads per-float aggregates from the relational store in
// keyset-ordered pages, writes one natural-language summary per float,
// embeds the summaries in batches with retry and exponential backoff, and
// saves a new flat index generation together with its position to float
// id mapping. The active generation is switched atomically, so readers
// never observe a half-written index.
package rebuild
