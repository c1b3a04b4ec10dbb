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


// Package ingestion loads source data files into the relational store and
// the vector index.
//
// A Pipeline run discovers files in a source directory, skips those already
// tracked as successfully processed, and handles each remaining file on its
// own:
//   - The file is marked in_progress with its content hash.
//   - Its rows are flattened, cleaned and grouped into batches as they are
//     read, so one batch of rows is held at a time.
//   - Each batch is upserted, summarised, embedded and indexed inside one
//     relational transaction.
//   - The file is marked success and moved to the archive directory.
//
// A failure marks that file failed and leaves it in place; the run carries
// on with the next file. Embedding requests within a batch are spread over
// a worker pool.
package ingestion
