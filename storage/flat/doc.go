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


// Package flat stores the per-float summary index produced by the rebuild job.
//
// An index is a dense list of vectors searched exhaustively by Euclidean
// distance. It is persisted as a generation directory holding index.bin and
// mapping.json, the latter translating vector positions to float identifiers.
// A CURRENT file in the root directory names the active generation and is
// replaced by rename, so readers see either the old or the new generation.
package flat
