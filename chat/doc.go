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


// Package chat answers natural-language questions about ocean data.
//
// A Service retrieves the profiles most relevant to a question through the
// hybrid retriever, places them into a prompt that confines the model to
// the retrieved data, and asks the answer model for a reply. When nothing
// is retrieved the model is instead told to report that no data was found.
//
// Retrieval and generation failures are returned wrapped in
// ErrRequestFailed. A generation failure also unwraps to the
// *core.RemoteServiceError reported by the generator.
package chat
