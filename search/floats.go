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


package search

import (
	"context"
	"fmt"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/storage/flat"
)

// FloatIndex is a float-level index such as one loaded by flat.OpenCurrent.
type FloatIndex interface {
	Search(vector []float32, k int) ([]flat.FloatHit, error)
}

// FindFloats embeds query and returns up to k floats whose summaries are
// nearest to it.
func FindFloats(ctx context.Context, embedder ai.Embedder, index FloatIndex, query string, k int) ([]flat.FloatHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, k)
	}
	vector, err := embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return index.Search(vector, k)
}
