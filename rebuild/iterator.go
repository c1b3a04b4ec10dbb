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


package rebuild

import (
	"context"
	"iter"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
)

// DefaultPageSize is the number of floats aggregated per query.
const DefaultPageSize = 500

// FloatIterator pages through per-float aggregates in float id order.
type FloatIterator struct {
	repo     storage.ProfileRepository
	pageSize int
}

// NewFloatIterator creates an iterator over repo. A non-positive pageSize
// selects DefaultPageSize.
func NewFloatIterator(repo storage.ProfileRepository, pageSize int) *FloatIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FloatIterator{repo: repo, pageSize: pageSize}
}

// Pages yields successive pages of floats. Each page resumes after the
// last float id of the previous one, so floats ingested concurrently
// never shift or repeat earlier pages. Iteration ends after the first
// error, which is yielded with a nil page.
func (it *FloatIterator) Pages(ctx context.Context) iter.Seq2[[]*core.FloatStats, error] {
	return func(yield func([]*core.FloatStats, error) bool) {
		after := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			page, err := it.repo.FloatStats(ctx, after, it.pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
			if len(page) < it.pageSize {
				return
			}
			after = page[len(page)-1].FloatID
		}
	}
}

// All collects every float.
func (it *FloatIterator) All(ctx context.Context) ([]*core.FloatStats, error) {
	var all []*core.FloatStats
	for page, err := range it.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}
