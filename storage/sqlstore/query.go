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


package sqlstore

import (
	"strings"

	"github.com/poiesic/floatchat/core"
)

// whereFilter renders filter as a WHERE clause body over float_profiles
// aliased as p. An empty filter yields "1 = 1".
func (b *Backend) whereFilter(f core.Filter, args []any) (string, []any) {
	where := []string{"1 = 1"}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" "+b.placeholder(len(args)))
	}

	if f.FloatID != nil {
		add("p.float_wmo_id =", *f.FloatID)
	}
	if f.Start != nil {
		add("p.timestamp >=", b.timeArg(*f.Start))
	}
	if f.End != nil {
		add("p.timestamp <=", b.timeArg(*f.End))
	}
	if f.MinLat != nil {
		add("p.latitude >=", *f.MinLat)
	}
	if f.MaxLat != nil {
		add("p.latitude <=", *f.MaxLat)
	}
	if f.MinLon != nil {
		add("p.longitude >=", *f.MinLon)
	}
	if f.MaxLon != nil {
		add("p.longitude <=", *f.MaxLon)
	}
	return strings.Join(where, " AND "), args
}
