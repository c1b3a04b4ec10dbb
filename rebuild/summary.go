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
	"fmt"
	"strings"

	"github.com/poiesic/floatchat/core"
)

// FloatSummary describes one float's activity in a sentence form suited to
// embedding.
func FloatSummary(s *core.FloatStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ARGO float WMO ID %s has %d profiles. ", s.FloatID, s.Profiles)
	fmt.Fprintf(&b, "It operated from %s to %s. ",
		s.First.UTC().Format(core.DateLayout), s.Last.UTC().Format(core.DateLayout))
	fmt.Fprintf(&b, "Its location ranges from latitude %.2f to %.2f and longitude %.2f to %.2f.",
		s.MinLat, s.MaxLat, s.MinLon, s.MaxLon)
	if len(s.Variables) > 0 {
		fmt.Fprintf(&b, " This dataset contains measurements for: %s.", strings.Join(s.Variables, ", "))
	}
	return b.String()
}
