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


package openai

import (
	"fmt"
	"time"
)

const filterPromptTemplate = `You are a data extraction tool. Analyze the following user query and extract any specified filters for latitude, longitude, dates, or float WMO ID.
- The current date is %s.
- The user may use relative terms like "last year", "last 6 months", "in January", etc. Calculate the absolute dates.
- The equator is at latitude 0. 'Near the equator' can be considered between -5 and 5 degrees latitude.
- Return ONLY a valid JSON object with the keys "min_lat", "max_lat", "min_lon", "max_lon", "start_date", "end_date", "float_wmo_id".
- Dates must be in YYYY-MM-DD format.
- If no filters are found, return an empty JSON object {}.

User Query: "%s"

JSON Output:`

// buildFilterPrompt renders the extraction prompt for query as of now.
func buildFilterPrompt(query string, now time.Time) string {
	return fmt.Sprintf(filterPromptTemplate, now.Format("2006-01-02"), sanitizeQuery(query))
}
