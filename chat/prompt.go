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


package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/floatchat/core"
)

const noDataPrompt = `You are an expert oceanographer AI. You were unable to find any relevant data.
Please inform the user that no specific data could be found to answer their question.
User Question: %s
Answer:`

const dataPrompt = `Context: You are an expert oceanographer AI. Based ONLY on the following retrieved data points, please answer the user's question. Do not use any prior knowledge. If the data is insufficient, say so.

Retrieved Data:
%s

User Question: %s

Answer:`

// BuildPrompt returns the answer prompt for question over profiles.
// An empty profile list yields the no-data prompt.
func BuildPrompt(question string, profiles []*core.Profile) string {
	if len(profiles) == 0 {
		return fmt.Sprintf(noDataPrompt, question)
	}
	lines := make([]string, len(profiles))
	for i, p := range profiles {
		lines[i] = contextLine(p)
	}
	return fmt.Sprintf(dataPrompt, strings.Join(lines, "\n"), question)
}

// contextLine renders one profile as a single line of retrieved data.
func contextLine(p *core.Profile) string {
	return fmt.Sprintf("ID: %d, Time: %s, Lat: %.2f, Lon: %.2f, Measurements: %s",
		p.ID,
		p.Timestamp.UTC().Format(core.DateLayout),
		p.Latitude,
		p.Longitude,
		measurementsJSON(p.Measurements),
	)
}

func measurementsJSON(m core.Measurements) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprint(map[string]core.Value(m))
	}
	return string(data)
}
