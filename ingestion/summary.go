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


package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/floatchat/core"
)

// Variables with a dedicated sentence in summaries.
const (
	varSalinity    = "PSAL"
	varTemperature = "TEMP"
)

// pointSummary describes one observation, e.g.
// "Data point from 2025-01-01 float 123 at location (45.00, -120.00). ..."
func pointSummary(p *core.Profile) string {
	var b strings.Builder
	b.WriteString(header("Data point", p))

	m := p.Measurements
	if depth, ok := m[core.KeyDepth].Float(); ok {
		fmt.Fprintf(&b, " Depth was %.2f.", depth)
	}
	if v, ok := m[varSalinity].Float(); ok {
		fmt.Fprintf(&b, " Practical salinity was %.2f PSS-78.", v)
	}
	if v, ok := m[varTemperature].Float(); ok {
		fmt.Fprintf(&b, " Sea temperature was %.2f degrees Celsius.", v)
	}
	for _, name := range m.Variables() {
		if name == varSalinity || name == varTemperature {
			continue
		}
		fmt.Fprintf(&b, " %s was %s.", name, formatValue(m[name]))
	}
	return b.String()
}

// profileSummary describes a multi-level profile.
func profileSummary(p *core.Profile, levels int, variables []string) string {
	var b strings.Builder
	b.WriteString(header("Profile", p))

	minDepth, _ := p.Measurements[core.KeyDepthMin].Float()
	maxDepth, _ := p.Measurements[core.KeyDepthMax].Float()
	fmt.Fprintf(&b, " It has %d depth levels from %.2f to %.2f.", levels, minDepth, maxDepth)
	if len(variables) > 0 {
		fmt.Fprintf(&b, " It measured: %s.", strings.Join(variables, ", "))
	}
	return b.String()
}

func header(kind string, p *core.Profile) string {
	date := p.Timestamp.UTC().Format(core.DateLayout)
	if p.FloatID == "" {
		return fmt.Sprintf("%s from %s at location (%.2f, %.2f).", kind, date, p.Latitude, p.Longitude)
	}
	return fmt.Sprintf("%s from %s float %s at location (%.2f, %.2f).", kind, date, p.FloatID, p.Latitude, p.Longitude)
}

func formatValue(v core.Value) string {
	if f, ok := v.Float(); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return v.String()
}
