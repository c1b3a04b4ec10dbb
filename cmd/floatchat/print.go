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


package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/ingestion"
	"github.com/poiesic/floatchat/search"
)

func printReport(w io.Writer, r *ingestion.Report) {
	elapsed := r.Finished.Sub(r.Started).Round(time.Millisecond)
	if r.Finished.IsZero() {
		elapsed = 0
	}
	fmt.Fprintf(w, "Run %s: %d file(s), %d succeeded, %d failed, %d profile(s) inserted in %s\n",
		r.RunID, len(r.Files), r.Succeeded, r.Failed, r.Inserted, elapsed)
	for _, f := range r.Files {
		var notes []string
		if f.Duplicate {
			notes = append(notes, "duplicate content")
		}
		if f.Vacuous {
			notes = append(notes, "no valid rows")
		}
		if f.Err != nil {
			notes = append(notes, f.Err.Error())
		}
		line := fmt.Sprintf("  %-7s %s rows=%d inserted=%d", f.Status, filepath.Base(f.File), f.Rows, f.Inserted)
		if len(notes) > 0 {
			line += " (" + strings.Join(notes, "; ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func profileLine(p *core.Profile) string {
	float := p.FloatID
	if float == "" {
		float = "-"
	}
	return fmt.Sprintf("#%d float=%s %s (%.2f, %.2f)",
		p.ID, float, p.Timestamp.UTC().Format(time.RFC3339), p.Latitude, p.Longitude)
}

func filterString(f core.Filter) string {
	data, err := json.Marshal(f.JSON())
	if err != nil {
		return fmt.Sprintf("%+v", f.JSON())
	}
	return string(data)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// printMonitor writes each retrieval stage as it happens.
type printMonitor struct {
	w io.Writer
}

var _ search.SearchMonitor = (*printMonitor)(nil)

func (m *printMonitor) Start(query string) {
	fmt.Fprintf(m.w, "query: %q\n", query)
}

func (m *printMonitor) AfterFilterExtraction(filter core.Filter, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(m.w, "filter: none (%v)\n", err)
	case filter.IsEmpty():
		fmt.Fprintln(m.w, "filter: none")
	default:
		fmt.Fprintf(m.w, "filter: %s\n", filterString(filter))
	}
}

func (m *printMonitor) AfterCandidateSearch(ids []core.ID) {
	fmt.Fprintf(m.w, "candidates: %d\n", len(ids))
}

func (m *printMonitor) AfterVectorSearch(hits []core.Hit) {
	fmt.Fprintf(m.w, "vector hits: %d\n", len(hits))
}

func (m *printMonitor) AfterRecordRetrieval(profiles []*core.Profile) {
	fmt.Fprintf(m.w, "profiles loaded: %d\n", len(profiles))
}

func (m *printMonitor) Finish(matches []search.Match) {
	fmt.Fprintf(m.w, "matches: %d\n", len(matches))
}
