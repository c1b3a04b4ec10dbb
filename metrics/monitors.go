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


package metrics

import (
	"time"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/ingestion"
	"github.com/poiesic/floatchat/search"
)

// IngestionMonitor returns an ingestion.Monitor feeding m.
func (m *Metrics) IngestionMonitor() ingestion.Monitor {
	return ingestMonitor{m}
}

type ingestMonitor struct{ m *Metrics }

func (im ingestMonitor) FileFinished(r *ingestion.FileResult, elapsed time.Duration) {
	im.m.ingestFiles.WithLabelValues(string(r.Status), outcome(r)).Inc()
	im.m.ingestFileTime.Observe(elapsed.Seconds())
}

func (im ingestMonitor) BatchCommitted(rows, inserted int, elapsed time.Duration) {
	im.m.ingestRows.Add(float64(rows))
	im.m.ingestInserted.Add(float64(inserted))
	im.m.ingestBatchTime.Observe(elapsed.Seconds())
}

func outcome(r *ingestion.FileResult) string {
	switch {
	case r.Status == core.FileStatusFailed:
		return "failed"
	case r.Duplicate:
		return "duplicate"
	case r.Vacuous:
		return "vacuous"
	default:
		return "ingested"
	}
}

// SearchMonitor returns a search.SearchMonitor feeding m. It keeps no
// per-request state, so one instance may observe concurrent retrievals.
func (m *Metrics) SearchMonitor() search.SearchMonitor {
	return searchMonitor{m}
}

type searchMonitor struct{ m *Metrics }

func (sm searchMonitor) Start(string) {}

func (sm searchMonitor) AfterFilterExtraction(filter core.Filter, err error) {
	if err != nil {
		sm.m.searchFilterFailures.Inc()
	}
	filtered := "false"
	if !filter.IsEmpty() {
		filtered = "true"
	}
	sm.m.searchRequests.WithLabelValues(filtered).Inc()
}

func (sm searchMonitor) AfterCandidateSearch(ids []core.ID) {
	sm.m.searchCandidates.Observe(float64(len(ids)))
}

func (sm searchMonitor) AfterVectorSearch([]core.Hit) {}

func (sm searchMonitor) AfterRecordRetrieval([]*core.Profile) {}

func (sm searchMonitor) Finish(matches []search.Match) {
	sm.m.searchMatches.Observe(float64(len(matches)))
}

var (
	_ ingestion.Monitor    = ingestMonitor{}
	_ search.SearchMonitor = searchMonitor{}
)
