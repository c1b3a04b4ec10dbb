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
	"github.com/poiesic/floatchat/core"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
// A monitor passed as a Retriever option is shared by concurrent requests
// and must be safe for concurrent use.
type SearchMonitor interface {
	Start(query string)
	AfterFilterExtraction(filter core.Filter, err error)
	AfterCandidateSearch(ids []core.ID)
	AfterVectorSearch(hits []core.Hit)
	AfterRecordRetrieval(profiles []*core.Profile)
	Finish(matches []Match)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterFilterExtraction(_ core.Filter, _ error) {}
func (n *noopMonitor) AfterCandidateSearch(_ []core.ID)             {}
func (n *noopMonitor) AfterVectorSearch(_ []core.Hit)               {}
func (n *noopMonitor) AfterRecordRetrieval(_ []*core.Profile)       {}
func (n *noopMonitor) Finish(_ []Match)                             {}

// multiMonitor fans callbacks out to several monitors.
type multiMonitor []SearchMonitor

// MultiMonitor returns a monitor that forwards every callback to each of
// monitors in order. Nil entries are ignored.
func MultiMonitor(monitors ...SearchMonitor) SearchMonitor {
	var m multiMonitor
	for _, mon := range monitors {
		if mon != nil {
			m = append(m, mon)
		}
	}
	if len(m) == 0 {
		return &noopMonitor{}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multiMonitor) Start(query string) {
	for _, mon := range m {
		mon.Start(query)
	}
}

func (m multiMonitor) AfterFilterExtraction(filter core.Filter, err error) {
	for _, mon := range m {
		mon.AfterFilterExtraction(filter, err)
	}
}

func (m multiMonitor) AfterCandidateSearch(ids []core.ID) {
	for _, mon := range m {
		mon.AfterCandidateSearch(ids)
	}
}

func (m multiMonitor) AfterVectorSearch(hits []core.Hit) {
	for _, mon := range m {
		mon.AfterVectorSearch(hits)
	}
}

func (m multiMonitor) AfterRecordRetrieval(profiles []*core.Profile) {
	for _, mon := range m {
		mon.AfterRecordRetrieval(profiles)
	}
}

func (m multiMonitor) Finish(matches []Match) {
	for _, mon := range m {
		mon.Finish(matches)
	}
}
