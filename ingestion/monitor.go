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
	"time"

	"github.com/poiesic/floatchat/core"
)

// Monitor observes pipeline progress. Implementations must be safe for
// concurrent use.
type Monitor interface {
	// FileFinished is called once per file with its final status.
	FileFinished(result *FileResult, elapsed time.Duration)

	// BatchCommitted is called after each committed batch.
	BatchCommitted(rows, inserted int, elapsed time.Duration)
}

type noopMonitor struct{}

func (noopMonitor) FileFinished(*FileResult, time.Duration) {}
func (noopMonitor) BatchCommitted(int, int, time.Duration)  {}

// FileResult is the outcome of one file.
type FileResult struct {
	File      string
	Hash      string
	Status    core.FileStatus
	Rows      int // cleaned rows
	Inserted  int // newly stored profiles
	Batches   int
	Duplicate bool // content already ingested under another name
	Vacuous   bool // no valid rows after cleaning
	Archived  bool
	Err       error
}

// Report summarises a pipeline run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Files     []*FileResult
	Succeeded int
	Failed    int
	Inserted  int
}

func (r *Report) add(fr *FileResult) {
	r.Files = append(r.Files, fr)
	switch fr.Status {
	case core.FileStatusSuccess:
		r.Succeeded++
	case core.FileStatusFailed:
		r.Failed++
	}
	r.Inserted += fr.Inserted
}
