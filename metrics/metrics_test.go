package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/ingestion"
	"github.com/poiesic/floatchat/search"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestionMonitor(t *testing.T) {
	m := New(DefaultConfig())
	mon := m.IngestionMonitor()

	mon.BatchCommitted(7, 4, 20*time.Millisecond)
	mon.BatchCommitted(3, 0, 10*time.Millisecond)
	mon.FileFinished(&ingestion.FileResult{File: "a.nc", Status: core.FileStatusSuccess, Inserted: 4}, time.Second)
	mon.FileFinished(&ingestion.FileResult{File: "b.nc", Status: core.FileStatusSuccess, Duplicate: true}, time.Millisecond)
	mon.FileFinished(&ingestion.FileResult{File: "c.nc", Status: core.FileStatusSuccess, Vacuous: true}, time.Millisecond)
	mon.FileFinished(&ingestion.FileResult{File: "d.nc", Status: core.FileStatusFailed, Err: errors.New("bad")}, time.Millisecond)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.ingestRows))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ingestInserted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestFiles.WithLabelValues("success", "ingested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestFiles.WithLabelValues("success", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestFiles.WithLabelValues("success", "vacuous")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestFiles.WithLabelValues("failed", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ingestFileTime))
}

func TestSearchMonitor(t *testing.T) {
	m := New(DefaultConfig())
	mon := m.SearchMonitor()

	equator := core.Filter{MinLat: core.Ref(-5.0), MaxLat: core.Ref(5.0)}
	mon.Start("near the equator")
	mon.AfterFilterExtraction(equator, nil)
	mon.AfterCandidateSearch([]core.ID{1, 2, 3})
	mon.Finish([]search.Match{{Profile: &core.Profile{ID: 1}}})

	mon.Start("anything")
	mon.AfterFilterExtraction(core.Filter{}, &core.ExtractionError{Err: errors.New("bad json")})
	mon.Finish(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchRequests.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchRequests.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchFilterFailures))
}

func TestRecordAnswerAndRebuild(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordAnswer("llama", 2*time.Second, nil)
	m.RecordAnswer("llama", time.Second, errors.New("rate limited"))
	finished := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m.RecordRebuild(12, finished)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues("llama", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues("llama", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.rebuildFloats))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.rebuildLastSuccess))
}

func TestHandler(t *testing.T) {
	m := New(DefaultConfig())
	m.IngestionMonitor().BatchCommitted(5, 5, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "floatchat_ingest_rows_total 5")
}

func TestWriteTextfile(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordRebuild(3, time.Now())

	path := filepath.Join(t.TempDir(), "floatchat.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "floatchat_rebuild_floats 3"))
}
