package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveFile(t *testing.T) {
	r := NewRecorder()

	r.ObserveFile(2, 11, false)
	r.ObserveFile(5, 100, false)
	r.ObserveFile(0, 0, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.FilesTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilesTotal.WithLabelValues(StatusError)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.PagesTotal))
	assert.Equal(t, 111.0, testutil.ToFloat64(r.CharactersTotal))
}

func TestRecorder_ObserveRun(t *testing.T) {
	r := NewRecorder()
	start := time.Unix(1_700_000_000, 0)

	r.ObserveRun(start, start.Add(1500*time.Millisecond))

	assert.Equal(t, 1.5, testutil.ToFloat64(r.RunDuration))
	assert.Equal(t, 1_700_000_001.0, testutil.ToFloat64(r.LastRun))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveFile(3, 42, false)

	path := filepath.Join(t.TempDir(), "pdfextract.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pdfextract_files_total{status="success"} 1`)
	assert.Contains(t, string(data), `pdfextract_files_total{status="error"} 0`)
	assert.Contains(t, string(data), "pdfextract_pages_total 3")
}

func TestRecorder_WriteTextfileError(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
