// Package metrics records extraction runs as Prometheus metrics that can be
// picked up by the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdfextract"

// Status label values for FilesTotal.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder holds the metrics of a single run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	FilesTotal      *prometheus.CounterVec
	PagesTotal      prometheus.Counter
	CharactersTotal prometheus.Counter
	RunDuration     prometheus.Gauge
	LastRun         prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "PDF files processed, by outcome.",
		}, []string{"status"}),
		PagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages reported by successfully opened PDF files.",
		}),
		CharactersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "characters_total",
			Help:      "Characters of sanitized text extracted.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last extraction run.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last extraction run finished.",
		}),
	}

	r.registry.MustRegister(r.FilesTotal, r.PagesTotal, r.CharactersTotal, r.RunDuration, r.LastRun)

	// Expose both label values even when a run has no failures.
	r.FilesTotal.WithLabelValues(StatusSuccess)
	r.FilesTotal.WithLabelValues(StatusError)

	return r
}

// ObserveFile records one processed file.
func (r *Recorder) ObserveFile(pages, chars int, failed bool) {
	if failed {
		r.FilesTotal.WithLabelValues(StatusError).Inc()
		return
	}
	r.FilesTotal.WithLabelValues(StatusSuccess).Inc()
	r.PagesTotal.Add(float64(pages))
	r.CharactersTotal.Add(float64(chars))
}

// ObserveRun records the duration and finish time of a run.
func (r *Recorder) ObserveRun(started, finished time.Time) {
	r.RunDuration.Set(finished.Sub(started).Seconds())
	r.LastRun.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %q: %w", path, err)
	}
	return nil
}
