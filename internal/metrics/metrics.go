// Package metrics is the backend-agnostic metrics facade used by apiweaver.
//
// Core code records through the package-level helpers (IncCounter,
// ObserveHistogram, ObserveStep). Nothing is recorded until a backend is
// installed with SetBackend; the default backend drops everything.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions, e.g. {"step": "extract", "status": "ok"}.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names shared by producers and backends.
const (
	StepTotal           = "apiweaver_step_total"
	StepDurationSeconds = "apiweaver_step_duration_seconds"
	RowsTotal           = "apiweaver_rows_total"
	PropertiesTotal     = "apiweaver_properties_total"
	HTTPRequestsTotal   = "apiweaver_http_requests_total"
	HTTPErrorsTotal     = "apiweaver_http_errors_total"
	HTTPRequestDuration = "apiweaver_http_request_duration_seconds"
	HTTPDownloadBytes   = "apiweaver_http_download_bytes"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample for the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	return current().Flush()
}

// ObserveStep records the outcome and duration of one pipeline step.
func ObserveStep(step string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, time.Since(start).Seconds(), l)
}
