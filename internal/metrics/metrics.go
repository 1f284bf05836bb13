package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nutrition"

// Analysis outcomes.
const (
	OutcomeFood        = "food"
	OutcomeNoFood      = "no_food"
	OutcomeRejected    = "rejected"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Persistence outcomes.
const (
	PersistStored  = "stored"
	PersistFailed  = "failed"
	PersistDropped = "dropped"
)

// Metrics exports pipeline counters. A nil *Metrics records nothing.
type Metrics struct {
	uploads        *prometheus.CounterVec
	uploadedBytes  prometheus.Counter
	analyses       *prometheus.CounterVec
	visionDuration *prometheus.HistogramVec
	persisted      *prometheus.CounterVec
}

// New registers the pipeline metrics with reg (the default registerer when nil).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Photo uploads by result.",
		}, []string{"result"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes successfully written to object storage.",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis requests by outcome.",
		}, []string{"outcome"}),
		visionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Latency of vision model calls.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"result"}),
		persisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_records_total",
			Help:      "Background persistence of analysis records by outcome.",
		}, []string{"outcome"}),
	}

	var err error
	if m.uploads, err = register(reg, m.uploads); err != nil {
		return nil, err
	}
	if m.uploadedBytes, err = register(reg, m.uploadedBytes); err != nil {
		return nil, err
	}
	if m.analyses, err = register(reg, m.analyses); err != nil {
		return nil, err
	}
	if m.visionDuration, err = register(reg, m.visionDuration); err != nil {
		return nil, err
	}
	if m.persisted, err = register(reg, m.persisted); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// RecordUpload counts an upload attempt and, on success, its size.
func (m *Metrics) RecordUpload(size int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.uploads.WithLabelValues("error").Inc()
		return
	}
	m.uploads.WithLabelValues("ok").Inc()
	if size > 0 {
		m.uploadedBytes.Add(float64(size))
	}
}

func (m *Metrics) RecordAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveVisionCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.visionDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) RecordPersist(outcome string) {
	if m == nil {
		return
	}
	m.persisted.WithLabelValues(outcome).Inc()
}
