// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "fern"

// Recorder owns a registry so a batch run can push exactly what it recorded.
type Recorder struct {
	registry *prometheus.Registry

	StageRecords   *prometheus.CounterVec
	StageBreakdown *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	LastRunSuccess prometheus.Gauge
	LastRunTime    prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		StageRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "records_total",
				Help:      "Records seen by each stage, by outcome",
			},
			[]string{"stage", "outcome"},
		),
		StageBreakdown: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "produced_by_kind_total",
				Help:      "Records produced by each stage, by kind",
			},
			[]string{"stage", "kind"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Duration of each stage in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "last_success",
				Help:      "1 when the last run finished without error",
			},
		),
		LastRunTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "last_finished_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

func (r *Recorder) ObserveStage(stats models.StageStats, elapsed time.Duration) {
	r.StageRecords.WithLabelValues(stats.Stage, "processed").Add(float64(stats.Processed))
	r.StageRecords.WithLabelValues(stats.Stage, "produced").Add(float64(stats.Produced))
	r.StageRecords.WithLabelValues(stats.Stage, "skipped").Add(float64(stats.Skipped))
	for kind, n := range stats.Breakdown {
		r.StageBreakdown.WithLabelValues(stats.Stage, kind).Add(float64(n))
	}
	r.StageDuration.WithLabelValues(stats.Stage).Observe(elapsed.Seconds())
}

// ObserveRun records the outcome of a whole run.
func (r *Recorder) ObserveRun(err error, finished time.Time) {
	if err != nil {
		r.LastRunSuccess.Set(0)
	} else {
		r.LastRunSuccess.Set(1)
	}
	r.LastRunTime.Set(float64(finished.Unix()))
}

// Push sends the registry to a Prometheus pushgateway under job.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(r.registry).PushContext(ctx)
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
