package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ⭐ SSOT: Prometheus 지표 정의는 여기서만
var (
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_fetch_attempts_total",
		Help: "Page fetch attempts by outcome",
	}, []string{"outcome"})

	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screener_fetch_retries_total",
		Help: "Page fetch retries after a retryable status or error",
	})

	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screener_fetch_failures_total",
		Help: "Page fetches that exhausted their retry budget",
	})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screener_fetch_duration_seconds",
		Help:    "Duration of a page fetch including retries",
		Buckets: prometheus.DefBuckets,
	})

	SeriesPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_series_pages_total",
		Help: "Price pages consumed by the series reader by result",
	}, []string{"result"})

	StageInstruments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_stage_instruments_total",
		Help: "Instruments evaluated per screening stage and outcome",
	}, []string{"stage", "outcome"})

	ScreenDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screener_run_duration_seconds",
		Help:    "Wall-clock duration of a full screening run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	LastMatched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "screener_last_matched",
		Help: "Matched instruments in the most recent run",
	})
)

// RecordFetchAttempt counts one HTTP attempt.
// outcome: ok, retryable_status, retryable_error, error
func RecordFetchAttempt(outcome string) {
	FetchAttempts.WithLabelValues(outcome).Inc()
}

// RecordStage counts one instrument leaving a stage
func RecordStage(stage string, passed bool) {
	outcome := "rejected"
	if passed {
		outcome = "passed"
	}
	StageInstruments.WithLabelValues(stage, outcome).Inc()
}

// RecordScreen records the end of a run
func RecordScreen(elapsed time.Duration, matched int) {
	ScreenDuration.Observe(elapsed.Seconds())
	LastMatched.Set(float64(matched))
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
