package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exoplanet_classifier",
			Name:      "predictions_total",
			Help:      "Classifications handled, partitioned by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	batchRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exoplanet_classifier",
			Name:      "batch_rows_total",
			Help:      "Batch rows processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	warmUpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exoplanet_classifier",
			Name:      "backend_warmups_total",
			Help:      "Backend warm-up probes, partitioned by result.",
		},
		[]string{"result"},
	)

	backendRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exoplanet_classifier",
			Name:      "backend_request_seconds",
			Help:      "Latency of requests sent to the classifier backend.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"path", "outcome"},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		batchRowsTotal,
		warmUpsTotal,
		backendRequestSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction counts a classification for the given mode.
func ObservePrediction(mode string, err error) {
	predictionsTotal.WithLabelValues(mode, outcomeFor(err)).Inc()
}

// ObserveBatchRows counts successful and failed batch rows.
func ObserveBatchRows(successful, failed int) {
	batchRowsTotal.WithLabelValues(OutcomeSuccess).Add(float64(successful))
	batchRowsTotal.WithLabelValues(OutcomeError).Add(float64(failed))
}

// ObserveWarmUp records the result of a warm-up probe.
func ObserveWarmUp(ready bool) {
	label := "offline"
	if ready {
		label = "ready"
	}
	warmUpsTotal.WithLabelValues(label).Inc()
}

// ObserveBackendRequest records a backend round trip.
func ObserveBackendRequest(path string, duration time.Duration, err error) {
	if duration < 0 {
		duration = 0
	}
	backendRequestSeconds.WithLabelValues(path, outcomeFor(err)).Observe(duration.Seconds())
}

func outcomeFor(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
