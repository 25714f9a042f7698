package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_refresh_total",
		Help: "Total number of completed metric refresh cycles",
	})
	RefreshFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_refresh_failures_total",
		Help: "Total number of failed metric refresh cycles",
	})
	RefreshDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "traffic_refresh_duration_ms",
		Help:    "Refresh cycle duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	SignalTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traffic_signal_transitions_total",
		Help: "Total signal phase transitions by entered phase",
	}, []string{"phase"})
	OverridesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traffic_overrides_total",
		Help: "Total manual override commands by action and outcome",
	}, []string{"action", "outcome"})
	PredictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_predictions_total",
		Help: "Total timing recommendations served",
	})
	PredictionFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_prediction_fallbacks_total",
		Help: "Total timing recommendations served from the fallback",
	})
	ModelTrainingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_model_trainings_total",
		Help: "Total lazy model training runs",
	})
	ModelTrainingDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "traffic_model_training_duration_ms",
		Help:    "Model training duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	SubscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "traffic_subscribers",
		Help: "Current number of update subscribers",
	})
	UpdatesPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_updates_published_total",
		Help: "Total updates fanned out to subscribers",
	})
	UpdatesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "traffic_updates_dropped_total",
		Help: "Total updates dropped on full subscriber buffers",
	})
	CongestionLevel = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "traffic_congestion_level",
		Help: "Latest congestion level per traffic point",
	}, []string{"point"})
	VehiclesWaitingGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "traffic_vehicles_waiting",
		Help: "Vehicles currently waiting per traffic point",
	}, []string{"point"})
)

func init() {
	prometheus.MustRegister(RefreshTotal)
	prometheus.MustRegister(RefreshFailuresTotal)
	prometheus.MustRegister(RefreshDurationMs)
	prometheus.MustRegister(SignalTransitionsTotal)
	prometheus.MustRegister(OverridesTotal)
	prometheus.MustRegister(PredictionsTotal)
	prometheus.MustRegister(PredictionFallbacksTotal)
	prometheus.MustRegister(ModelTrainingsTotal)
	prometheus.MustRegister(ModelTrainingDurationMs)
	prometheus.MustRegister(SubscribersGauge)
	prometheus.MustRegister(UpdatesPublishedTotal)
	prometheus.MustRegister(UpdatesDroppedTotal)
	prometheus.MustRegister(CongestionLevel)
	prometheus.MustRegister(VehiclesWaitingGauge)
}

// Handler returns the scrape endpoint for all registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
