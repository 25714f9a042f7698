package domain

import "time"

// Observation is one rolling-history entry kept by the analytics monitor.
type Observation struct {
	Timestamp       time.Time `json:"timestamp"`
	VehicleCount    int       `json:"vehicle_count"`
	CongestionLevel float64   `json:"congestion_level"`
	AverageSpeed    float64   `json:"average_speed"`
}

// Incident is a detected anomaly at one traffic point.
type Incident struct {
	Type        string    `json:"type"` // "sudden_congestion", "traffic_jam"
	Severity    string    `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// MetricSummary holds min, max and average for one observed metric.
type MetricSummary struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// PeakHour names an hour of day and its average congestion.
type PeakHour struct {
	Hour          int     `json:"hour"`
	AvgCongestion float64 `json:"avg_congestion"`
}

// FlowAnalysis summarizes the retained history window for one point.
type FlowAnalysis struct {
	PeriodHours     int           `json:"period_hours"`
	DataPoints      int           `json:"data_points"`
	VehicleCount    MetricSummary `json:"vehicle_count"`
	CongestionLevel MetricSummary `json:"congestion_level"`
	AverageSpeed    MetricSummary `json:"average_speed"`
	PeakHours       []PeakHour    `json:"peak_hours"`
}

// PointAnalytics is the per-point section of an analytics report.
type PointAnalytics struct {
	CurrentStatus    *Observation `json:"current_status"`
	FlowAnalysis     FlowAnalysis `json:"flow_analysis"`
	Incidents        []Incident   `json:"incidents"`
	MonitoringActive bool         `json:"monitoring_active"`
}

// SystemOverview is the city-wide section of an analytics report.
type SystemOverview struct {
	TotalMonitoringPoints   int     `json:"total_monitoring_points"`
	ActiveIncidents         int     `json:"active_incidents"`
	AverageSystemCongestion float64 `json:"average_system_congestion"`
}

// AnalyticsReport is the full report returned by the analytics endpoint.
type AnalyticsReport struct {
	Timestamp      time.Time                 `json:"timestamp"`
	TrafficPoints  map[string]PointAnalytics `json:"traffic_points"`
	SystemOverview SystemOverview            `json:"system_overview"`
}

// ModelPerformance reports a timing model's evaluation results.
type ModelPerformance struct {
	Accuracy float64 `json:"accuracy"`
	MSE      float64 `json:"mse"`
	Trained  bool    `json:"trained"`
}

// RouteRequest names the endpoints of a commute-time optimization query.
type RouteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RouteEstimate is the outcome of a commute-time optimization query.
type RouteEstimate struct {
	Route                 string  `json:"route"`
	BaselineTimeMinutes   float64 `json:"baseline_time_minutes"`
	CurrentTimeMinutes    float64 `json:"current_time_minutes"`
	TimeSavedMinutes      float64 `json:"time_saved_minutes"`
	PercentageImprovement float64 `json:"percentage_improvement"`
	AvgCongestion         float64 `json:"avg_congestion"`
}

// ActivityHealth tracks one background activity of the control loop.
type ActivityHealth struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
	Degraded            bool      `json:"degraded"`
}

// HealthStatus combines the health of both control-loop activities.
type HealthStatus struct {
	Refresh       ActivityHealth `json:"metrics_refresh"`
	SignalAdvance ActivityHealth `json:"signal_advance"`
}

// Degraded reports whether either activity is failing repeatedly.
func (h HealthStatus) Degraded() bool {
	return h.Refresh.Degraded || h.SignalAdvance.Degraded
}
