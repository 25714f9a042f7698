package domain

import "time"

// Priority ranks a traffic point's importance for system-wide aggregates.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the known tiers.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Weight returns the efficiency-aggregation weight for the tier.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// TrafficPoint describes a monitored intersection. Points are loaded once
// at startup and never mutated afterwards.
type TrafficPoint struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Latitude        float64  `json:"lat"`
	Longitude       float64  `json:"lng"`
	Priority        Priority `json:"priority"`
	VehiclesPerHour int      `json:"avg_vehicles_per_hour"`
}

// TrafficSnapshot holds the generated metrics for one point at one refresh.
// Snapshots are immutable once produced; the next refresh replaces them.
type TrafficSnapshot struct {
	VehicleCount    int       `json:"vehicle_count"`
	CongestionLevel float64   `json:"congestion_level"`
	AverageSpeed    float64   `json:"average_speed"`
	QueueLength     int       `json:"queue_length"`
	WaitTime        float64   `json:"wait_time"`
	WeatherFactor   float64   `json:"weather_factor"`
	EventFactor     float64   `json:"event_factor"`
	Timestamp       time.Time `json:"timestamp"`
}

// TimingRecommendation is the predictor's output for one point. A
// recommendation is consumed by at most one signal transition.
type TimingRecommendation struct {
	GreenDuration       int     `json:"green_duration"`
	RedDuration         int     `json:"red_duration"`
	PredictedCongestion float64 `json:"predicted_congestion"`
	Confidence          float64 `json:"confidence"`
	Fallback            bool    `json:"is_fallback"`
}

// SignalPhase is the displayed state of a traffic signal.
type SignalPhase string

const (
	PhaseGreen  SignalPhase = "green"
	PhaseYellow SignalPhase = "yellow"
	PhaseRed    SignalPhase = "red"
)

// Valid reports whether the phase is one of green, yellow or red.
func (p SignalPhase) Valid() bool {
	return p == PhaseGreen || p == PhaseYellow || p == PhaseRed
}

// Next returns the phase that follows in the fixed green, yellow, red cycle.
func (p SignalPhase) Next() SignalPhase {
	switch p {
	case PhaseGreen:
		return PhaseYellow
	case PhaseYellow:
		return PhaseRed
	default:
		return PhaseGreen
	}
}

// SignalTimings holds the default phase durations in seconds.
type SignalTimings struct {
	Green  int `json:"green"`
	Yellow int `json:"yellow"`
	Red    int `json:"red"`
}

// ForPhase returns the default duration configured for a phase.
func (t SignalTimings) ForPhase(p SignalPhase) int {
	switch p {
	case PhaseGreen:
		return t.Green
	case PhaseYellow:
		return t.Yellow
	case PhaseRed:
		return t.Red
	default:
		return 0
	}
}

// SignalState is the live state of one intersection's signal.
type SignalState struct {
	CurrentState    SignalPhase `json:"current_state"`
	TimeRemaining   int         `json:"time_remaining"`
	AutoMode        bool        `json:"auto_mode"`
	VehiclesWaiting int         `json:"vehicles_waiting"`
	LastUpdated     time.Time   `json:"last_updated"`
}

// SystemStats aggregates system-wide metrics. Recomputed on every refresh;
// the vehicle counter is cumulative and never resets.
type SystemStats struct {
	TotalVehiclesProcessed int64   `json:"total_vehicles_processed"`
	AverageWaitTime        float64 `json:"average_wait_time"`
	CommuteTimeReduction   float64 `json:"commute_time_reduction"`
	SystemEfficiency       float64 `json:"system_efficiency"`
}

// Update is the triple published to subscribers after a refresh or after a
// tick that changed at least one phase.
type Update struct {
	TrafficData  map[string]TrafficSnapshot `json:"traffic_data"`
	SignalStates map[string]SignalState     `json:"signal_states"`
	SystemStats  SystemStats                `json:"system_stats"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// OverrideAction names a manual signal-control command.
type OverrideAction string

const (
	// ActionToggleMode flips a signal between automatic and manual control.
	ActionToggleMode OverrideAction = "toggle_mode"
	// ActionSetState forces a phase; accepted only while in manual control.
	ActionSetState OverrideAction = "set_state"
)

// OverrideRequest is a manual control command for one signal.
type OverrideRequest struct {
	PointID string         `json:"point_id"`
	Action  OverrideAction `json:"action"`
	State   SignalPhase    `json:"state,omitempty"`
}

// OverrideResponse reports the signal state after a successful override.
type OverrideResponse struct {
	Success     bool        `json:"success"`
	SignalState SignalState `json:"signal_state"`
}
