package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/internal/metrics"
)

// Signal is the state machine for one intersection's light. Advance and
// Override serialize on the same lock, so the automatic path and the
// manual path can never interleave mid-mutation.
type Signal struct {
	mu      sync.Mutex
	point   domain.TrafficPoint
	timings domain.SignalTimings
	state   domain.SignalState
}

// NewSignal creates a signal starting green in automatic mode.
func NewSignal(point domain.TrafficPoint, timings domain.SignalTimings, vehiclesWaiting int, now time.Time) *Signal {
	return &Signal{
		point:   point,
		timings: timings,
		state: domain.SignalState{
			CurrentState:    domain.PhaseGreen,
			TimeRemaining:   timings.Green,
			AutoMode:        true,
			VehiclesWaiting: vehiclesWaiting,
			LastUpdated:     now,
		},
	}
}

// State returns a copy of the current signal state.
func (s *Signal) State() domain.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Advance moves the countdown by one second. When it reaches zero the
// phase cycles; entering red or green consults the recommendation for
// its duration, while yellow always keeps the fixed default. Manual mode
// freezes the machine. The returned flag reports a phase change.
func (s *Signal) Advance(now time.Time, recommend func() domain.TimingRecommendation) (domain.SignalState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AutoMode {
		return s.state, false
	}

	if s.state.TimeRemaining > 0 {
		s.state.TimeRemaining--
	}
	if s.state.TimeRemaining > 0 {
		return s.state, false
	}

	next := s.state.CurrentState.Next()
	duration := s.timings.ForPhase(next)
	if recommend != nil && next != domain.PhaseYellow {
		rec := recommend()
		switch next {
		case domain.PhaseRed:
			if rec.RedDuration > 0 {
				duration = rec.RedDuration
			}
		case domain.PhaseGreen:
			if rec.GreenDuration > 0 {
				duration = rec.GreenDuration
			}
		}
	}

	s.state.CurrentState = next
	s.state.TimeRemaining = duration
	s.state.LastUpdated = now
	metrics.SignalTransitionsTotal.WithLabelValues(string(next)).Inc()
	return s.state, true
}

// Override applies a manual control command and returns the resulting
// state. A rejected command leaves the state untouched.
func (s *Signal) Override(req domain.OverrideRequest, now time.Time) (domain.SignalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case domain.ActionToggleMode:
		s.state.AutoMode = !s.state.AutoMode
		s.state.LastUpdated = now
		return s.state, nil

	case domain.ActionSetState:
		if s.state.AutoMode {
			return s.state, domain.NewCommandError(s.point.ID, req.Action, "signal is in automatic mode")
		}
		if !req.State.Valid() {
			return s.state, domain.NewCommandError(s.point.ID, req.Action, fmt.Sprintf("invalid phase %q", req.State))
		}
		s.state.CurrentState = req.State
		s.state.TimeRemaining = s.timings.ForPhase(req.State)
		s.state.LastUpdated = now
		return s.state, nil

	default:
		return s.state, domain.NewCommandError(s.point.ID, req.Action, "unknown action")
	}
}

// SyncWaiting replaces the waiting-vehicles estimate, typically with the
// queue length from the latest snapshot.
func (s *Signal) SyncWaiting(vehicles int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vehicles < 0 {
		vehicles = 0
	}
	s.state.VehiclesWaiting = vehicles
	metrics.VehiclesWaitingGauge.WithLabelValues(s.point.ID).Set(float64(vehicles))
}
