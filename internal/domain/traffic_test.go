package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalPhaseCycle(t *testing.T) {
	assert.Equal(t, PhaseYellow, PhaseGreen.Next())
	assert.Equal(t, PhaseRed, PhaseYellow.Next())
	assert.Equal(t, PhaseGreen, PhaseRed.Next())
	assert.Equal(t, PhaseGreen, SignalPhase("bogus").Next())
}

func TestSignalPhaseValid(t *testing.T) {
	assert.True(t, PhaseGreen.Valid())
	assert.True(t, PhaseYellow.Valid())
	assert.True(t, PhaseRed.Valid())
	assert.False(t, SignalPhase("purple").Valid())
	assert.False(t, SignalPhase("").Valid())
}

func TestSignalTimingsForPhase(t *testing.T) {
	timings := SignalTimings{Green: 45, Yellow: 5, Red: 60}
	assert.Equal(t, 45, timings.ForPhase(PhaseGreen))
	assert.Equal(t, 5, timings.ForPhase(PhaseYellow))
	assert.Equal(t, 60, timings.ForPhase(PhaseRed))
	assert.Equal(t, 0, timings.ForPhase(SignalPhase("bogus")))
}

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 3.0, PriorityHigh.Weight())
	assert.Equal(t, 2.0, PriorityMedium.Weight())
	assert.Equal(t, 1.0, PriorityLow.Weight())
	assert.Equal(t, 0.0, Priority("urgent").Weight())
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("urgent").Valid())
}

func TestPointErrorMessage(t *testing.T) {
	err := NewPointError("nowhere")
	assert.Equal(t, `unknown traffic point "nowhere"`, err.Error())
	assert.Equal(t, "nowhere", err.PointID)
}

func TestCommandErrorMessage(t *testing.T) {
	err := NewCommandError("silk_board", ActionSetState, "signal is in automatic mode")
	assert.Equal(t, `signal command "set_state" rejected for silk_board: signal is in automatic mode`, err.Error())
	assert.Equal(t, ActionSetState, err.Action)
}

func TestHealthStatusDegraded(t *testing.T) {
	assert.False(t, HealthStatus{}.Degraded())
	assert.True(t, HealthStatus{Refresh: ActivityHealth{Degraded: true}}.Degraded())
	assert.True(t, HealthStatus{SignalAdvance: ActivityHealth{Degraded: true}}.Degraded())
}
