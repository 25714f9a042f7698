package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammatraffic/backend/internal/domain"
)

var testTimings = domain.SignalTimings{Green: 45, Yellow: 5, Red: 60}

func TestSignalInitialState(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 12, t0)

	state := sig.State()
	assert.Equal(t, domain.PhaseGreen, state.CurrentState)
	assert.Equal(t, 45, state.TimeRemaining)
	assert.True(t, state.AutoMode)
	assert.Equal(t, 12, state.VehiclesWaiting)
	assert.Equal(t, t0, state.LastUpdated)
}

// A plain countdown tick must not refresh LastUpdated; only the
// transition does.
func TestSignalAdvanceCountdown(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	timings := domain.SignalTimings{Green: 3, Yellow: 2, Red: 4}
	sig := NewSignal(testPoints()[0], timings, 0, t0)

	state, changed := sig.Advance(t0.Add(1*time.Second), nil)
	assert.False(t, changed)
	assert.Equal(t, 2, state.TimeRemaining)
	assert.Equal(t, t0, state.LastUpdated)

	state, changed = sig.Advance(t0.Add(2*time.Second), nil)
	assert.False(t, changed)
	assert.Equal(t, 1, state.TimeRemaining)

	t3 := t0.Add(3 * time.Second)
	state, changed = sig.Advance(t3, nil)
	assert.True(t, changed)
	assert.Equal(t, domain.PhaseYellow, state.CurrentState)
	assert.Equal(t, 2, state.TimeRemaining)
	assert.Equal(t, t3, state.LastUpdated)
}

// The last second of green rolls straight into yellow at its default
// duration.
func TestSignalGreenToYellowAtOneSecond(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)
	sig.state.TimeRemaining = 1

	state, changed := sig.Advance(t0.Add(time.Second), nil)
	assert.True(t, changed)
	assert.Equal(t, domain.PhaseYellow, state.CurrentState)
	assert.Equal(t, 5, state.TimeRemaining)
}

func TestSignalFullCycleOrder(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	timings := domain.SignalTimings{Green: 2, Yellow: 1, Red: 2}
	sig := NewSignal(testPoints()[0], timings, 0, t0)

	var phases []domain.SignalPhase
	now := t0
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		state, changed := sig.Advance(now, nil)
		assert.GreaterOrEqual(t, state.TimeRemaining, 0)
		assert.True(t, state.CurrentState.Valid())
		if changed {
			phases = append(phases, state.CurrentState)
		}
	}

	require.GreaterOrEqual(t, len(phases), 4)
	assert.Equal(t, []domain.SignalPhase{
		domain.PhaseYellow, domain.PhaseRed, domain.PhaseGreen, domain.PhaseYellow,
	}, phases[:4])
}

func TestSignalConsultsRecommendationForRedAndGreen(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	timings := domain.SignalTimings{Green: 1, Yellow: 1, Red: 1}
	sig := NewSignal(testPoints()[0], timings, 0, t0)

	calls := 0
	recommend := func() domain.TimingRecommendation {
		calls++
		return domain.TimingRecommendation{GreenDuration: 77, RedDuration: 33}
	}

	// green -> yellow keeps the fixed default and skips the model
	state, changed := sig.Advance(t0.Add(time.Second), recommend)
	require.True(t, changed)
	assert.Equal(t, domain.PhaseYellow, state.CurrentState)
	assert.Equal(t, 1, state.TimeRemaining)
	assert.Equal(t, 0, calls)

	// yellow -> red uses the recommended red duration
	state, changed = sig.Advance(t0.Add(2*time.Second), recommend)
	require.True(t, changed)
	assert.Equal(t, domain.PhaseRed, state.CurrentState)
	assert.Equal(t, 33, state.TimeRemaining)
	assert.Equal(t, 1, calls)

	// red -> green uses the recommended green duration
	sig.state.TimeRemaining = 1
	state, changed = sig.Advance(t0.Add(3*time.Second), recommend)
	require.True(t, changed)
	assert.Equal(t, domain.PhaseGreen, state.CurrentState)
	assert.Equal(t, 77, state.TimeRemaining)
	assert.Equal(t, 2, calls)
}

// Zero-valued recommendations fall back to the configured defaults.
func TestSignalIgnoresEmptyRecommendation(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)
	sig.state.CurrentState = domain.PhaseYellow
	sig.state.TimeRemaining = 1

	state, changed := sig.Advance(t0.Add(time.Second), func() domain.TimingRecommendation {
		return domain.TimingRecommendation{}
	})
	require.True(t, changed)
	assert.Equal(t, domain.PhaseRed, state.CurrentState)
	assert.Equal(t, 60, state.TimeRemaining)
}

func TestSignalManualModeFreezes(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	_, err := sig.Override(domain.OverrideRequest{PointID: "silk_board", Action: domain.ActionToggleMode}, t0)
	require.NoError(t, err)

	before := sig.State()
	for i := 0; i < 5; i++ {
		state, changed := sig.Advance(t0.Add(time.Duration(i+1)*time.Second), nil)
		assert.False(t, changed)
		assert.Equal(t, before, state)
	}
}

func TestSignalToggleMode(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t1.Add(time.Minute)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	state, err := sig.Override(domain.OverrideRequest{Action: domain.ActionToggleMode}, t1)
	require.NoError(t, err)
	assert.False(t, state.AutoMode)
	assert.Equal(t, t1, state.LastUpdated)

	state, err = sig.Override(domain.OverrideRequest{Action: domain.ActionToggleMode}, t2)
	require.NoError(t, err)
	assert.True(t, state.AutoMode)
	assert.Equal(t, t2, state.LastUpdated)
}

// set_state while automatic is a rejected command and must not touch
// the state.
func TestSignalSetStateRejectedInAutoMode(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)
	before := sig.State()

	state, err := sig.Override(domain.OverrideRequest{
		Action: domain.ActionSetState,
		State:  domain.PhaseRed,
	}, t0.Add(time.Second))

	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, domain.ActionSetState, cmdErr.Action)
	assert.Equal(t, before, state)
	assert.Equal(t, before, sig.State())
}

func TestSignalSetStateInManualMode(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	_, err := sig.Override(domain.OverrideRequest{Action: domain.ActionToggleMode}, t0)
	require.NoError(t, err)

	state, err := sig.Override(domain.OverrideRequest{
		Action: domain.ActionSetState,
		State:  domain.PhaseRed,
	}, t1)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRed, state.CurrentState)
	assert.Equal(t, 60, state.TimeRemaining, "forced phase gets the default duration")
	assert.Equal(t, t1, state.LastUpdated)
}

func TestSignalSetStateInvalidPhase(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	_, err := sig.Override(domain.OverrideRequest{Action: domain.ActionToggleMode}, t0)
	require.NoError(t, err)
	before := sig.State()

	state, err := sig.Override(domain.OverrideRequest{
		Action: domain.ActionSetState,
		State:  domain.SignalPhase("purple"),
	}, t0.Add(time.Second))

	var cmdErr *domain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, cmdErr.Reason, "invalid phase")
	assert.Equal(t, before, state)
}

func TestSignalUnknownAction(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	_, err := sig.Override(domain.OverrideRequest{Action: domain.OverrideAction("dance")}, t0)

	var cmdErr *domain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "unknown action", cmdErr.Reason)
}

func TestSignalSyncWaiting(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	sig := NewSignal(testPoints()[0], testTimings, 0, t0)

	sig.SyncWaiting(17)
	assert.Equal(t, 17, sig.State().VehiclesWaiting)

	sig.SyncWaiting(-4)
	assert.Equal(t, 0, sig.State().VehiclesWaiting, "negative counts floor at zero")
}
