package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nammatraffic/backend/internal/domain"
)

func recordOne(m *Monitor, id string, ts time.Time, congestion, speed float64, vehicles int) {
	m.Record(map[string]domain.TrafficSnapshot{
		id: {
			VehicleCount:    vehicles,
			CongestionLevel: congestion,
			AverageSpeed:    speed,
			Timestamp:       ts,
		},
	})
}

func TestMonitorRecordTrimsHistory(t *testing.T) {
	m := NewMonitor(testPoints())
	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 120; i++ {
		recordOne(m, "silk_board", start.Add(time.Duration(i)*time.Minute), 50, 30, 100)
	}

	h := m.history["silk_board"]
	require.Len(t, h, 100)
	assert.Equal(t, start.Add(119*time.Minute), h[len(h)-1].Timestamp)
}

func TestMonitorIgnoresUnknownPoints(t *testing.T) {
	m := NewMonitor(testPoints())
	recordOne(m, "zzz", time.Now(), 50, 30, 100)
	assert.NotContains(t, m.history, "zzz")
}

func TestMonitorIncidentsNeedHistory(t *testing.T) {
	m := NewMonitor(testPoints())
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 9; i++ {
		recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 90, 5, 100)
	}
	assert.Nil(t, m.Incidents("silk_board", now), "nine observations are not enough")
}

func TestMonitorDetectsSuddenCongestion(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	t.Run("medium severity", func(t *testing.T) {
		m := NewMonitor(testPoints())
		for i := 0; i < 7; i++ {
			recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 30, 30, 100)
		}
		for i := 7; i < 10; i++ {
			recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 70, 30, 100)
		}

		incidents := m.Incidents("silk_board", now)
		require.Len(t, incidents, 1)
		assert.Equal(t, "sudden_congestion", incidents[0].Type)
		assert.Equal(t, "medium", incidents[0].Severity)
		assert.Contains(t, incidents[0].Description, "silk_board")
	})

	t.Run("high severity above eighty", func(t *testing.T) {
		m := NewMonitor(testPoints())
		for i := 0; i < 7; i++ {
			recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 40, 30, 100)
		}
		for i := 7; i < 10; i++ {
			recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 90, 30, 100)
		}

		incidents := m.Incidents("silk_board", now)
		require.Len(t, incidents, 1)
		assert.Equal(t, "high", incidents[0].Severity)
	})

	t.Run("flat history stays quiet", func(t *testing.T) {
		m := NewMonitor(testPoints())
		for i := 0; i < 10; i++ {
			recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 50, 30, 100)
		}
		assert.Empty(t, m.Incidents("silk_board", now))
	})
}

func TestMonitorDetectsTrafficJam(t *testing.T) {
	m := NewMonitor(testPoints())
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 50, 30, 100)
	}
	for i := 7; i < 10; i++ {
		recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 50, 6, 100)
	}

	incidents := m.Incidents("silk_board", now)
	require.Len(t, incidents, 1)
	assert.Equal(t, "traffic_jam", incidents[0].Type)
	assert.Equal(t, "high", incidents[0].Severity)
	assert.Contains(t, incidents[0].Description, "6.0")
}

func TestMonitorDetectsBothIncidents(t *testing.T) {
	m := NewMonitor(testPoints())
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 30, 30, 100)
	}
	for i := 7; i < 10; i++ {
		recordOne(m, "silk_board", now.Add(time.Duration(i)*time.Minute), 85, 5, 100)
	}

	incidents := m.Incidents("silk_board", now)
	require.Len(t, incidents, 2)
}

func TestMonitorFlowAnalysis(t *testing.T) {
	m := NewMonitor(testPoints())
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	// Outside the one-hour window
	recordOne(m, "silk_board", now.Add(-3*time.Hour), 99, 5, 999)

	congestion := []float64{10, 20, 30, 40, 50}
	for i, c := range congestion {
		ts := now.Add(time.Duration(-50+i*10) * time.Minute)
		recordOne(m, "silk_board", ts, c, 60-c, int(c)*10)
	}

	flow := m.FlowAnalysis("silk_board", 1, now)
	assert.Equal(t, 1, flow.PeriodHours)
	assert.Equal(t, 5, flow.DataPoints)
	assert.Equal(t, 30.0, flow.CongestionLevel.Average)
	assert.Equal(t, 50.0, flow.CongestionLevel.Max)
	assert.Equal(t, 10.0, flow.CongestionLevel.Min)
	assert.Equal(t, 300.0, flow.VehicleCount.Average)
	assert.Equal(t, 30.0, flow.AverageSpeed.Average)
	require.Len(t, flow.PeakHours, 1)
	assert.Equal(t, 11, flow.PeakHours[0].Hour)
	assert.Equal(t, 30.0, flow.PeakHours[0].AvgCongestion)
}

func TestMonitorFlowAnalysisEmptyWindow(t *testing.T) {
	m := NewMonitor(testPoints())
	flow := m.FlowAnalysis("silk_board", 1, time.Now())
	assert.Equal(t, 0, flow.DataPoints)
	assert.Empty(t, flow.PeakHours)
	assert.Zero(t, flow.CongestionLevel.Average)
}

func TestMonitorPeakHoursTopThree(t *testing.T) {
	m := NewMonitor(testPoints())
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	recordOne(m, "silk_board", day.Add(8*time.Hour), 80, 20, 100)
	recordOne(m, "silk_board", day.Add(8*time.Hour+30*time.Minute), 90, 20, 100)
	recordOne(m, "silk_board", day.Add(9*time.Hour), 20, 40, 100)
	recordOne(m, "silk_board", day.Add(10*time.Hour), 60, 25, 100)
	recordOne(m, "silk_board", day.Add(11*time.Hour), 40, 30, 100)

	flow := m.FlowAnalysis("silk_board", 24, day.Add(11*time.Hour+30*time.Minute))
	require.Len(t, flow.PeakHours, 3)
	assert.Equal(t, domain.PeakHour{Hour: 8, AvgCongestion: 85}, flow.PeakHours[0])
	assert.Equal(t, domain.PeakHour{Hour: 10, AvgCongestion: 60}, flow.PeakHours[1])
	assert.Equal(t, domain.PeakHour{Hour: 11, AvgCongestion: 40}, flow.PeakHours[2])
}

func TestMonitorReport(t *testing.T) {
	m := NewMonitor(testPoints())
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	m.Record(map[string]domain.TrafficSnapshot{
		"silk_board": {VehicleCount: 120, CongestionLevel: 80, AverageSpeed: 18, Timestamp: now},
		"hebbal":     {VehicleCount: 90, CongestionLevel: 40, AverageSpeed: 32, Timestamp: now},
		"zzz":        {VehicleCount: 1, CongestionLevel: 1, AverageSpeed: 1, Timestamp: now},
	})

	report := m.Report(now)
	require.Len(t, report.TrafficPoints, 2)
	assert.Equal(t, now, report.Timestamp)

	silk := report.TrafficPoints["silk_board"]
	require.NotNil(t, silk.CurrentStatus)
	assert.Equal(t, 80.0, silk.CurrentStatus.CongestionLevel)
	assert.True(t, silk.MonitoringActive)
	assert.Equal(t, 1, silk.FlowAnalysis.DataPoints)
	assert.Empty(t, silk.Incidents)

	assert.Equal(t, 2, report.SystemOverview.TotalMonitoringPoints)
	assert.Equal(t, 0, report.SystemOverview.ActiveIncidents)
	assert.Equal(t, 60.0, report.SystemOverview.AverageSystemCongestion)
}
