package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
)

// historyCap bounds the per-point observation ring.
const historyCap = 100

// Monitor keeps a rolling observation history per point and derives
// incidents and flow statistics from it. Observations arrive once per
// refresh cycle.
type Monitor struct {
	mu      sync.RWMutex
	history map[string][]domain.Observation
}

// NewMonitor creates a monitor covering the given points.
func NewMonitor(points []domain.TrafficPoint) *Monitor {
	history := make(map[string][]domain.Observation, len(points))
	for _, p := range points {
		history[p.ID] = nil
	}
	return &Monitor{history: history}
}

// Record appends one observation per point from a refresh cycle,
// trimming each ring to the last hundred entries.
func (m *Monitor) Record(snapshots map[string]domain.TrafficSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, snap := range snapshots {
		if _, ok := m.history[id]; !ok {
			continue
		}
		h := append(m.history[id], domain.Observation{
			Timestamp:       snap.Timestamp,
			VehicleCount:    snap.VehicleCount,
			CongestionLevel: snap.CongestionLevel,
			AverageSpeed:    snap.AverageSpeed,
		})
		if len(h) > historyCap {
			h = h[len(h)-historyCap:]
		}
		m.history[id] = h
	}
}

// Incidents inspects the recent history of one point for anomalies. At
// least ten observations are needed before anything is reported.
func (m *Monitor) Incidents(pointID string, now time.Time) []domain.Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.incidentsLocked(pointID, now)
}

func (m *Monitor) incidentsLocked(pointID string, now time.Time) []domain.Incident {
	h := m.history[pointID]
	if len(h) < 10 {
		return nil
	}
	recent := h[len(h)-10:]

	var incidents []domain.Incident

	// Sudden spike: last three readings against the five before them
	recentAvg := avgCongestion(recent[7:])
	previousAvg := avgCongestion(recent[2:7])
	if recentAvg > previousAvg+30 {
		severity := "medium"
		if recentAvg > 80 {
			severity = "high"
		}
		incidents = append(incidents, domain.Incident{
			Type:        "sudden_congestion",
			Severity:    severity,
			Timestamp:   now,
			Description: fmt.Sprintf("Sudden congestion increase detected at %s", pointID),
		})
	}

	// Sustained crawl over the last three readings
	speedAvg := avgSpeed(recent[7:])
	if speedAvg < 10 {
		incidents = append(incidents, domain.Incident{
			Type:        "traffic_jam",
			Severity:    "high",
			Timestamp:   now,
			Description: fmt.Sprintf("Severe traffic jam detected at %s (avg speed: %.1f km/h)", pointID, speedAvg),
		})
	}

	return incidents
}

// FlowAnalysis summarizes one point's retained history over the given
// window in hours.
func (m *Monitor) FlowAnalysis(pointID string, hours int, now time.Time) domain.FlowAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flowAnalysisLocked(pointID, hours, now)
}

func (m *Monitor) flowAnalysisLocked(pointID string, hours int, now time.Time) domain.FlowAnalysis {
	cutoff := now.Add(-time.Duration(hours) * time.Hour)

	var window []domain.Observation
	for _, obs := range m.history[pointID] {
		if !obs.Timestamp.Before(cutoff) {
			window = append(window, obs)
		}
	}

	analysis := domain.FlowAnalysis{PeriodHours: hours, DataPoints: len(window)}
	if len(window) == 0 {
		return analysis
	}

	analysis.VehicleCount = summarize(window, func(o domain.Observation) float64 { return float64(o.VehicleCount) })
	analysis.CongestionLevel = summarize(window, func(o domain.Observation) float64 { return o.CongestionLevel })
	analysis.AverageSpeed = summarize(window, func(o domain.Observation) float64 { return o.AverageSpeed })
	analysis.PeakHours = peakHours(window)
	return analysis
}

// Report builds the full analytics view across every monitored point.
func (m *Monitor) Report(now time.Time) domain.AnalyticsReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := domain.AnalyticsReport{
		Timestamp:     now,
		TrafficPoints: make(map[string]domain.PointAnalytics, len(m.history)),
	}

	var totalCongestion float64
	totalIncidents := 0

	for id, h := range m.history {
		incidents := m.incidentsLocked(id, now)
		totalIncidents += len(incidents)

		var current *domain.Observation
		if len(h) > 0 {
			latest := h[len(h)-1]
			current = &latest
			totalCongestion += latest.CongestionLevel
		}

		report.TrafficPoints[id] = domain.PointAnalytics{
			CurrentStatus:    current,
			FlowAnalysis:     m.flowAnalysisLocked(id, 1, now),
			Incidents:        incidents,
			MonitoringActive: true,
		}
	}

	report.SystemOverview = domain.SystemOverview{
		TotalMonitoringPoints: len(m.history),
		ActiveIncidents:       totalIncidents,
	}
	if len(m.history) > 0 {
		report.SystemOverview.AverageSystemCongestion = totalCongestion / float64(len(m.history))
	}
	return report
}

func summarize(window []domain.Observation, value func(domain.Observation) float64) domain.MetricSummary {
	first := value(window[0])
	summary := domain.MetricSummary{Max: first, Min: first}
	var sum float64
	for _, obs := range window {
		v := value(obs)
		sum += v
		if v > summary.Max {
			summary.Max = v
		}
		if v < summary.Min {
			summary.Min = v
		}
	}
	summary.Average = sum / float64(len(window))
	return summary
}

// peakHours ranks hours of day by average congestion, highest first,
// and returns the top three.
func peakHours(window []domain.Observation) []domain.PeakHour {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, obs := range window {
		h := obs.Timestamp.Hour()
		sums[h] += obs.CongestionLevel
		counts[h]++
	}

	peaks := make([]domain.PeakHour, 0, len(sums))
	for h, sum := range sums {
		peaks = append(peaks, domain.PeakHour{Hour: h, AvgCongestion: sum / float64(counts[h])})
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].AvgCongestion != peaks[j].AvgCongestion {
			return peaks[i].AvgCongestion > peaks[j].AvgCongestion
		}
		return peaks[i].Hour < peaks[j].Hour
	})
	if len(peaks) > 3 {
		peaks = peaks[:3]
	}
	return peaks
}

func avgCongestion(window []domain.Observation) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range window {
		sum += obs.CongestionLevel
	}
	return sum / float64(len(window))
}

func avgSpeed(window []domain.Observation) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range window {
		sum += obs.AverageSpeed
	}
	return sum / float64(len(window))
}
