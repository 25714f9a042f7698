package service

import (
	"math"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/pkg/utils"
)

const (
	// cityAverageSpeedKmh converts a catalog distance into a baseline
	// time for routes without a curated entry.
	cityAverageSpeedKmh = 18.0
	minRouteMinutes     = 5.0
)

// RouteService estimates commute times between monitored points,
// combining curated baselines with current congestion and the system's
// optimization benefit.
type RouteService struct {
	points    map[string]domain.TrafficPoint
	baselines map[string]float64
}

// NewRouteService creates a route service over the given points.
func NewRouteService(points []domain.TrafficPoint) *RouteService {
	index := make(map[string]domain.TrafficPoint, len(points))
	for _, p := range points {
		index[p.ID] = p
	}
	return &RouteService{
		points: index,
		baselines: map[string]float64{
			"silk_board_to_electronic_city":  25,
			"hebbal_to_marathahalli":         45,
			"koramangala_to_whitefield":      55,
			"majestic_to_silk_board":         35,
			"electronic_city_to_koramangala": 40,
			"whitefield_to_hebbal":           50,
			"jayanagar_to_richmond_circle":   20,
			"richmond_circle_to_majestic":    15,
		},
	}
}

// Estimate computes the current travel time between two points given
// the latest snapshots and the current commute-reduction benefit.
func (r *RouteService) Estimate(from, to string, snapshots map[string]domain.TrafficSnapshot, reduction float64) (domain.RouteEstimate, error) {
	if _, ok := r.points[from]; !ok {
		return domain.RouteEstimate{}, domain.NewPointError(from)
	}
	if _, ok := r.points[to]; !ok {
		return domain.RouteEstimate{}, domain.NewPointError(to)
	}

	baseline := r.baseline(from, to)
	avgCongestion := (congestionOrDefault(snapshots, from) + congestionOrDefault(snapshots, to)) / 2

	congestionMultiplier := 1 + avgCongestion/100
	optimizationMultiplier := 1 - reduction
	current := baseline * congestionMultiplier * optimizationMultiplier

	return domain.RouteEstimate{
		Route:                 from + "_to_" + to,
		BaselineTimeMinutes:   baseline,
		CurrentTimeMinutes:    utils.RoundTo(current, 1),
		TimeSavedMinutes:      utils.RoundTo(baseline-current, 1),
		PercentageImprovement: utils.RoundTo((baseline-current)/baseline*100, 1),
		AvgCongestion:         utils.RoundTo(avgCongestion, 1),
	}, nil
}

// baseline looks up the curated time for a route, falling back to a
// great-circle estimate at typical city speed.
func (r *RouteService) baseline(from, to string) float64 {
	if minutes, ok := r.baselines[from+"_to_"+to]; ok {
		return minutes
	}
	a := r.points[from]
	b := r.points[to]
	distance := utils.Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	minutes := math.Round(distance / cityAverageSpeedKmh * 60)
	if minutes < minRouteMinutes {
		minutes = minRouteMinutes
	}
	return minutes
}

func congestionOrDefault(snapshots map[string]domain.TrafficSnapshot, pointID string) float64 {
	if snap, ok := snapshots[pointID]; ok {
		return snap.CongestionLevel
	}
	return 50
}
