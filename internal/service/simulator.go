package service

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/pkg/utils"
)

// Simulator generates synthetic traffic snapshots for every configured
// point, shaped by time of day, day of week, weather and special events.
// It implements domain.SnapshotSource.
type Simulator struct {
	points []domain.TrafficPoint

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator over the given points. A zero seed
// picks a time-based one.
func NewSimulator(points []domain.TrafficPoint, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		points: points,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Snapshots generates a fresh snapshot for every configured point.
// Generation for one point never depends on another.
func (s *Simulator) Snapshots(now time.Time) (map[string]domain.TrafficSnapshot, error) {
	snapshots := make(map[string]domain.TrafficSnapshot, len(s.points))
	for _, p := range s.points {
		snapshots[p.ID] = s.SnapshotAt(p, now)
	}
	return snapshots, nil
}

// SnapshotAt generates a single snapshot for one point at the given time.
func (s *Simulator) SnapshotAt(point domain.TrafficPoint, now time.Time) domain.TrafficSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hour := now.Hour()
	weekend := isWeekend(now.Weekday())

	// Base load in vehicles per minute
	base := float64(point.VehiclesPerHour) / 60

	timeMult := s.timeMultiplier(hour, weekend)
	dayMult := dayMultiplier(now.Weekday())
	weather := s.weatherFactor()
	event := s.eventFactor(now)

	vehicles := int(base * timeMult * dayMult * weather * event * s.uniform(0.85, 1.15))

	// Congestion relative to peak capacity, with a convex penalty above 70
	congestion := math.Min(100, float64(vehicles)/(base*3)*100)
	if congestion > 70 {
		congestion = 70 + (congestion-70)*1.5
	}
	congestion = utils.Clamp(congestion, 0, 100)

	speed := s.speedForCongestion(congestion)

	queue := 0
	if congestion > 50 {
		queue = int((congestion - 50) * 0.5)
	}

	wait := 0.0
	if congestion > 30 {
		wait = (congestion - 30) * 0.8
	}

	return domain.TrafficSnapshot{
		VehicleCount:    vehicles,
		CongestionLevel: utils.RoundTo(congestion, 1),
		AverageSpeed:    utils.RoundTo(speed, 1),
		QueueLength:     queue,
		WaitTime:        utils.RoundTo(wait, 1),
		WeatherFactor:   weather,
		EventFactor:     event,
		Timestamp:       now,
	}
}

// timeMultiplier returns the load multiplier for the hour bucket.
func (s *Simulator) timeMultiplier(hour int, weekend bool) float64 {
	if weekend {
		switch {
		case hour >= 10 && hour <= 22:
			return s.uniform(1.2, 2.8)
		case hour == 23 || hour <= 1:
			return s.uniform(0.8, 1.5)
		default:
			return s.uniform(0.2, 0.6)
		}
	}

	switch {
	case hour == 8 || hour == 9: // morning peak
		return s.uniform(3.5, 4.5)
	case hour == 7 || hour == 10:
		return s.uniform(2.5, 3.5)
	case hour >= 17 && hour <= 19: // evening peak
		return s.uniform(3.8, 5.0)
	case hour == 16 || hour == 20:
		return s.uniform(2.8, 3.8)
	case hour >= 11 && hour <= 15:
		return s.uniform(1.5, 2.2)
	case hour >= 21 && hour <= 23:
		return s.uniform(1.0, 1.8)
	default:
		return s.uniform(0.3, 0.7)
	}
}

func dayMultiplier(day time.Weekday) float64 {
	switch day {
	case time.Monday:
		return 1.1
	case time.Friday:
		return 1.2
	case time.Saturday:
		return 0.9
	case time.Sunday:
		return 0.8
	default:
		return 1.0
	}
}

// weatherConditions is walked in order against a cumulative probability.
var weatherConditions = []struct {
	probability float64
	factor      float64
}{
	{0.5, 1.0},  // clear
	{0.2, 1.3},  // light rain
	{0.1, 1.8},  // heavy rain
	{0.15, 1.0}, // cloudy
	{0.05, 1.4}, // foggy
}

func (s *Simulator) weatherFactor() float64 {
	r := s.rng.Float64()
	cumulative := 0.0
	for _, c := range weatherConditions {
		cumulative += c.probability
		if r <= cumulative {
			return c.factor
		}
	}
	return 1.0
}

func (s *Simulator) eventFactor(now time.Time) float64 {
	month := now.Month()

	// Festival season surges
	if month >= time.September && month <= time.November && s.rng.Float64() < 0.1 {
		return s.uniform(1.4, 2.0)
	}
	// Match days can cut or boost traffic
	if s.rng.Float64() < 0.05 {
		return s.uniform(0.7, 1.6)
	}
	// Weekday conference crowds
	if !isWeekend(now.Weekday()) && s.rng.Float64() < 0.03 {
		return s.uniform(1.2, 1.8)
	}
	// School holidays thin the roads
	if (month == time.May || month == time.June || month == time.December) && s.rng.Float64() < 0.3 {
		return s.uniform(0.8, 0.9)
	}
	return 1.0
}

// speedForCongestion draws a speed from the band matching the congestion.
func (s *Simulator) speedForCongestion(congestion float64) float64 {
	switch {
	case congestion < 20:
		return s.uniform(45, 60)
	case congestion < 40:
		return s.uniform(35, 50)
	case congestion < 60:
		return s.uniform(25, 40)
	case congestion < 80:
		return s.uniform(15, 30)
	default:
		return s.uniform(5, 20)
	}
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return utils.Lerp(lo, hi, s.rng.Float64())
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}
