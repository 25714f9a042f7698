package service

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/internal/logger"
	"github.com/nammatraffic/backend/internal/metrics"
	"github.com/nammatraffic/backend/pkg/utils"
)

const (
	trainingDays = 30
	evalDays     = 7
)

// Predictor turns the latest snapshot of a point into a timing
// recommendation. It keeps one trainable model per point and fits it
// lazily on the first request, so startup stays cheap.
type Predictor struct {
	log     *slog.Logger
	entries map[string]*modelEntry

	mu  sync.Mutex
	rng *rand.Rand
}

// modelEntry guards one point's model so concurrent first requests
// trigger exactly one training run.
type modelEntry struct {
	mu    sync.Mutex
	model TimingModel
}

// NewPredictor creates a predictor with an untrained model per point.
// A zero seed picks a time-based one.
func NewPredictor(points []domain.TrafficPoint, seed int64) *Predictor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	entries := make(map[string]*modelEntry, len(points))
	for _, p := range points {
		entries[p.ID] = &modelEntry{model: newLinearModel()}
	}
	return &Predictor{
		log:     logger.L(),
		entries: entries,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Recommend returns phase durations for one point. A nil snapshot falls
// back to neutral features. Prediction problems never propagate; the
// caller always gets a usable recommendation.
func (p *Predictor) Recommend(pointID string, snapshot *domain.TrafficSnapshot, now time.Time) domain.TimingRecommendation {
	metrics.PredictionsTotal.Inc()

	entry, ok := p.entries[pointID]
	if !ok {
		p.log.Warn("recommendation requested for unknown point", "point", pointID)
		return p.fallback(snapshot)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.model.Trained() {
		if err := p.train(pointID, entry, now); err != nil {
			p.log.Warn("model training failed, serving fallback", "point", pointID, "error", err)
			return p.fallback(snapshot)
		}
	}

	features := buildFeatures(now, snapshot)
	est, err := entry.model.Infer(features)
	if err != nil {
		p.log.Warn("model inference failed, serving fallback", "point", pointID, "error", err)
		return p.fallback(snapshot)
	}

	observed := features[6]
	return domain.TimingRecommendation{
		GreenDuration:       utils.ClampInt(int(est.Green), 30, 90),
		RedDuration:         utils.ClampInt(int(est.Red), 20, 80),
		PredictedCongestion: est.PredictedCongestion,
		Confidence:          utils.Clamp(1-math.Abs(est.PredictedCongestion-observed)/100, 0.6, 0.95),
	}
}

// Trained reports whether the point's model has been fitted.
func (p *Predictor) Trained(pointID string) bool {
	entry, ok := p.entries[pointID]
	if !ok {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.model.Trained()
}

// Performance evaluates every fitted model against a fresh synthetic
// week and reports the timing error as a normalized accuracy.
func (p *Predictor) Performance(now time.Time) map[string]domain.ModelPerformance {
	out := make(map[string]domain.ModelPerformance, len(p.entries))
	for id, entry := range p.entries {
		entry.mu.Lock()
		if !entry.model.Trained() {
			entry.mu.Unlock()
			out[id] = domain.ModelPerformance{}
			continue
		}

		features, targets := p.synthesizeTraining(now, evalDays)
		var sum float64
		var n int
		for i, f := range features {
			est, err := entry.model.Infer(f)
			if err != nil {
				continue
			}
			greenErr := est.Green - targets[i][0]
			redErr := est.Red - targets[i][1]
			sum += greenErr*greenErr + redErr*redErr
			n += 2
		}
		entry.mu.Unlock()

		mse := 0.0
		if n > 0 {
			mse = sum / float64(n)
		}
		out[id] = domain.ModelPerformance{
			Accuracy: math.Max(0, 1-mse/1000),
			MSE:      mse,
			Trained:  true,
		}
	}
	return out
}

func (p *Predictor) train(pointID string, entry *modelEntry, now time.Time) error {
	start := time.Now()
	features, targets := p.synthesizeTraining(now, trainingDays)
	if err := entry.model.Fit(features, targets); err != nil {
		return fmt.Errorf("predictor: train %s: %w", pointID, err)
	}
	metrics.ModelTrainingsTotal.Inc()
	metrics.ModelTrainingDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	p.log.Info("timing model trained", "point", pointID, "rows", len(features))
	return nil
}

// synthesizeTraining builds hourly labeled records over the given number
// of days, ending at now.
func (p *Predictor) synthesizeTraining(now time.Time, days int) ([][]float64, [][]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows := days * 24
	features := make([][]float64, 0, rows)
	targets := make([][]float64, 0, rows)

	start := now.AddDate(0, 0, -days)
	for i := 0; i < rows; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		hour := ts.Hour()
		weekend := isWeekend(ts.Weekday())

		var baseVehicles int
		var congestionMult float64
		switch {
		case !weekend && (hour >= 8 && hour <= 10 || hour >= 18 && hour <= 20):
			baseVehicles = p.randInt(200, 400)
			congestionMult = p.uniform(2.0, 3.5)
		case (!weekend && hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19):
			baseVehicles = p.randInt(150, 300)
			congestionMult = p.uniform(1.5, 2.5)
		case weekend && hour >= 10 && hour <= 22:
			baseVehicles = p.randInt(100, 200)
			congestionMult = p.uniform(1.0, 2.0)
		default:
			baseVehicles = p.randInt(50, 150)
			congestionMult = p.uniform(0.5, 1.5)
		}

		vehicles := int(float64(baseVehicles) * p.uniform(0.8, 1.2))
		speed := math.Max(10, 50-congestionMult*10+p.uniform(-5, 5))
		congestion := math.Min(100, congestionMult*25+p.uniform(-10, 10))
		weather := p.uniform(0.8, 1.2)
		event := p.uniform(0.9, 1.1)

		green := heuristicGreen(vehicles, congestion, hour, weekend)
		red := heuristicRed(vehicles, hour)

		features = append(features, []float64{
			float64(hour), float64(ts.Minute()), float64(dayIndex(ts.Weekday())), boolToFloat(weekend),
			float64(vehicles), speed, congestion, weather, event,
		})
		// Labels assume congestion drifts slightly upward by the next cycle
		targets = append(targets, []float64{float64(green), float64(red), congestion * 1.1})
	}
	return features, targets
}

func (p *Predictor) fallback(snapshot *domain.TrafficSnapshot) domain.TimingRecommendation {
	metrics.PredictionFallbacksTotal.Inc()
	rec := domain.TimingRecommendation{
		GreenDuration: 45,
		RedDuration:   60,
		Confidence:    0.5,
		Fallback:      true,
	}
	if snapshot != nil {
		rec.PredictedCongestion = snapshot.CongestionLevel
	}
	return rec
}

// heuristicGreen is the baseline rule for a green duration.
func heuristicGreen(vehicles int, congestion float64, hour int, weekend bool) int {
	green := 45

	switch {
	case vehicles > 300:
		green += 20
	case vehicles > 200:
		green += 10
	case vehicles < 100:
		green -= 10
	}

	switch {
	case congestion > 70:
		green += 15
	case congestion > 50:
		green += 10
	}

	if !weekend && (hour >= 8 && hour <= 10 || hour >= 18 && hour <= 20) {
		green += 10
	}

	return utils.ClampInt(green, 30, 90)
}

// heuristicRed is the baseline rule for a red duration, sized against
// cross traffic.
func heuristicRed(vehicles int, hour int) int {
	red := 60

	switch {
	case vehicles > 300:
		red -= 10
	case vehicles < 100:
		red += 10
	}

	if hour < 6 || hour > 22 {
		red -= 15
	}

	return utils.ClampInt(red, 20, 80)
}

// buildFeatures assembles the model input for one point right now. A nil
// snapshot yields neutral mid-range features.
func buildFeatures(now time.Time, snapshot *domain.TrafficSnapshot) []float64 {
	vehicles, speed, congestion := 150.0, 35.0, 40.0
	weather, event := 1.0, 1.0
	if snapshot != nil {
		vehicles = float64(snapshot.VehicleCount)
		speed = snapshot.AverageSpeed
		congestion = snapshot.CongestionLevel
		weather = snapshot.WeatherFactor
		event = snapshot.EventFactor
	}
	return []float64{
		float64(now.Hour()), float64(now.Minute()), float64(dayIndex(now.Weekday())), boolToFloat(isWeekend(now.Weekday())),
		vehicles, speed, congestion, weather, event,
	}
}

// dayIndex maps a weekday to the Monday=0..Sunday=6 convention used by
// the feature vector.
func dayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (p *Predictor) randInt(lo, hi int) int {
	return lo + p.rng.Intn(hi-lo+1)
}

func (p *Predictor) uniform(lo, hi float64) float64 {
	return utils.Lerp(lo, hi, p.rng.Float64())
}
