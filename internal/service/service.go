package service

import (
	"context"
	"time"

	"github.com/nammatraffic/backend/internal/config"
	"github.com/nammatraffic/backend/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.DataRepository

// System bundles the control loop and its read-side services behind one
// facade for the delivery layer.
type System struct {
	controller *Controller
	predictor  *Predictor
	monitor    *Monitor
	routes     *RouteService
	repo       DataRepository
}

// NewSystem wires the simulator, predictor, monitor, route service and
// control loop from configuration.
func NewSystem(cfg *config.Config, repo DataRepository) *System {
	predictor := NewPredictor(cfg.Points, cfg.SimulatorSeed)
	monitor := NewMonitor(cfg.Points)
	controller := NewController(ControllerOptions{
		Points:          cfg.Points,
		Timings:         cfg.Timings,
		Source:          NewSimulator(cfg.Points, cfg.SimulatorSeed),
		Predictor:       predictor,
		Monitor:         monitor,
		Repo:            repo,
		RefreshInterval: cfg.RefreshInterval,
		TickInterval:    cfg.TickInterval,
		TargetReduction: cfg.TargetCommuteReduction,
		Seed:            cfg.SimulatorSeed,
	})
	return &System{
		controller: controller,
		predictor:  predictor,
		monitor:    monitor,
		routes:     NewRouteService(cfg.Points),
		repo:       repo,
	}
}

// Start runs the control loop.
func (s *System) Start(ctx context.Context) error { return s.controller.Run(ctx) }

// Shutdown stops the control loop and waits for in-flight work.
func (s *System) Shutdown() { s.controller.Stop() }

// Snapshot returns the latest published update triple.
func (s *System) Snapshot() domain.Update { return s.controller.GetSnapshot() }

// Override forwards a manual signal command to the control loop.
func (s *System) Override(req domain.OverrideRequest) (domain.SignalState, error) {
	return s.controller.Override(req)
}

// Subscribe registers an update listener with the control loop.
func (s *System) Subscribe() (string, <-chan domain.Update) { return s.controller.Subscribe() }

// Unsubscribe removes an update listener.
func (s *System) Unsubscribe(id string) { s.controller.Unsubscribe(id) }

// Analytics builds the monitoring report across all points.
func (s *System) Analytics() domain.AnalyticsReport { return s.monitor.Report(time.Now()) }

// ModelPerformance evaluates every point's timing model.
func (s *System) ModelPerformance() map[string]domain.ModelPerformance {
	return s.predictor.Performance(time.Now())
}

// OptimizeRoute estimates the current travel time between two points.
func (s *System) OptimizeRoute(from, to string) (domain.RouteEstimate, error) {
	update := s.controller.GetSnapshot()
	reduction := s.controller.CommuteReduction(time.Now())
	return s.routes.Estimate(from, to, update.TrafficData, reduction)
}

// Points returns the configured traffic point catalog.
func (s *System) Points() []domain.TrafficPoint { return s.controller.Points() }

// LoopHealth reports the control loop's activity health.
func (s *System) LoopHealth() domain.HealthStatus { return s.controller.Health() }

// StorageHealth checks database connectivity.
func (s *System) StorageHealth(ctx context.Context) error { return s.repo.Health(ctx) }

// History returns stored snapshots for one point over the given window.
func (s *System) History(ctx context.Context, pointID string, hours int) ([]domain.SnapshotRecord, error) {
	known := false
	for _, p := range s.controller.Points() {
		if p.ID == pointID {
			known = true
			break
		}
	}
	if !known {
		return nil, domain.NewPointError(pointID)
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)
	return s.repo.GetSnapshotHistory(ctx, pointID, from, to)
}
