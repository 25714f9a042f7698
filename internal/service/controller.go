package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nammatraffic/backend/internal/domain"
	"github.com/nammatraffic/backend/internal/logger"
	"github.com/nammatraffic/backend/internal/metrics"
	"github.com/nammatraffic/backend/pkg/utils"
)

const (
	subscriberBuffer  = 8
	failureBackoff    = 2 * time.Second
	degradedThreshold = 3
)

// ControllerOptions wires the controller's collaborators and timing.
type ControllerOptions struct {
	Points          []domain.TrafficPoint
	Timings         domain.SignalTimings
	Source          domain.SnapshotSource
	Predictor       *Predictor
	Monitor         *Monitor
	Repo            domain.DataRepository
	RefreshInterval time.Duration
	TickInterval    time.Duration
	TargetReduction float64
	Seed            int64
}

// Controller drives the control loop: the periodic metrics refresh, the
// one-second signal tick, stats aggregation and update fan-out. All
// mutable state lives here or inside the signals it owns.
type Controller struct {
	log       *slog.Logger
	points    []domain.TrafficPoint
	source    domain.SnapshotSource
	predictor *Predictor
	monitor   *Monitor
	repo      domain.DataRepository

	refreshInterval time.Duration
	tickInterval    time.Duration
	targetReduction float64
	start           time.Time

	signals map[string]*Signal

	mu         sync.RWMutex
	snapshots  map[string]domain.TrafficSnapshot
	stats      domain.SystemStats
	lastUpdate domain.Update
	running    bool
	stopped    bool
	cancel     context.CancelFunc

	healthMu      sync.Mutex
	refreshHealth activityHealth
	advanceHealth activityHealth

	subMu sync.Mutex
	subs  map[string]chan domain.Update

	rngMu sync.Mutex
	rng   *rand.Rand

	loopWG sync.WaitGroup
	bg     sync.WaitGroup
}

// activityHealth tracks one loop activity's failure run.
type activityHealth struct {
	consecutiveFailures int
	lastSuccess         time.Time
	lastError           string
	nextAttempt         time.Time
}

func (a activityHealth) toDomain() domain.ActivityHealth {
	return domain.ActivityHealth{
		ConsecutiveFailures: a.consecutiveFailures,
		LastSuccess:         a.lastSuccess,
		LastError:           a.lastError,
		Degraded:            a.consecutiveFailures >= degradedThreshold,
	}
}

// NewController creates the controller and one signal per point. A zero
// seed picks a time-based one.
func NewController(opts ControllerOptions) *Controller {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	now := time.Now()
	signals := make(map[string]*Signal, len(opts.Points))
	for _, p := range opts.Points {
		signals[p.ID] = NewSignal(p, opts.Timings, 10+rng.Intn(41), now)
	}

	return &Controller{
		log:             logger.L(),
		points:          opts.Points,
		source:          opts.Source,
		predictor:       opts.Predictor,
		monitor:         opts.Monitor,
		repo:            opts.Repo,
		refreshInterval: opts.RefreshInterval,
		tickInterval:    opts.TickInterval,
		targetReduction: opts.TargetReduction,
		start:           now,
		signals:         signals,
		snapshots:       make(map[string]domain.TrafficSnapshot),
		subs:            make(map[string]chan domain.Update),
		rng:             rng,
	}
}

// Run performs an initial refresh and starts both periodic activities.
// It returns immediately; Stop or ctx cancellation ends the loop.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("controller: already running")
	}
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("controller: already stopped")
	}
	c.running = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	// Refresh before the first tick so signals never advance against an
	// empty snapshot map.
	c.runRefresh(time.Now())

	c.loopWG.Add(2)
	go c.refreshLoop(ctx)
	go c.advanceLoop(ctx)

	c.log.Info("control loop started",
		"points", len(c.points),
		"refresh_interval", c.refreshInterval,
		"tick_interval", c.tickInterval)
	return nil
}

// Stop halts scheduling, waits for in-flight work and closes all
// subscriber channels. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.loopWG.Wait()
	c.bg.Wait()

	c.subMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMu.Unlock()
	metrics.SubscribersGauge.Set(0)

	c.log.Info("control loop stopped")
}

func (c *Controller) refreshLoop(ctx context.Context) {
	defer c.loopWG.Done()
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if c.inBackoff(&c.refreshHealth, now) {
				continue
			}
			c.runRefresh(now)
		}
	}
}

func (c *Controller) advanceLoop(ctx context.Context) {
	defer c.loopWG.Done()
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if c.inBackoff(&c.advanceHealth, now) {
				continue
			}
			c.runAdvance(now)
		}
	}
}

func (c *Controller) runRefresh(now time.Time) {
	err := c.refreshOnce(now)
	if err != nil {
		metrics.RefreshFailuresTotal.Inc()
	}
	c.noteActivity(&c.refreshHealth, now, err, "metrics refresh")
}

func (c *Controller) runAdvance(now time.Time) {
	err := c.advanceOnce(now)
	c.noteActivity(&c.advanceHealth, now, err, "signal advance")
}

// refreshOnce replaces the snapshot map wholesale, recomputes stats,
// feeds the monitor and publishes the new triple.
func (c *Controller) refreshOnce(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("controller: refresh panicked: %v", r)
		}
	}()

	start := time.Now()
	snapshots, err := c.source.Snapshots(now)
	if err != nil {
		return fmt.Errorf("controller: generate snapshots: %w", err)
	}

	stats := c.recomputeStats(snapshots, now)

	c.mu.Lock()
	c.snapshots = snapshots
	c.stats = stats
	c.mu.Unlock()

	if c.monitor != nil {
		c.monitor.Record(snapshots)
	}
	for id, snap := range snapshots {
		if sig, ok := c.signals[id]; ok {
			sig.SyncWaiting(snap.QueueLength)
		}
		metrics.CongestionLevel.WithLabelValues(id).Set(snap.CongestionLevel)
	}

	c.persist(now, snapshots, stats)
	c.publish(now)

	metrics.RefreshTotal.Inc()
	metrics.RefreshDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

// advanceOnce ticks every signal once against the latest snapshot and
// publishes if any phase changed.
func (c *Controller) advanceOnce(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("controller: signal advance panicked: %v", r)
		}
	}()

	changed := false
	for _, p := range c.points {
		sig := c.signals[p.ID]
		snap := c.latestSnapshot(p.ID)
		pointID := p.ID

		_, transitioned := sig.Advance(now, func() domain.TimingRecommendation {
			rec := c.predictor.Recommend(pointID, snap, now)
			c.logRecommendation(pointID, rec)
			return rec
		})
		if transitioned {
			changed = true
		}
	}

	if changed {
		c.publish(now)
	}
	return nil
}

func (c *Controller) recomputeStats(snapshots map[string]domain.TrafficSnapshot, now time.Time) domain.SystemStats {
	c.mu.RLock()
	stats := c.stats
	c.mu.RUnlock()

	var vehicles int64
	var waitSum float64
	for _, snap := range snapshots {
		vehicles += int64(snap.VehicleCount)
		waitSum += snap.WaitTime
	}

	stats.TotalVehiclesProcessed += vehicles
	if len(snapshots) > 0 {
		stats.AverageWaitTime = utils.RoundTo(waitSum/float64(len(snapshots)), 2)
	} else {
		stats.AverageWaitTime = 0
	}
	stats.CommuteTimeReduction = c.CommuteReduction(now)
	stats.SystemEfficiency = c.systemEfficiency(snapshots)
	return stats
}

// CommuteReduction estimates the optimization benefit accrued since
// startup, growing toward the configured target.
func (c *Controller) CommuteReduction(now time.Time) float64 {
	hours := now.Sub(c.start).Hours()
	reduction := c.targetReduction * (1 - math.Exp(-0.1*hours)) * c.jitter(0.8, 1.2)
	return math.Min(c.targetReduction, math.Max(0, reduction))
}

func (c *Controller) jitter(lo, hi float64) float64 {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return utils.Lerp(lo, hi, c.rng.Float64())
}

// systemEfficiency is the priority-weighted mean of per-point scores
// built from congestion, speed and wait time.
func (c *Controller) systemEfficiency(snapshots map[string]domain.TrafficSnapshot) float64 {
	var weighted, totalWeight float64
	for _, p := range c.points {
		snap, ok := snapshots[p.ID]
		if !ok {
			continue
		}
		congestionEff := math.Max(0, (100-snap.CongestionLevel)/100)
		speedEff := math.Min(1, snap.AverageSpeed/50)
		waitEff := math.Max(0, (30-snap.WaitTime)/30)
		score := (congestionEff + speedEff + waitEff) / 3

		weight := p.Priority.Weight()
		weighted += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return utils.RoundTo(weighted/totalWeight*100, 1)
}

// GetSnapshot returns the latest published triple without blocking.
func (c *Controller) GetSnapshot() domain.Update {
	c.mu.RLock()
	last := c.lastUpdate
	c.mu.RUnlock()
	if last.Timestamp.IsZero() {
		return c.buildUpdate(time.Now())
	}
	return last
}

// Override applies a manual control command to one signal. The updated
// state reaches subscribers with the next published update.
func (c *Controller) Override(req domain.OverrideRequest) (domain.SignalState, error) {
	sig, ok := c.signals[req.PointID]
	if !ok {
		metrics.OverridesTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return domain.SignalState{}, domain.NewPointError(req.PointID)
	}

	state, err := sig.Override(req, time.Now())
	if err != nil {
		metrics.OverridesTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return state, err
	}

	metrics.OverridesTotal.WithLabelValues(string(req.Action), "accepted").Inc()
	c.log.Info("signal override applied",
		"point", req.PointID,
		"action", req.Action,
		"state", state.CurrentState,
		"auto_mode", state.AutoMode)
	return state, nil
}

// Subscribe registers an update listener. Each subscriber sees updates
// in publish order; when its buffer is full the oldest pending update is
// dropped to make room.
func (c *Controller) Subscribe() (string, <-chan domain.Update) {
	id := uuid.NewString()
	ch := make(chan domain.Update, subscriberBuffer)

	c.subMu.Lock()
	c.subs[id] = ch
	c.subMu.Unlock()

	metrics.SubscribersGauge.Inc()
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (c *Controller) Unsubscribe(id string) {
	c.subMu.Lock()
	ch, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
	}
	c.subMu.Unlock()

	if ok {
		close(ch)
		metrics.SubscribersGauge.Dec()
	}
}

// Health reports the failure state of both loop activities.
func (c *Controller) Health() domain.HealthStatus {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	return domain.HealthStatus{
		Refresh:       c.refreshHealth.toDomain(),
		SignalAdvance: c.advanceHealth.toDomain(),
	}
}

// Points returns the configured traffic point catalog.
func (c *Controller) Points() []domain.TrafficPoint {
	return c.points
}

func (c *Controller) publish(now time.Time) {
	update := c.buildUpdate(now)

	c.mu.Lock()
	c.lastUpdate = update
	c.mu.Unlock()

	c.subMu.Lock()
	for _, ch := range c.subs {
		select {
		case ch <- update:
		default:
			// Full buffer: drop the oldest pending update so slow
			// readers lag instead of stalling the loop.
			select {
			case <-ch:
				metrics.UpdatesDroppedTotal.Inc()
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
	c.subMu.Unlock()
	metrics.UpdatesPublishedTotal.Inc()
}

func (c *Controller) buildUpdate(now time.Time) domain.Update {
	c.mu.RLock()
	snapshots := c.snapshots
	stats := c.stats
	c.mu.RUnlock()

	states := make(map[string]domain.SignalState, len(c.signals))
	for id, sig := range c.signals {
		states[id] = sig.State()
	}

	return domain.Update{
		TrafficData:  snapshots,
		SignalStates: states,
		SystemStats:  stats,
		Timestamp:    now,
	}
}

func (c *Controller) latestSnapshot(pointID string) *domain.TrafficSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if snap, ok := c.snapshots[pointID]; ok {
		return &snap
	}
	return nil
}

// persist saves a refresh cycle in the background so the loop never
// waits on the database.
func (c *Controller) persist(now time.Time, snapshots map[string]domain.TrafficSnapshot, stats domain.SystemStats) {
	if c.repo == nil {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.SaveSnapshots(ctx, now, snapshots); err != nil {
			c.log.Warn("failed to save snapshots", "error", err)
		}
		if err := c.repo.SaveSystemStats(ctx, now, stats); err != nil {
			c.log.Warn("failed to save system stats", "error", err)
		}
	}()
}

func (c *Controller) logRecommendation(pointID string, rec domain.TimingRecommendation) {
	if c.repo == nil {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.SavePredictionLog(ctx, pointID, rec); err != nil {
			c.log.Warn("failed to save prediction log", "point", pointID, "error", err)
		}
	}()
}

// inBackoff reports whether an activity is still cooling down after a
// failure.
func (c *Controller) inBackoff(a *activityHealth, now time.Time) bool {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	return now.Before(a.nextAttempt)
}

// noteActivity updates the failure counters after one activity run.
func (c *Controller) noteActivity(a *activityHealth, now time.Time, err error, name string) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	if err == nil {
		a.consecutiveFailures = 0
		a.lastSuccess = now
		a.lastError = ""
		a.nextAttempt = time.Time{}
		return
	}

	a.consecutiveFailures++
	a.lastError = err.Error()
	a.nextAttempt = now.Add(failureBackoff)
	c.log.Error(name+" failed", "error", err, "consecutive_failures", a.consecutiveFailures)
	if a.consecutiveFailures == degradedThreshold {
		c.log.Error(name+" degraded", "consecutive_failures", a.consecutiveFailures)
	}
}
