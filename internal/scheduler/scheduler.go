// Package scheduler drives a fixed roster of harvesters on a cadence.
//
// The scheduler is a three-state machine: Idle while computing the next fire
// time, Running while iterating the roster for one window, Sleeping while
// blocked until the next fire time. Harvesters run sequentially; a failure in
// one aborts only that harvester's contribution to the pass. Loop-level
// failures are logged and absorbed with a fixed backoff; only context
// cancellation terminates the loop.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regwatch/docharvest/internal/harvest"
	"github.com/regwatch/docharvest/internal/metrics"
)

// Mode selects the firing cadence.
type Mode int

const (
	// ModeOnce performs a single Running pass and returns.
	ModeOnce Mode = iota
	// ModeHourly fires at every hour boundary. Intended for testing and
	// high-frequency operation.
	ModeHourly
	// ModeWeekly fires at a configured weekday, hour and minute, recomputed
	// each cycle to tolerate clock drift and daylight-saving shifts.
	ModeWeekly
)

// State is the scheduler's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSleeping
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	default:
		return "idle"
	}
}

// Store is the persistence surface the scheduler owns and hands to
// harvesters.
type Store interface {
	harvest.Store
	harvest.RecordSink
}

// RunLoggerFunc builds a logger scoped to one Running pass. The returned
// close function is called when the pass finishes.
type RunLoggerFunc func(now time.Time) (*zap.Logger, func(), error)

// Config controls scheduling behavior.
type Config struct {
	Mode       Mode
	WindowDays int
	Weekday    time.Weekday
	Hour       int
	Minute     int
	// Backoff is slept after a loop-level failure before the next fire time
	// is recomputed. Zero means the 60s default.
	Backoff time.Duration
}

// HarvesterReport is the outcome of one harvester within a pass.
type HarvesterReport struct {
	Source  string
	Saved   int
	Err     error
	Elapsed time.Duration
}

// Report summarizes one Running pass.
type Report struct {
	RunID       string
	WindowStart time.Time
	WindowEnd   time.Time
	Harvesters  []HarvesterReport
	TotalNew    int
	Elapsed     time.Duration
}

// Scheduler owns the roster for its lifetime and supervises its execution.
type Scheduler struct {
	cfg       Config
	roster    []harvest.Harvester
	store     Store
	clock     harvest.Clock
	logger    *zap.Logger
	runLogger RunLoggerFunc
	state     atomic.Int32
}

// New constructs a Scheduler. The roster is fixed for the scheduler's
// lifetime. runLogger may be nil, in which case the base logger serves every
// pass.
func New(
	cfg Config,
	roster []harvest.Harvester,
	store Store,
	clock harvest.Clock,
	logger *zap.Logger,
	runLogger RunLoggerFunc,
) *Scheduler {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		roster:    roster,
		store:     store,
		clock:     clock,
		logger:    logger,
		runLogger: runLogger,
	}
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Run executes the scheduling loop until the context is canceled. In
// run-once mode it performs a single pass and returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.Mode == ModeOnce {
		s.RunOnce(ctx)
		return nil
	}

	if s.cfg.Mode == ModeHourly {
		s.logger.Warn("running in hourly test mode")
	} else {
		s.logger.Info("weekly mode",
			zap.Stringer("weekday", s.cfg.Weekday),
			zap.Int("hour", s.cfg.Hour),
			zap.Int("minute", s.cfg.Minute),
		)
	}

	for {
		s.setState(StateIdle)
		fireAt := s.nextFire(s.clock.Now())
		s.logger.Info("next run scheduled", zap.Time("at", fireAt))

		s.setState(StateSleeping)
		if err := s.sleepUntil(ctx, fireAt); err != nil {
			s.logger.Warn("stopped by operator")
			return err
		}

		if err := s.pass(ctx); err != nil {
			// Loop-level failure: log, back off, keep the process alive.
			s.logger.Error("run loop failed", zap.Error(err))
			metrics.ObserveRun("failed", 0)
			s.setState(StateSleeping)
			if serr := s.sleepFor(ctx, s.cfg.Backoff); serr != nil {
				s.logger.Warn("stopped by operator")
				return serr
			}
		}
	}
}

func (s *Scheduler) nextFire(now time.Time) time.Time {
	if s.cfg.Mode == ModeHourly {
		return NextHourBoundary(now)
	}
	return NextWeekly(now, s.cfg.Weekday, s.cfg.Hour, s.cfg.Minute)
}

// pass executes one Running pass, recovering any escape from RunOnce.
func (s *Scheduler) pass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run pass panicked: %v", r)
		}
	}()
	s.RunOnce(ctx)
	return nil
}

// RunOnce performs a single Running pass over the roster and returns its
// report. Per-harvester failures are contained; the pass always completes.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	s.setState(StateRunning)
	defer s.setState(StateIdle)

	started := s.clock.Now()
	end := started
	start := end.AddDate(0, 0, -s.cfg.WindowDays)

	runID := uuid.NewString()
	logger, closeLog := s.passLogger(started)
	defer closeLog()
	logger = logger.With(zap.String("run_id", runID))

	logger.Info("window opened",
		zap.String("start", harvest.ISODate(start)),
		zap.String("end", harvest.ISODate(end)),
	)

	report := Report{RunID: runID, WindowStart: start, WindowEnd: end}
	for _, h := range s.roster {
		if ctx.Err() != nil {
			logger.Warn("pass interrupted", zap.Error(ctx.Err()))
			break
		}
		report.Harvesters = append(report.Harvesters, s.runHarvester(ctx, logger, h, start, end))
	}

	for _, hr := range report.Harvesters {
		report.TotalNew += hr.Saved
	}
	report.Elapsed = s.clock.Now().Sub(started)

	logger.Info("run finished",
		zap.Int("total_new", report.TotalNew),
		zap.Duration("elapsed", report.Elapsed),
	)
	metrics.ObserveRun("ok", report.Elapsed)
	return report
}

func (s *Scheduler) passLogger(now time.Time) (*zap.Logger, func()) {
	if s.runLogger == nil {
		return s.logger, func() {}
	}
	logger, closeFn, err := s.runLogger(now)
	if err != nil {
		s.logger.Warn("per-run logger unavailable, using base logger", zap.Error(err))
		return s.logger, func() {}
	}
	return logger, closeFn
}

// runHarvester drives one harvester inside the failure boundary. Fetch
// failures (including panics) abort only this harvester; persistence
// failures abort only the offending record.
func (s *Scheduler) runHarvester(
	ctx context.Context,
	logger *zap.Logger,
	h harvest.Harvester,
	start, end time.Time,
) HarvesterReport {
	name := h.Name()
	begun := s.clock.Now()
	logger.Info("harvester started", zap.String("source", name))

	records, err := s.fetchRange(ctx, h, start, end)
	if err != nil {
		elapsed := s.clock.Now().Sub(begun)
		logger.Error("harvester crashed in fetch",
			zap.String("source", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		metrics.ObserveHarvester(name, 0, true, elapsed)
		return HarvesterReport{Source: name, Err: err, Elapsed: elapsed}
	}

	saved := 0
	for _, rec := range records {
		if err := s.store.PutRecord(rec); err != nil {
			logger.Error("record save failed",
				zap.String("source", name),
				zap.String("doc_id", rec.DocID),
				zap.Error(err),
			)
			metrics.ObserveRecordFailure(name)
			continue
		}
		saved++
	}

	elapsed := s.clock.Now().Sub(begun)
	logger.Info("harvester finished",
		zap.String("source", name),
		zap.Int("new", saved),
		zap.Duration("elapsed", elapsed),
	)
	metrics.ObserveHarvester(name, saved, false, elapsed)
	return HarvesterReport{Source: name, Saved: saved, Elapsed: elapsed}
}

// fetchRange invokes the harvester, converting a panic into an error so one
// misbehaving source cannot take down the pass.
func (s *Scheduler) fetchRange(
	ctx context.Context,
	h harvest.Harvester,
	start, end time.Time,
) (records []harvest.DocumentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("harvester %s panicked: %v", h.Name(), r)
		}
	}()
	records, err = h.FetchRange(ctx, start, end, s.store)
	if err != nil {
		return nil, fmt.Errorf("fetch range: %w", err)
	}
	return records, nil
}

func (s *Scheduler) sleepUntil(ctx context.Context, at time.Time) error {
	return s.sleepFor(ctx, at.Sub(s.clock.Now()))
}

func (s *Scheduler) sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
