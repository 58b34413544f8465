// Package scanner drives a full screening cycle over the instrument universe.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PivotScreener/internal/collector"
	"PivotScreener/internal/logger"
	"PivotScreener/internal/metrics"
	"PivotScreener/internal/model"
	"PivotScreener/internal/recorder"
	"PivotScreener/internal/snapshot"
	"PivotScreener/internal/strategy"
	"PivotScreener/internal/universe"
)

// Options tunes a Scanner.
type Options struct {
	Suffix            string
	Window            int
	Workers           int
	InstrumentTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.Window < strategy.MinBars {
		o.Window = 10
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.InstrumentTimeout <= 0 {
		o.InstrumentTimeout = 15 * time.Second
	}
}

// Scanner runs scan cycles. At most one cycle is active at a time; a trigger
// that arrives mid-cycle is rejected with model.ErrCycleInProgress.
type Scanner struct {
	Universe universe.Provider
	Fetcher  collector.Fetcher
	Store    *snapshot.Store
	Recorder recorder.Recorder

	opts    Options
	log     *zap.Logger
	running sync.Mutex
	last    atomic.Pointer[model.CycleReport]
	now     func() time.Time
}

// NewScanner creates a Scanner. A nil recorder disables cycle history.
func NewScanner(u universe.Provider, f collector.Fetcher, store *snapshot.Store, rec recorder.Recorder, opts Options, l *zap.Logger) *Scanner {
	opts.withDefaults()
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scanner{
		Universe: u,
		Fetcher:  f,
		Store:    store,
		Recorder: rec,
		opts:     opts,
		log:      logger.OrDefault(l).Named("scanner"),
		now:      time.Now,
	}
}

// LastReport returns the most recent finished cycle, or nil before the first.
func (s *Scanner) LastReport() *model.CycleReport {
	return s.last.Load()
}

// RunCycle performs one full pass: universe, per-instrument evaluation, and a
// snapshot commit when at least one instrument qualified.
func (s *Scanner) RunCycle(ctx context.Context) (*model.CycleReport, error) {
	if !s.running.TryLock() {
		return nil, model.ErrCycleInProgress
	}
	defer s.running.Unlock()

	rep := &model.CycleReport{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	log := s.log.With(zap.String("cycle_id", rep.ID))
	defer s.finish(rep, log)

	log.Info("scan cycle started", zap.String("universe", s.Universe.Name()))

	symbols, err := s.Universe.Fetch(ctx)
	if err == nil && len(symbols) == 0 {
		err = fmt.Errorf("empty universe: %w", model.ErrUniverseUnavailable)
	}
	if err != nil {
		rep.Outcome = model.OutcomeUniverseUnavailable
		log.Warn("universe unavailable, keeping previous snapshot", zap.Error(err))
		return rep, err
	}
	rep.UniverseSize = len(symbols)

	results, skipped := s.evaluateAll(ctx, symbols, log)
	rep.Skipped = skipped
	rep.Evaluated = len(symbols) - skipped

	if err := ctx.Err(); err != nil {
		rep.Outcome = model.OutcomeCancelled
		log.Warn("scan cycle cancelled before commit", zap.Error(err))
		return rep, err
	}

	snap := &model.Snapshot{
		Breakouts:  []model.ScanResult{},
		Breakdowns: []model.ScanResult{},
		CycleID:    rep.ID,
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		switch res.Status {
		case model.Breakout:
			snap.Breakouts = append(snap.Breakouts, *res)
		case model.Breakdown:
			snap.Breakdowns = append(snap.Breakdowns, *res)
		}
	}
	rep.Breakouts = len(snap.Breakouts)
	rep.Breakdowns = len(snap.Breakdowns)

	if snap.Empty() {
		rep.Outcome = model.OutcomeNoSignals
		log.Info("no instrument qualified, keeping previous snapshot")
		return rep, nil
	}

	snap.UpdatedAt = s.now().UTC()
	rep.Committed = true
	if err := s.Store.Replace(ctx, snap); err != nil {
		rep.Outcome = model.OutcomeCommittedUnpersisted
		rep.PersistErr = err.Error()
		metrics.PersistFailures.Inc()
		log.Error("snapshot committed in memory but not persisted", zap.Error(err))
		return rep, err
	}
	rep.Outcome = model.OutcomeCommitted
	return rep, nil
}

// evaluateAll fans the universe out over a bounded pool. Results keep
// universe order; a failing instrument only leaves its own slot empty.
func (s *Scanner) evaluateAll(ctx context.Context, symbols []string, log *zap.Logger) ([]*model.ScanResult, int) {
	results := make([]*model.ScanResult, len(symbols))
	var skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, id := range symbols {
		if ctx.Err() != nil {
			skipped.Add(int64(len(symbols) - i))
			break
		}
		g.Go(func() error {
			res, err := s.evaluate(ctx, id)
			if err != nil {
				skipped.Add(1)
				if errors.Is(err, model.ErrInsufficientHistory) {
					log.Debug("skipping instrument", zap.String("symbol", id), zap.Error(err))
				} else {
					log.Warn("skipping instrument", zap.String("symbol", id), zap.Error(err))
				}
				return nil
			}
			if res != nil {
				log.Info("instrument qualified",
					zap.String("symbol", res.Symbol),
					zap.String("status", string(res.Status)),
					zap.Float64("close", res.LastClose),
					zap.Float64("volume", res.CurrentVolume),
					zap.Float64("avg_volume", res.AvgVolume),
					zap.Float64("r4", res.Upper),
					zap.Float64("s4", res.Lower))
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	return results, int(skipped.Load())
}

func (s *Scanner) evaluate(ctx context.Context, id string) (res *model.ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating %s: %v", id, r)
		}
	}()

	ictx, cancel := context.WithTimeout(ctx, s.opts.InstrumentTimeout)
	defer cancel()

	bars, err := s.Fetcher.FetchDailyBars(ictx, id, s.opts.Window)
	if err != nil {
		return nil, err
	}
	return strategy.Evaluate(universe.DisplaySymbol(id, s.opts.Suffix), bars)
}

func (s *Scanner) finish(rep *model.CycleReport, log *zap.Logger) {
	rep.FinishedAt = s.now().UTC()
	s.last.Store(rep)

	metrics.ScanCycles.WithLabelValues(string(rep.Outcome)).Inc()
	metrics.ScanCycleDuration.Observe(rep.Duration().Seconds())
	metrics.Instruments.WithLabelValues("evaluated").Add(float64(rep.Evaluated))
	metrics.Instruments.WithLabelValues("skipped").Add(float64(rep.Skipped))
	live := s.Store.Read()
	metrics.SetSnapshotSize(len(live.Breakouts), len(live.Breakdowns))

	if err := s.Recorder.RecordCycle(rep); err != nil {
		log.Error("record cycle failed", zap.Error(err))
	}

	log.Info("scan cycle finished",
		zap.String("outcome", string(rep.Outcome)),
		zap.Int("universe", rep.UniverseSize),
		zap.Int("evaluated", rep.Evaluated),
		zap.Int("skipped", rep.Skipped),
		zap.Int("breakouts", rep.Breakouts),
		zap.Int("breakdowns", rep.Breakdowns),
		zap.Duration("took", rep.Duration()))
}
