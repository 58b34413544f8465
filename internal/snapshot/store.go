// Package snapshot holds the single live scan result set and keeps its
// durable copy in step.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"PivotScreener/internal/logger"
	"PivotScreener/internal/model"
)

// Persister is the durable backing for the live snapshot.
type Persister interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Save(ctx context.Context, snap *model.Snapshot) error
	Name() string
}

// Store serves lock-free reads of the current snapshot. Writers are
// serialized; a reader always sees a whole snapshot, old or new.
type Store struct {
	current   atomic.Pointer[model.Snapshot]
	writeMu   sync.Mutex
	persister Persister
	dirty     atomic.Bool
	log       *zap.Logger
}

// Open creates a Store seeded from the persister. A missing or unreadable
// record starts the store empty rather than failing startup.
func Open(ctx context.Context, p Persister, l *zap.Logger) *Store {
	s := &Store{persister: p, log: logger.OrDefault(l).Named("snapshot")}

	snap, err := p.Load(ctx)
	switch {
	case err != nil:
		s.log.Warn("load snapshot failed, starting empty",
			zap.String("backend", p.Name()), zap.Error(err))
		snap = model.EmptySnapshot()
	case snap == nil:
		snap = model.EmptySnapshot()
	default:
		s.log.Info("snapshot restored",
			zap.String("backend", p.Name()),
			zap.Int("breakouts", len(snap.Breakouts)),
			zap.Int("breakdowns", len(snap.Breakdowns)),
			zap.Time("updated_at", snap.UpdatedAt))
	}
	s.current.Store(normalize(snap))
	return s
}

// Read returns the last committed snapshot. It never returns nil and never
// blocks on a writer. Callers must not modify the result.
func (s *Store) Read() *model.Snapshot {
	return s.current.Load()
}

// Replace swaps in snap and writes it durably. The in-memory swap stands even
// when the durable write fails; the store is then marked dirty until the next
// successful Replace.
func (s *Store) Replace(ctx context.Context, snap *model.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("replace with nil snapshot")
	}
	snap = normalize(snap)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.current.Store(snap)

	if err := s.persister.Save(ctx, snap); err != nil {
		s.dirty.Store(true)
		return fmt.Errorf("%w: %s: %w", model.ErrPersistence, s.persister.Name(), err)
	}
	if s.dirty.Swap(false) {
		s.log.Info("durable snapshot back in sync", zap.String("backend", s.persister.Name()))
	}
	return nil
}

// Dirty reports whether the durable copy lags the in-memory snapshot.
func (s *Store) Dirty() bool {
	return s.dirty.Load()
}

func normalize(snap *model.Snapshot) *model.Snapshot {
	if snap.Breakouts != nil && snap.Breakdowns != nil {
		return snap
	}
	cp := *snap
	if cp.Breakouts == nil {
		cp.Breakouts = []model.ScanResult{}
	}
	if cp.Breakdowns == nil {
		cp.Breakdowns = []model.ScanResult{}
	}
	return &cp
}
