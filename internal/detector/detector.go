// Package detector runs the momentum scan loop: one cycle fetches every
// board's snapshot, scores the round, advances each board's state machine,
// and atomically publishes the full updated state map.
package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

// ErrSuspended is returned by Tick after maxConsecutiveErrors failed cycles.
// Only an explicit Resume clears it.
var ErrSuspended = errors.New("detector suspended")

// SnapshotSource supplies the board universe and per-board snapshots.
type SnapshotSource interface {
	ListBoards(ctx context.Context) ([]model.Symbol, error)
	Snapshot(ctx context.Context, board string) (model.BoardSnapshot, error)
}

// State is one fully-published cycle result. Readers receive the pointer and
// must treat it as immutable; the scan loop never mutates a published State.
type State struct {
	Signals   map[string]model.MomentumSignal
	Snapshots map[string]model.BoardSnapshot
	Health    model.DetectorHealth
	UpdatedAt time.Time
}

type Detector struct {
	cfg    config.ScanConfig
	source SnapshotSource
	logger *zap.Logger

	callTimeout time.Duration

	state     atomic.Pointer[State]
	running   atomic.Bool
	suspended atomic.Bool
	errCount  atomic.Int32
}

func New(cfg config.ScanConfig, source SnapshotSource, callTimeout time.Duration, logger *zap.Logger) *Detector {
	d := &Detector{
		cfg:         cfg,
		source:      source,
		callTimeout: callTimeout,
		logger:      logger,
	}
	d.state.Store(&State{
		Signals:   map[string]model.MomentumSignal{},
		Snapshots: map[string]model.BoardSnapshot{},
		Health:    model.HealthRunning,
		UpdatedAt: time.Now(),
	})
	return d
}

// CurrentState returns the last fully-published cycle. Never nil.
func (d *Detector) CurrentState() *State {
	return d.state.Load()
}

// Health reports the detector's liveness without touching the state map.
func (d *Detector) Health() model.DetectorHealth {
	if d.suspended.Load() {
		return model.HealthSuspended
	}
	return model.HealthRunning
}

// Resume clears the Suspended state and the consecutive-error counter. This
// is the only way back from suspension; the detector never resumes itself.
func (d *Detector) Resume() {
	if !d.suspended.Swap(false) {
		return
	}
	d.errCount.Store(0)
	d.publish(d.CurrentState().Signals, d.CurrentState().Snapshots)
	d.logger.Info("detector resumed")
}

// TriggerRescan schedules one extra cycle outside the normal interval and
// returns immediately.
func (d *Detector) TriggerRescan(ctx context.Context) {
	go func() {
		if _, err := d.Tick(ctx); err != nil {
			d.logger.Warn("manual rescan failed", zap.Error(err))
		}
	}()
}

// Tick runs one scan cycle. Overlapping ticks are skipped, not queued, so
// every cycle sees a single consistent snapshot round. The returned
// transitions include internal ones; callers filter with UserFacing.
func (d *Detector) Tick(ctx context.Context) ([]model.Transition, error) {
	if d.suspended.Load() {
		return nil, ErrSuspended
	}
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("previous scan cycle still running, skipping tick")
		return nil, nil
	}
	defer d.running.Store(false)

	boards, err := d.listBoards(ctx)
	if err != nil {
		d.recordCycleFailure(err)
		return nil, err
	}
	if len(boards) == 0 {
		d.logger.Warn("board universe is empty, nothing to scan")
		return nil, nil
	}

	snaps := d.fetchSnapshots(ctx, boards)
	if len(snaps) == 0 {
		err := errors.New("every board snapshot fetch failed")
		d.recordCycleFailure(err)
		return nil, err
	}
	d.errCount.Store(0)

	transitions := d.advanceAll(boards, snaps)
	return transitions, nil
}

func (d *Detector) listBoards(ctx context.Context) ([]model.Symbol, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.source.ListBoards(callCtx)
}

// fetchSnapshots fans out per-board fetches with bounded concurrency. The
// gateway is the bottleneck; the semaphore keeps us under its rate limits.
func (d *Detector) fetchSnapshots(ctx context.Context, boards []model.Symbol) map[string]model.BoardSnapshot {
	const maxConcurrent = 5
	sem := make(chan struct{}, maxConcurrent)

	var mu sync.Mutex
	snaps := make(map[string]model.BoardSnapshot, len(boards))

	var wg sync.WaitGroup
	for _, b := range boards {
		b := b
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
			snap, err := d.source.Snapshot(callCtx, b.Code)
			cancel()
			if err != nil {
				// Timeout and fetch failure are the same thing here: the
				// board just doesn't advance this cycle.
				d.logger.Warn("snapshot fetch failed",
					zap.String("board", b.Code), zap.Error(err))
				return
			}

			mu.Lock()
			snaps[b.Code] = snap
			mu.Unlock()
		}()
	}
	wg.Wait()

	return snaps
}

// advanceAll computes the round's scores, advances every fetched board's
// state machine against the same round, and publishes the result as a whole.
func (d *Detector) advanceAll(boards []model.Symbol, snaps map[string]model.BoardSnapshot) []model.Transition {
	round := make([]model.BoardSnapshot, 0, len(snaps))
	for _, s := range snaps {
		round = append(round, s)
	}
	scores := computeScores(round, d.cfg.Weights)

	th := thresholds{
		enter:    d.cfg.EnterScore,
		exit:     d.cfg.ExitScore,
		confirm:  d.cfg.ConfirmCount,
		fade:     d.cfg.FadeCount,
		cooldown: d.cfg.CooldownPolls,
	}

	prev := d.CurrentState()
	now := time.Now()

	next := make(map[string]model.MomentumSignal, len(prev.Signals)+len(snaps))
	for code, sig := range prev.Signals {
		next[code] = sig
	}

	var transitions []model.Transition
	for _, b := range boards {
		snap, fetched := snaps[b.Code]
		if !fetched {
			continue // keeps its previous state untouched
		}

		sig, ok := next[b.Code]
		if !ok {
			// Lazily created on first observation.
			sig = model.MomentumSignal{
				Board: b.Code,
				Name:  snap.Name,
				State: model.StateIdle,
			}
		}

		if tr := advance(&sig, scores[b.Code], now, th); tr != nil {
			transitions = append(transitions, *tr)
			if tr.UserFacing() {
				d.logger.Info("momentum signal confirmed",
					zap.String("board", b.Code),
					zap.String("name", sig.Name),
					zap.Float64("score", tr.Score))
			} else {
				d.logger.Debug("momentum state transition",
					zap.String("board", b.Code),
					zap.String("from", string(tr.From)),
					zap.String("to", string(tr.To)))
			}
		}
		next[b.Code] = sig
	}

	d.publish(next, snaps)
	return transitions
}

// publish atomically replaces the whole state map. Readers see either the
// previous cycle or this one, never an interleaving.
func (d *Detector) publish(signals map[string]model.MomentumSignal, snaps map[string]model.BoardSnapshot) {
	d.state.Store(&State{
		Signals:   signals,
		Snapshots: snaps,
		Health:    d.Health(),
		UpdatedAt: time.Now(),
	})
}

func (d *Detector) recordCycleFailure(err error) {
	count := d.errCount.Add(1)
	d.logger.Error("scan cycle failed",
		zap.Int32("consecutive_errors", count), zap.Error(err))

	if int(count) >= d.cfg.MaxConsecutiveErrors && !d.suspended.Swap(true) {
		d.logger.Error("detector suspended after consecutive failures",
			zap.Int("max", d.cfg.MaxConsecutiveErrors))
		d.publish(d.CurrentState().Signals, d.CurrentState().Snapshots)
	}
}
