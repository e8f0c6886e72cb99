// Package ingest pulls reference data, board snapshots, and bars from the
// market data gateway into Postgres. It runs on the scheduler's clock and is
// the only component that writes to the repository.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

// Gateway is the market data surface the syncer reads from.
type Gateway interface {
	ListBoards(ctx context.Context) ([]model.Symbol, error)
	Snapshot(ctx context.Context, board string) (model.BoardSnapshot, error)
	Bars(ctx context.Context, secID, symbol string, tf model.Timeframe, count int) ([]model.Bar, error)
}

// Repository is the write-side of the store the syncer fills.
type Repository interface {
	UpsertSymbols(ctx context.Context, symbols []model.Symbol) (int, error)
	UpsertBoardSnapshots(ctx context.Context, tradeDate time.Time, snaps []model.BoardSnapshot) (int, error)
	UpsertBars(ctx context.Context, bars []model.Bar) (int, error)
}

type Syncer struct {
	gateway Gateway
	repo    Repository
	cfg     config.RESTConfig
	logger  *zap.Logger
}

func NewSyncer(gateway Gateway, repo Repository, cfg config.RESTConfig, logger *zap.Logger) *Syncer {
	return &Syncer{gateway: gateway, repo: repo, cfg: cfg, logger: logger}
}

// SyncBoardSnapshots fetches the full board universe, stores the reference
// data, fans out per-board snapshot fetches, and upserts the round under
// tradeDate. Partial fetch failures are logged and skipped; only a fully
// failed round is an error.
func (s *Syncer) SyncBoardSnapshots(ctx context.Context, tradeDate time.Time) (int, error) {
	boards, err := s.gateway.ListBoards(ctx)
	if err != nil {
		return 0, fmt.Errorf("list boards: %w", err)
	}
	if len(boards) == 0 {
		return 0, fmt.Errorf("board universe is empty")
	}

	if _, err := s.repo.UpsertSymbols(ctx, boards); err != nil {
		// Reference data is best effort; snapshots are the payload.
		s.logger.Warn("symbol upsert failed", zap.Error(err))
	}

	snaps := s.fetchSnapshots(ctx, boards)
	if len(snaps) == 0 {
		return 0, fmt.Errorf("every board snapshot fetch failed")
	}

	warnDataQuality(snaps, s.logger)

	n, err := s.repo.UpsertBoardSnapshots(ctx, tradeDate, snaps)
	if err != nil {
		return 0, fmt.Errorf("upsert board snapshots: %w", err)
	}
	s.logger.Info("board snapshots synced",
		zap.Int("boards", len(boards)),
		zap.Int("stored", n),
		zap.Time("trade_date", tradeDate))
	return n, nil
}

func (s *Syncer) fetchSnapshots(ctx context.Context, boards []model.Symbol) []model.BoardSnapshot {
	maxConcurrent := s.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	sem := make(chan struct{}, maxConcurrent)

	var mu sync.Mutex
	snaps := make([]model.BoardSnapshot, 0, len(boards))

	var wg sync.WaitGroup
	for _, b := range boards {
		b := b
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
			snap, err := s.gateway.Snapshot(callCtx, b.Code)
			cancel()
			if err != nil {
				s.logger.Warn("snapshot fetch failed",
					zap.String("board", b.Code), zap.Error(err))
				return
			}

			mu.Lock()
			snaps = append(snaps, snap)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return snaps
}

// SyncBars backfills bars for a set of symbols. count bounds how many bars
// per symbol are requested; the upsert makes re-runs idempotent.
func (s *Syncer) SyncBars(ctx context.Context, symbols []model.Symbol, tf model.Timeframe, count int) (int, error) {
	total := 0
	failed := 0
	for _, sym := range symbols {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		bars, err := s.gateway.Bars(callCtx, secID(sym), sym.Code, tf, count)
		cancel()
		if err != nil {
			failed++
			s.logger.Warn("bar fetch failed",
				zap.String("symbol", sym.Code), zap.Error(err))
			continue
		}

		n, err := s.repo.UpsertBars(ctx, bars)
		if err != nil {
			failed++
			s.logger.Warn("bar upsert failed",
				zap.String("symbol", sym.Code), zap.Error(err))
			continue
		}
		total += n
	}

	if len(symbols) > 0 && failed == len(symbols) {
		return 0, fmt.Errorf("bar sync failed for all %d symbols", failed)
	}
	s.logger.Info("bars synced",
		zap.String("timeframe", string(tf)),
		zap.Int("symbols", len(symbols)-failed),
		zap.Int("bars", total))
	return total, nil
}

// secID maps a symbol to the gateway's market-prefixed identifier. Boards
// live on market 90; Shanghai stocks (6xxxxx) on 1, everything else on 0.
func secID(sym model.Symbol) string {
	switch sym.Kind {
	case model.KindConceptBoard, model.KindIndustryBoard:
		return "90." + sym.Code
	case model.KindIndex:
		return "1." + sym.Code
	}
	if len(sym.Code) > 0 && sym.Code[0] == '6' {
		return "1." + sym.Code
	}
	return "0." + sym.Code
}

// warnDataQuality flags snapshot rounds that look wrong before they are
// stored: all-zero change percentages usually mean the vendor served a
// pre-open or stale page.
func warnDataQuality(snaps []model.BoardSnapshot, logger *zap.Logger) {
	zeroChange := 0
	for _, s := range snaps {
		if s.ChangePct == 0 {
			zeroChange++
		}
	}
	if zeroChange == len(snaps) {
		logger.Warn("all board snapshots report zero change, round may be stale",
			zap.Int("boards", len(snaps)))
	} else if zeroChange > len(snaps)/2 {
		logger.Warn("over half of board snapshots report zero change",
			zap.Int("zero", zeroChange), zap.Int("boards", len(snaps)))
	}
}
