// Package schedule drives the scan loop and the daily ingest on the exchange
// clock. Cron jobs gate a plain ticker: the ticker only fires while a market
// session is open.
package schedule

import (
	"context"
	"sync"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Mainland A-share sessions, local exchange time.
const (
	cronMorningOpen    = "0 30 9 * * 1-5"
	cronMorningClose   = "0 30 11 * * 1-5"
	cronAfternoonOpen  = "0 0 13 * * 1-5"
	cronAfternoonClose = "0 0 15 * * 1-5"
	cronDailyIngest    = "0 30 15 * * 1-5"
)

// Ticker is the scan entry point the scheduler drives.
type Ticker interface {
	Tick(ctx context.Context) ([]model.Transition, error)
}

// Ingester is the after-close sync the scheduler runs once per trading day.
type Ingester interface {
	SyncBoardSnapshots(ctx context.Context, tradeDate time.Time) (int, error)
}

type Scheduler struct {
	cfg      config.ScanConfig
	detector Ticker
	ingester Ingester
	logger   *zap.Logger

	cron *cron.Cron
	loc  *time.Location

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(cfg config.ScanConfig, detector Ticker, ingester Ingester, logger *zap.Logger) *Scheduler {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		loc = time.Local
	}
	return &Scheduler{
		cfg:      cfg,
		detector: detector,
		ingester: ingester,
		logger:   logger,
		loc:      loc,
	}
}

// Start registers the session jobs and begins the cron loop. If started
// mid-session the scan loop kicks in immediately rather than waiting for the
// next session-open cron fire.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(s.loc),
	)

	for _, spec := range []string{cronMorningOpen, cronAfternoonOpen} {
		if _, err := s.cron.AddFunc(spec, func() { s.startScanLoop(ctx) }); err != nil {
			return err
		}
	}
	for _, spec := range []string{cronMorningClose, cronAfternoonClose} {
		if _, err := s.cron.AddFunc(spec, s.stopScanLoop); err != nil {
			return err
		}
	}
	if s.ingester != nil {
		if _, err := s.cron.AddFunc(cronDailyIngest, func() { s.runIngest(ctx) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.Int("scan_interval_seconds", s.cfg.IntervalSeconds))

	if s.inSession(time.Now().In(s.loc)) {
		s.startScanLoop(ctx)
	}
	return nil
}

// Stop halts the cron loop and any running scan ticker. Blocks until the
// cron runner has drained.
func (s *Scheduler) Stop() {
	s.stopScanLoop()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) startScanLoop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return // already in session
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.logger.Info("market session open, scan loop started")

	go func() {
		interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// First scan right away; the ticker covers the rest.
		s.scanOnce(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.scanOnce(loopCtx)
			}
		}
	}()
}

func (s *Scheduler) stopScanLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.logger.Info("market session closed, scan loop stopped")
}

func (s *Scheduler) scanOnce(ctx context.Context) {
	if _, err := s.detector.Tick(ctx); err != nil {
		s.logger.Warn("scheduled scan failed", zap.Error(err))
	}
}

func (s *Scheduler) runIngest(ctx context.Context) {
	tradeDate := tradeDateOf(time.Now().In(s.loc))
	if _, err := s.ingester.SyncBoardSnapshots(ctx, tradeDate); err != nil {
		s.logger.Error("daily ingest failed", zap.Error(err))
	}
}

// inSession reports whether t falls inside a trading session. Weekends are
// out; exchange holidays are not tracked, the scan just sees a quiet market.
func (s *Scheduler) inSession(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	morning := mins >= 9*60+30 && mins < 11*60+30
	afternoon := mins >= 13*60 && mins < 15*60
	return morning || afternoon
}

func tradeDateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
