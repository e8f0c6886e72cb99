package postgres

import (
	"errors"
	"testing"
	"time"

	"signalcore/internal/model"
)

func roe(v float64) *float64 { return &v }

func TestLatestPeerIndicators(t *testing.T) {
	tickers := []string{"600519", "000858", "600702"}
	// Rows arrive newest first, mixed across tickers.
	recs := []FinancialIndicatorRecord{
		{Ticker: "600519", PeriodEnd: date(2025, 3, 31), ROE: roe(30.0)},
		{Ticker: "000858", PeriodEnd: date(2025, 3, 31), ROE: roe(28.0)},
		{Ticker: "600519", PeriodEnd: date(2024, 12, 31), ROE: roe(34.0)}, // older, must lose
		{Ticker: "000858", PeriodEnd: date(2024, 12, 31), ROE: nil},
	}

	peers := latestPeerIndicators(tickers, recs)
	if len(peers) != 3 {
		t.Fatalf("got %d peers, want 3 (every ticker represented)", len(peers))
	}

	// Sorted by ticker.
	if peers[0].Ticker != "000858" || peers[1].Ticker != "600519" || peers[2].Ticker != "600702" {
		t.Fatalf("peer order wrong: %+v", peers)
	}
	if *peers[0].ROE != 28.0 {
		t.Errorf("000858 ROE = %.1f, want latest 28.0", *peers[0].ROE)
	}
	if *peers[1].ROE != 30.0 {
		t.Errorf("600519 ROE = %.1f, want latest 30.0, not the older period", *peers[1].ROE)
	}
	// No indicator rows at all: present with nil metric, not dropped.
	if peers[2].ROE != nil {
		t.Errorf("600702 ROE = %v, want nil", peers[2].ROE)
	}
}

func TestLatestPeerIndicatorsEmpty(t *testing.T) {
	peers := latestPeerIndicators(nil, nil)
	if len(peers) != 0 {
		t.Fatalf("got %d peers, want 0", len(peers))
	}

	peers = latestPeerIndicators([]string{"600519"}, nil)
	if len(peers) != 1 || peers[0].ROE != nil {
		t.Fatalf("ticker without rows: %+v, want single nil-metric peer", peers)
	}
}

func TestReadErrMapping(t *testing.T) {
	if err := readErr("op", nil); err != nil {
		t.Errorf("nil error mapped to %v", err)
	}
	// Mapped errors must carry the repository sentinel for errors.Is checks.
	err := readErr("op", errors.New("dial timeout"))
	if err == nil {
		t.Fatal("real error swallowed")
	}
	if !errors.Is(err, model.ErrRepositoryUnavailable) {
		t.Errorf("err = %v does not wrap ErrRepositoryUnavailable", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
