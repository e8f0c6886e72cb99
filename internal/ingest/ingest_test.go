package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

type fakeGateway struct {
	mu      sync.Mutex
	boards  []model.Symbol
	snaps   map[string]model.BoardSnapshot
	bars    map[string][]model.Bar
	listErr error
	snapErr error
	barErr  map[string]error
}

func (f *fakeGateway) ListBoards(ctx context.Context) ([]model.Symbol, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.boards, nil
}

func (f *fakeGateway) Snapshot(ctx context.Context, board string) (model.BoardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return model.BoardSnapshot{}, f.snapErr
	}
	snap, ok := f.snaps[board]
	if !ok {
		return model.BoardSnapshot{}, errors.New("unknown board")
	}
	return snap, nil
}

func (f *fakeGateway) Bars(ctx context.Context, secID, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	if err := f.barErr[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

type fakeRepo struct {
	mu        sync.Mutex
	symbols   []model.Symbol
	snaps     []model.BoardSnapshot
	bars      []model.Bar
	tradeDate time.Time
	upsertErr error
}

func (f *fakeRepo) UpsertSymbols(ctx context.Context, symbols []model.Symbol) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = symbols
	return len(symbols), nil
}

func (f *fakeRepo) UpsertBoardSnapshots(ctx context.Context, tradeDate time.Time, snaps []model.BoardSnapshot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.tradeDate = tradeDate
	f.snaps = snaps
	return len(snaps), nil
}

func (f *fakeRepo) UpsertBars(ctx context.Context, bars []model.Bar) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, bars...)
	return len(bars), nil
}

func testRESTConfig() config.RESTConfig {
	return config.RESTConfig{Timeout: time.Second, MaxConcurrent: 3}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		boards: []model.Symbol{
			{Code: "BK1", Name: "a", Kind: model.KindConceptBoard},
			{Code: "BK2", Name: "b", Kind: model.KindIndustryBoard},
		},
		snaps: map[string]model.BoardSnapshot{
			"BK1": {Board: "BK1", Name: "a", ChangePct: 2.0},
			"BK2": {Board: "BK2", Name: "b", ChangePct: -1.0},
		},
	}
}

// go test -v --run TestSyncBoardSnapshots
func TestSyncBoardSnapshots(t *testing.T) {
	gateway := newFakeGateway()
	repo := &fakeRepo{}
	s := NewSyncer(gateway, repo, testRESTConfig(), zap.NewNop())

	tradeDate := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	n, err := s.SyncBoardSnapshots(context.Background(), tradeDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("stored %d snapshots, want 2", n)
	}
	if len(repo.symbols) != 2 {
		t.Errorf("stored %d symbols, want 2", len(repo.symbols))
	}
	if !repo.tradeDate.Equal(tradeDate) {
		t.Errorf("trade date = %v, want %v", repo.tradeDate, tradeDate)
	}
}

func TestSyncBoardSnapshotsPartialFailure(t *testing.T) {
	gateway := newFakeGateway()
	delete(gateway.snaps, "BK2")
	repo := &fakeRepo{}
	s := NewSyncer(gateway, repo, testRESTConfig(), zap.NewNop())

	n, err := s.SyncBoardSnapshots(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("partial failure must not fail the sync: %v", err)
	}
	if n != 1 {
		t.Errorf("stored %d snapshots, want 1", n)
	}
}

func TestSyncBoardSnapshotsTotalFailure(t *testing.T) {
	gateway := newFakeGateway()
	gateway.snapErr = errors.New("throttled")
	s := NewSyncer(gateway, &fakeRepo{}, testRESTConfig(), zap.NewNop())

	if _, err := s.SyncBoardSnapshots(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error when every snapshot fails")
	}

	gateway = newFakeGateway()
	gateway.listErr = errors.New("gateway down")
	s = NewSyncer(gateway, &fakeRepo{}, testRESTConfig(), zap.NewNop())
	if _, err := s.SyncBoardSnapshots(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error when board listing fails")
	}
}

func TestSyncBars(t *testing.T) {
	gateway := newFakeGateway()
	gateway.bars = map[string][]model.Bar{
		"600000": {{Symbol: "600000", Timeframe: model.TimeframeDay, Close: 15.3}},
		"000001": {{Symbol: "000001", Timeframe: model.TimeframeDay, Close: 8.8}},
	}
	gateway.barErr = map[string]error{"300750": errors.New("no data")}
	repo := &fakeRepo{}
	s := NewSyncer(gateway, repo, testRESTConfig(), zap.NewNop())

	symbols := []model.Symbol{
		{Code: "600000", Kind: model.KindStock},
		{Code: "000001", Kind: model.KindStock},
		{Code: "300750", Kind: model.KindStock},
	}
	n, err := s.SyncBars(context.Background(), symbols, model.TimeframeDay, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("stored %d bars, want 2", n)
	}
}

func TestSyncBarsAllFailed(t *testing.T) {
	gateway := newFakeGateway()
	gateway.barErr = map[string]error{"600000": errors.New("no data")}
	s := NewSyncer(gateway, &fakeRepo{}, testRESTConfig(), zap.NewNop())

	_, err := s.SyncBars(context.Background(),
		[]model.Symbol{{Code: "600000", Kind: model.KindStock}},
		model.TimeframeDay, 30)
	if err == nil {
		t.Fatal("expected error when every symbol fails")
	}
}

func TestSecID(t *testing.T) {
	cases := []struct {
		sym  model.Symbol
		want string
	}{
		{model.Symbol{Code: "BK0475", Kind: model.KindConceptBoard}, "90.BK0475"},
		{model.Symbol{Code: "BK0428", Kind: model.KindIndustryBoard}, "90.BK0428"},
		{model.Symbol{Code: "000001", Kind: model.KindIndex}, "1.000001"},
		{model.Symbol{Code: "600519", Kind: model.KindStock}, "1.600519"},
		{model.Symbol{Code: "000858", Kind: model.KindStock}, "0.000858"},
		{model.Symbol{Code: "300750", Kind: model.KindStock}, "0.300750"},
	}
	for _, c := range cases {
		if got := secID(c.sym); got != c.want {
			t.Errorf("secID(%s %s) = %s, want %s", c.sym.Kind, c.sym.Code, got, c.want)
		}
	}
}
