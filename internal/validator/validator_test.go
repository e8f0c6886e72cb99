package validator

import (
	"context"
	"testing"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

type fakeQuotes map[string]model.RealtimeQuote

func (f fakeQuotes) Latest(symbol string) (model.RealtimeQuote, bool) {
	q, ok := f[symbol]
	return q, ok
}

type fakeBars map[string]map[model.Timeframe]model.Bar

func (f fakeBars) FindLatestBar(ctx context.Context, symbol string, tf model.Timeframe) (*model.Bar, error) {
	bar, ok := f[symbol][tf]
	if !ok {
		return nil, nil
	}
	return &bar, nil
}

type fakeSymbols map[string]model.Symbol

func (f fakeSymbols) FindSymbol(ctx context.Context, code string) (*model.Symbol, error) {
	sym, ok := f[code]
	if !ok {
		return nil, nil
	}
	return &sym, nil
}

func testConsistencyConfig() config.ConsistencyConfig {
	return config.ConsistencyConfig{TolerancePct: 0.01}
}

func bar(symbol string, tf model.Timeframe, close float64, at time.Time) model.Bar {
	return model.Bar{Symbol: symbol, Timeframe: tf, Timestamp: at, Close: close}
}

func TestValidateDetectsDisagreement(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	// 15.32 vs 15.30 is a 0.13% relative gap, far over the 0.01% tolerance.
	quotes := fakeQuotes{"600000": {Symbol: "600000", Price: 15.32, ObservedAt: tradeDate}}
	bars := fakeBars{"600000": {
		model.TimeframeDay:   bar("600000", model.TimeframeDay, 15.30, tradeDate),
		model.TimeframeMin30: bar("600000", model.TimeframeMin30, 15.31, tradeDate),
	}}

	v := New(testConsistencyConfig(), quotes, bars, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"600000"}, tradeDate)

	if report.AllHealthy {
		t.Fatal("report healthy despite disagreeing sources")
	}
	verdict := report.Verdicts[0]
	if verdict.Healthy {
		t.Error("verdict healthy despite 0.13% deviation")
	}
	if !verdict.HasMin30 {
		t.Error("min30 close present but not reported")
	}
	if verdict.MaxDeviation <= verdict.Tolerance {
		t.Errorf("max deviation %.4f%% not above tolerance %.4f%%",
			verdict.MaxDeviation, verdict.Tolerance)
	}
}

func TestValidateAgreementWithinTolerance(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	quotes := fakeQuotes{"600000": {Symbol: "600000", Price: 15.3000, ObservedAt: tradeDate}}
	bars := fakeBars{"600000": {
		model.TimeframeDay:   bar("600000", model.TimeframeDay, 15.3000, tradeDate),
		model.TimeframeMin30: bar("600000", model.TimeframeMin30, 15.3001, tradeDate),
	}}

	v := New(testConsistencyConfig(), quotes, bars, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"600000"}, tradeDate)

	if !report.AllHealthy {
		t.Fatalf("report unhealthy for near-identical prices: %+v", report.Verdicts[0])
	}
}

func TestValidateMissingMin30FallsBackToTwoPrices(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	quotes := fakeQuotes{"000001.IDX": {Symbol: "000001.IDX", Price: 3250.00, ObservedAt: tradeDate}}
	bars := fakeBars{"000001.IDX": {
		model.TimeframeDay: bar("000001.IDX", model.TimeframeDay, 3250.00, tradeDate),
	}}

	v := New(testConsistencyConfig(), quotes, bars, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"000001.IDX"}, tradeDate)

	verdict := report.Verdicts[0]
	if verdict.Err != "" {
		t.Fatalf("two-price validation errored: %s", verdict.Err)
	}
	if verdict.HasMin30 {
		t.Error("HasMin30 = true with no 30-minute bar")
	}
	if !verdict.Healthy {
		t.Error("matching realtime and day close should be healthy")
	}
}

func TestValidateInsufficientData(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	// Quote present, day bar missing entirely.
	quotes := fakeQuotes{"600000": {Symbol: "600000", Price: 15.30, ObservedAt: tradeDate}}
	v := New(testConsistencyConfig(), quotes, fakeBars{}, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"600000"}, tradeDate)

	if report.AllHealthy {
		t.Fatal("missing day close must not pass silently")
	}
	if report.Verdicts[0].Err != model.ErrInsufficientData.Error() {
		t.Errorf("verdict err = %q, want insufficient data", report.Verdicts[0].Err)
	}
}

func TestValidateStaleBarTreatedAsMissing(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)
	yesterday := tradeDate.AddDate(0, 0, -1)

	quotes := fakeQuotes{"600000": {Symbol: "600000", Price: 15.30, ObservedAt: tradeDate}}
	bars := fakeBars{"600000": {
		model.TimeframeDay: bar("600000", model.TimeframeDay, 15.30, yesterday),
	}}

	v := New(testConsistencyConfig(), quotes, bars, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"600000"}, tradeDate)

	if report.Verdicts[0].Err != model.ErrInsufficientData.Error() {
		t.Errorf("stale day bar accepted: %+v", report.Verdicts[0])
	}
}

func TestValidateOneFailureDoesNotAbortOthers(t *testing.T) {
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	quotes := fakeQuotes{"600001": {Symbol: "600001", Price: 10.00, ObservedAt: tradeDate}}
	bars := fakeBars{"600001": {
		model.TimeframeDay: bar("600001", model.TimeframeDay, 10.00, tradeDate),
	}}

	v := New(testConsistencyConfig(), quotes, bars, fakeSymbols{}, zap.NewNop())
	report := v.Validate(context.Background(), []string{"600000", "600001"}, tradeDate)

	if len(report.Verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(report.Verdicts))
	}
	if report.Verdicts[0].Err == "" {
		t.Error("symbol with no data should carry an error verdict")
	}
	if !report.Verdicts[1].Healthy {
		t.Error("healthy symbol dragged down by its neighbor")
	}
	if report.AllHealthy {
		t.Error("AllHealthy despite one failed symbol")
	}
}

func TestToleranceOverridePerKind(t *testing.T) {
	cfg := config.ConsistencyConfig{
		TolerancePct:      0.01,
		IndexTolerancePct: 0.05,
	}
	tradeDate := time.Date(2025, 6, 20, 15, 0, 0, 0, time.UTC)

	// 0.02% apart: outside the stock tolerance, inside the index override.
	quotes := fakeQuotes{"000300": {Symbol: "000300", Price: 5000.0, ObservedAt: tradeDate}}
	bars := fakeBars{"000300": {
		model.TimeframeDay: bar("000300", model.TimeframeDay, 5001.0, tradeDate),
	}}
	symbols := fakeSymbols{"000300": {Code: "000300", Kind: model.KindIndex}}

	v := New(cfg, quotes, bars, symbols, zap.NewNop())
	report := v.Validate(context.Background(), []string{"000300"}, tradeDate)

	verdict := report.Verdicts[0]
	if verdict.Tolerance != 0.05 {
		t.Errorf("tolerance = %.3f, want index override 0.05", verdict.Tolerance)
	}
	if !verdict.Healthy {
		t.Errorf("0.02%% deviation should pass the 0.05%% index tolerance: %+v", verdict)
	}
}
