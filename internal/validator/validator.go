// Package validator cross-checks the three price sources for a symbol after
// market close: realtime quote, daily close, and 30-minute close.
package validator

import (
	"context"
	"math"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

const epsilon = 1e-9

// QuoteSource supplies the latest realtime quote per symbol.
type QuoteSource interface {
	Latest(symbol string) (model.RealtimeQuote, bool)
}

// BarSource supplies the newest bar per (symbol, timeframe).
type BarSource interface {
	FindLatestBar(ctx context.Context, symbol string, tf model.Timeframe) (*model.Bar, error)
}

// SymbolSource supplies reference data for tolerance selection.
type SymbolSource interface {
	FindSymbol(ctx context.Context, code string) (*model.Symbol, error)
}

// Report is the result of one validation run.
type Report struct {
	AllHealthy bool
	Verdicts   []model.ConsistencyVerdict
}

type Validator struct {
	cfg     config.ConsistencyConfig
	quotes  QuoteSource
	bars    BarSource
	symbols SymbolSource
	logger  *zap.Logger
}

func New(cfg config.ConsistencyConfig, quotes QuoteSource, bars BarSource, symbols SymbolSource, logger *zap.Logger) *Validator {
	return &Validator{
		cfg:     cfg,
		quotes:  quotes,
		bars:    bars,
		symbols: symbols,
		logger:  logger,
	}
}

// Validate produces one verdict per symbol. The run is read-only and safe to
// invoke concurrently; one symbol's failure never aborts the others.
func (v *Validator) Validate(ctx context.Context, symbols []string, tradeDate time.Time) Report {
	report := Report{AllHealthy: true}

	for _, sym := range symbols {
		verdict := v.validateOne(ctx, sym, tradeDate)
		if verdict.Err != "" || !verdict.Healthy {
			report.AllHealthy = false
		}
		report.Verdicts = append(report.Verdicts, verdict)
	}
	return report
}

func (v *Validator) validateOne(ctx context.Context, symbol string, tradeDate time.Time) model.ConsistencyVerdict {
	verdict := model.ConsistencyVerdict{Symbol: symbol}
	verdict.Tolerance = v.toleranceFor(ctx, symbol)

	quote, hasQuote := v.quotes.Latest(symbol)

	dayBar, err := v.bars.FindLatestBar(ctx, symbol, model.TimeframeDay)
	if err != nil {
		v.logger.Warn("day bar fetch failed", zap.String("symbol", symbol), zap.Error(err))
		verdict.Err = err.Error()
		return verdict
	}
	if dayBar != nil && !sameTradeDate(dayBar.Timestamp, tradeDate) {
		dayBar = nil // stale bar is as good as missing
	}

	// Realtime and day close are mandatory; a symbol lacking either is
	// reported, never silently passed.
	if !hasQuote || dayBar == nil {
		verdict.Err = model.ErrInsufficientData.Error()
		return verdict
	}
	verdict.RealtimePrice = quote.Price
	verdict.DayClose = dayBar.Close

	// Some symbols (certain indices) have no 30-minute bars; they are
	// validated on realtime vs day close only.
	min30Bar, err := v.bars.FindLatestBar(ctx, symbol, model.TimeframeMin30)
	if err != nil {
		v.logger.Warn("min30 bar fetch failed", zap.String("symbol", symbol), zap.Error(err))
		min30Bar = nil
	}
	if min30Bar != nil && !sameTradeDate(min30Bar.Timestamp, tradeDate) {
		min30Bar = nil
	}

	maxDev := relativeDeviation(quote.Price, dayBar.Close)
	if min30Bar != nil {
		verdict.HasMin30 = true
		verdict.Min30Close = min30Bar.Close
		maxDev = math.Max(maxDev, relativeDeviation(quote.Price, min30Bar.Close))
		maxDev = math.Max(maxDev, relativeDeviation(dayBar.Close, min30Bar.Close))
	}

	verdict.MaxDeviation = maxDev * 100 // percent
	verdict.Healthy = verdict.MaxDeviation <= verdict.Tolerance
	return verdict
}

// relativeDeviation is |a-b| / max(|a|, |b|, epsilon).
func relativeDeviation(a, b float64) float64 {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
	return math.Abs(a-b) / denom
}

func (v *Validator) toleranceFor(ctx context.Context, symbol string) float64 {
	sym, err := v.symbols.FindSymbol(ctx, symbol)
	if err != nil || sym == nil {
		return v.cfg.TolerancePct
	}
	return v.cfg.ToleranceFor(string(sym.Kind))
}

func sameTradeDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
