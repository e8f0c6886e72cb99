// Package analyzer classifies price/fundamental divergence per ticker and
// ranks tickers against their industry peers. Everything here is a pure
// function of repository reads; safe to call concurrently.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"signalcore/config"
	"signalcore/internal/model"

	"go.uber.org/zap"
)

// Trailing trading days defining the 52-week window.
const window52w = 252

// maxIndicatorPeriods bounds how far back the trend inference looks.
const maxIndicatorPeriods = 8

// DataSource is the repository surface the analyzer reads from.
type DataSource interface {
	FindBarsInRange(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error)
	FindFinancialIndicators(ctx context.Context, ticker string, n int) ([]model.FinancialIndicatorPeriod, error)
	FindPeers(ctx context.Context, industry string) ([]model.PeerIndicator, error)
}

type Analyzer struct {
	cfg    config.FundamentalConfig
	source DataSource
	logger *zap.Logger
}

func New(cfg config.FundamentalConfig, source DataSource, logger *zap.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, source: source, logger: logger}
}

// AnalyzeOne classifies one ticker's price/fundamental divergence as of
// tradeDate.
func (a *Analyzer) AnalyzeOne(ctx context.Context, ticker string, currentPrice, priceChangePct float64, tradeDate time.Time) (model.DivergenceAlert, error) {
	alert := model.DivergenceAlert{
		Ticker:     ticker,
		Level:      model.DivergenceNone,
		ComputedAt: time.Now(),
	}

	high52w, err := a.high52w(ctx, ticker, tradeDate)
	if err != nil {
		return alert, err
	}
	alert.PriceVs52wHighRatio = currentPrice / high52w
	nearHigh := alert.PriceVs52wHighRatio >= a.cfg.NearHighThreshold

	periods, err := a.source.FindFinancialIndicators(ctx, ticker, maxIndicatorPeriods)
	if err != nil {
		return alert, err
	}

	trend, yoy, roe := profitProfile(periods)
	alert.ProfitTrend = trend
	alert.LatestProfitYoY = yoy
	alert.ROE = roe

	alert.Level, alert.DataInsufficient = classify(
		nearHigh, priceChangePct, trend, yoy, a.cfg,
	)
	return alert, nil
}

// high52w computes the 52-week high from daily bars ending at tradeDate.
// Fewer than MinHistoryBars bars is an InsufficientHistory error; the caller
// decides whether that means "no alert".
func (a *Analyzer) high52w(ctx context.Context, ticker string, tradeDate time.Time) (float64, error) {
	// Calendar window generous enough to cover 252 trading days.
	from := tradeDate.AddDate(-1, -1, 0)
	bars, err := a.source.FindBarsInRange(ctx, ticker, model.TimeframeDay, from, tradeDate)
	if err != nil {
		return 0, err
	}
	if len(bars) > window52w {
		bars = bars[len(bars)-window52w:]
	}
	if len(bars) < a.cfg.MinHistoryBars {
		return 0, fmt.Errorf("%s: %d daily bars: %w", ticker, len(bars), model.ErrInsufficientHistory)
	}

	var high float64
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
	}
	if high <= 0 {
		return 0, fmt.Errorf("%s: non-positive 52w high: %w", ticker, model.ErrInsufficientData)
	}
	return high, nil
}

// profitProfile infers the profit trend from the newest reporting period.
// Missing values stay unknown; they are never coerced to zero.
func profitProfile(periods []model.FinancialIndicatorPeriod) (model.ProfitTrend, *float64, *float64) {
	if len(periods) == 0 {
		return model.TrendUnknown, nil, nil
	}
	latest := periods[0]

	trend := model.TrendUnknown
	switch {
	case latest.NetProfit != nil && *latest.NetProfit < 0:
		trend = model.TrendLoss
	case latest.NetProfitYoY != nil && *latest.NetProfitYoY < 0:
		trend = model.TrendDeclining
	case latest.NetProfitYoY != nil:
		trend = model.TrendGrowing
	}
	return trend, latest.NetProfitYoY, latest.ROE
}

// classify applies the severity rules in order; the first match wins.
// Unknown profit data never escalates: a condition that would need it
// instead suppresses to None with the insufficient-data flag set.
func classify(nearHigh bool, priceChangePct float64, trend model.ProfitTrend, yoy *float64, cfg config.FundamentalConfig) (model.DivergenceLevel, bool) {
	if nearHigh && (trend == model.TrendLoss || trend == model.TrendDeclining) {
		return model.DivergenceSevere, false
	}
	if nearHigh {
		if yoy == nil {
			return model.DivergenceNone, true
		}
		if *yoy < cfg.ModerateYoyThreshold {
			return model.DivergenceModerate, false
		}
	}
	if priceChangePct > cfg.MildPriceChangeThreshold {
		if yoy == nil {
			return model.DivergenceNone, true
		}
		if *yoy < priceChangePct/2 {
			return model.DivergenceMild, false
		}
	}
	return model.DivergenceNone, trend == model.TrendUnknown && (nearHigh || priceChangePct > cfg.MildPriceChangeThreshold)
}
