package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalcore/internal/model"

	"go.uber.org/zap"
)

// Entry is one ticker submitted for batch analysis.
type Entry struct {
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"currentPrice"`
	PriceChangePct float64 `json:"priceChangePct"`
	Industry       string  `json:"industry"`
}

// EntryError marks one entry that could not be analyzed. It never aborts the
// batch.
type EntryError struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// RankedStock pairs an entry with its industry ranking for the quality and
// risk buckets.
type RankedStock struct {
	Ticker      string                `json:"ticker"`
	Name        string                `json:"name"`
	ProfitTrend model.ProfitTrend     `json:"profitTrend"`
	Ranking     model.IndustryRanking `json:"ranking"`
	Alert       model.DivergenceAlert `json:"alert"`
}

// BatchResult partitions the analyzed entries. Buckets are independently
// derived; one entry may land in several.
type BatchResult struct {
	DivergenceAlerts []model.DivergenceAlert `json:"divergenceAlerts"`
	QualityStocks    []RankedStock           `json:"qualityStocks"`
	RiskStocks       []RankedStock           `json:"riskStocks"`
	Errors           []EntryError            `json:"errors,omitempty"`
}

type entryOutcome struct {
	alert   model.DivergenceAlert
	ranking model.IndustryRanking
	ranked  bool
	err     error
}

// BatchAnalyze runs AnalyzeOne and RankIndustry per entry with bounded
// concurrency. Results are assembled in input order, so identical inputs
// over unchanged data produce identical bucket membership. Only total
// failure (every entry errored) propagates as a batch-level error.
func (a *Analyzer) BatchAnalyze(ctx context.Context, entries []Entry, tradeDate time.Time) (BatchResult, error) {
	outcomes := make([]entryOutcome, len(entries))

	maxConcurrent := a.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	for i, e := range entries {
		i, e := i, e
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = a.analyzeEntry(ctx, e, tradeDate)
		}()
	}
	wg.Wait()

	var result BatchResult
	failed := 0
	for i, e := range entries {
		out := outcomes[i]
		if out.err != nil {
			failed++
			a.logger.Warn("batch entry failed",
				zap.String("ticker", e.Ticker), zap.Error(out.err))
			result.Errors = append(result.Errors, EntryError{
				Ticker: e.Ticker,
				Reason: out.err.Error(),
			})
			continue
		}

		if out.alert.Level != model.DivergenceNone {
			result.DivergenceAlerts = append(result.DivergenceAlerts, out.alert)
		}
		if out.ranked && out.ranking.IsTop20 && out.alert.ProfitTrend == model.TrendGrowing {
			result.QualityStocks = append(result.QualityStocks, rankedStock(e, out))
		}
		if e.PriceChangePct > 0 &&
			(out.alert.ProfitTrend == model.TrendLoss || out.alert.ProfitTrend == model.TrendDeclining) {
			result.RiskStocks = append(result.RiskStocks, rankedStock(e, out))
		}
	}

	if len(entries) > 0 && failed == len(entries) {
		return result, fmt.Errorf("all %d entries failed: %w", failed, model.ErrRepositoryUnavailable)
	}
	return result, nil
}

func (a *Analyzer) analyzeEntry(ctx context.Context, e Entry, tradeDate time.Time) entryOutcome {
	var out entryOutcome

	alert, err := a.AnalyzeOne(ctx, e.Ticker, e.CurrentPrice, e.PriceChangePct, tradeDate)
	if err != nil {
		out.err = err
		return out
	}
	alert.Name = e.Name
	out.alert = alert

	if e.Industry != "" {
		ranking, err := a.RankIndustry(ctx, e.Ticker, e.Industry)
		if err != nil {
			// Unrankable is an entry-level detail, not a failure: the
			// divergence half of the result is still valid.
			a.logger.Debug("industry ranking unavailable",
				zap.String("ticker", e.Ticker), zap.Error(err))
		} else {
			out.ranking = ranking
			out.ranked = true
		}
	}
	return out
}

func rankedStock(e Entry, out entryOutcome) RankedStock {
	return RankedStock{
		Ticker:      e.Ticker,
		Name:        e.Name,
		ProfitTrend: out.alert.ProfitTrend,
		Ranking:     out.ranking,
		Alert:       out.alert,
	}
}
