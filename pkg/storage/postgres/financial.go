package postgres

import (
	"context"
	"sort"

	"signalcore/internal/model"

	"gorm.io/gorm/clause"
)

// UpsertFinancialIndicators inserts or replaces indicator periods keyed by
// (ticker, period_end).
func (p *PostgresClient) UpsertFinancialIndicators(ctx context.Context, periods []model.FinancialIndicatorPeriod) (int, error) {
	if len(periods) == 0 {
		return 0, nil
	}

	records := make([]FinancialIndicatorRecord, 0, len(periods))
	for _, per := range periods {
		records = append(records, FinancialIndicatorRecord{
			Ticker:       per.Ticker,
			PeriodEnd:    per.PeriodEnd,
			ROE:          per.ROE,
			NetProfit:    per.NetProfit,
			NetProfitYoY: per.NetProfitYoY,
			GrossMargin:  per.GrossMargin,
		})
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "ticker"},
			{Name: "period_end"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"roe", "net_profit", "net_profit_yoy", "gross_margin",
		}),
	}).Create(&records)

	if tx.Error != nil {
		return 0, readErr("upsert financial indicators", tx.Error)
	}
	return int(tx.RowsAffected), nil
}

// FindFinancialIndicators returns up to n reporting periods for a ticker,
// newest first. A ticker with no data yields an empty slice.
func (p *PostgresClient) FindFinancialIndicators(ctx context.Context, ticker string, n int) ([]model.FinancialIndicatorPeriod, error) {
	var recs []FinancialIndicatorRecord
	err := p.DB.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("period_end DESC").
		Limit(n).
		Find(&recs).Error
	if err != nil {
		return nil, readErr("find financial indicators", err)
	}

	periods := make([]model.FinancialIndicatorPeriod, 0, len(recs))
	for _, rec := range recs {
		periods = append(periods, model.FinancialIndicatorPeriod{
			Ticker:       rec.Ticker,
			PeriodEnd:    rec.PeriodEnd,
			ROE:          rec.ROE,
			NetProfit:    rec.NetProfit,
			NetProfitYoY: rec.NetProfitYoY,
			GrossMargin:  rec.GrossMargin,
		})
	}
	return periods, nil
}

// FindPeers returns every ticker in the industry with its latest ROE.
func (p *PostgresClient) FindPeers(ctx context.Context, industry string) ([]model.PeerIndicator, error) {
	var symbols []SymbolRecord
	err := p.DB.WithContext(ctx).
		Where("industry = ? AND kind = ?", industry, string(model.KindStock)).
		Find(&symbols).Error
	if err != nil {
		return nil, readErr("find peers", err)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	tickers := make([]string, 0, len(symbols))
	for _, s := range symbols {
		tickers = append(tickers, s.Code)
	}

	var recs []FinancialIndicatorRecord
	err = p.DB.WithContext(ctx).
		Where("ticker IN ?", tickers).
		Order("period_end DESC").
		Find(&recs).Error
	if err != nil {
		return nil, readErr("find peer indicators", err)
	}

	return latestPeerIndicators(tickers, recs), nil
}

// latestPeerIndicators reduces indicator rows (newest first) to one
// PeerIndicator per ticker. Tickers with no indicator rows are included with
// a nil metric so ranking can report them as unrankable rather than absent.
func latestPeerIndicators(tickers []string, recs []FinancialIndicatorRecord) []model.PeerIndicator {
	latest := make(map[string]*float64, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, rec := range recs {
		if seen[rec.Ticker] {
			continue
		}
		seen[rec.Ticker] = true
		latest[rec.Ticker] = rec.ROE
	}

	peers := make([]model.PeerIndicator, 0, len(tickers))
	for _, t := range tickers {
		peers = append(peers, model.PeerIndicator{Ticker: t, ROE: latest[t]})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Ticker < peers[j].Ticker })
	return peers
}
