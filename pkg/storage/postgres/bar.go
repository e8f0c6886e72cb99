package postgres

import (
	"context"
	"errors"
	"time"

	"signalcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertBars inserts or replaces bars keyed by (symbol, timeframe, bar_time).
// Used by the ingest path only; the analyzers never write.
func (p *PostgresClient) UpsertBars(ctx context.Context, bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Symbol:    b.Symbol,
			Timeframe: string(b.Timeframe),
			BarTime:   b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Turnover:  b.Turnover,
		})
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "timeframe"},
			{Name: "bar_time"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume", "turnover",
		}),
	}).Create(&records)

	if tx.Error != nil {
		return 0, readErr("upsert bars", tx.Error)
	}
	return int(tx.RowsAffected), nil
}

// FindLatestBar returns the newest bar for (symbol, timeframe), or nil when
// none exists.
func (p *PostgresClient) FindLatestBar(ctx context.Context, symbol string, tf model.Timeframe) (*model.Bar, error) {
	var rec BarRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, string(tf)).
		Order("bar_time DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("find latest bar", err)
	}

	bar := toBar(rec)
	return &bar, nil
}

// FindBarsInRange returns bars for (symbol, timeframe) within [from, to],
// ordered oldest first (newest last).
func (p *PostgresClient) FindBarsInRange(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time) ([]model.Bar, error) {
	var recs []BarRecord
	err := p.DB.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND bar_time >= ? AND bar_time <= ?",
			symbol, string(tf), from, to).
		Order("bar_time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, readErr("find bars in range", err)
	}

	bars := make([]model.Bar, 0, len(recs))
	for _, rec := range recs {
		bars = append(bars, toBar(rec))
	}
	return bars, nil
}

func toBar(rec BarRecord) model.Bar {
	return model.Bar{
		Symbol:    rec.Symbol,
		Timeframe: model.Timeframe(rec.Timeframe),
		Timestamp: rec.BarTime,
		Open:      rec.Open,
		High:      rec.High,
		Low:       rec.Low,
		Close:     rec.Close,
		Volume:    rec.Volume,
		Turnover:  rec.Turnover,
	}
}
