package postgres

import (
	"context"
	"errors"
	"time"

	"signalcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertBoardSnapshots inserts or replaces snapshots keyed by
// (board, trade_date); a later poll on the same date wins.
func (p *PostgresClient) UpsertBoardSnapshots(ctx context.Context, tradeDate time.Time, snaps []model.BoardSnapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	records := make([]BoardSnapshotRecord, 0, len(snaps))
	for _, s := range snaps {
		records = append(records, BoardSnapshotRecord{
			Board:        s.Board,
			TradeDate:    tradeDate,
			Name:         s.Name,
			ObservedAt:   s.ObservedAt,
			ChangePct:    s.ChangePct,
			Change5d:     s.Change5d,
			Change10d:    s.Change10d,
			Change20d:    s.Change20d,
			MoneyInflow:  s.MoneyInflow,
			LimitUpCount: s.LimitUpCount,
			UpCount:      s.UpCount,
			DownCount:    s.DownCount,
			Turnover:     s.Turnover,
			Volume:       s.Volume,
		})
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "board"},
			{Name: "trade_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "observed_at", "change_pct", "change5d", "change10d",
			"change20d", "money_inflow", "limit_up_count", "up_count",
			"down_count", "turnover", "volume",
		}),
	}).Create(&records)

	if tx.Error != nil {
		return 0, readErr("upsert board snapshots", tx.Error)
	}
	return int(tx.RowsAffected), nil
}

// FindBoardSnapshot returns the snapshot for (board, trade date), or nil
// when none exists.
func (p *PostgresClient) FindBoardSnapshot(ctx context.Context, board string, tradeDate time.Time) (*model.BoardSnapshot, error) {
	var rec BoardSnapshotRecord
	err := p.DB.WithContext(ctx).
		Where("board = ? AND trade_date = ?", board, tradeDate).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("find board snapshot", err)
	}

	snap := toBoardSnapshot(rec)
	return &snap, nil
}

// FindBoardSnapshotsByDate returns all board snapshots for a trade date.
func (p *PostgresClient) FindBoardSnapshotsByDate(ctx context.Context, tradeDate time.Time) ([]model.BoardSnapshot, error) {
	var recs []BoardSnapshotRecord
	err := p.DB.WithContext(ctx).
		Where("trade_date = ?", tradeDate).
		Find(&recs).Error
	if err != nil {
		return nil, readErr("find board snapshots by date", err)
	}

	snaps := make([]model.BoardSnapshot, 0, len(recs))
	for _, rec := range recs {
		snaps = append(snaps, toBoardSnapshot(rec))
	}
	return snaps, nil
}

func toBoardSnapshot(rec BoardSnapshotRecord) model.BoardSnapshot {
	return model.BoardSnapshot{
		Board:        rec.Board,
		Name:         rec.Name,
		ObservedAt:   rec.ObservedAt,
		ChangePct:    rec.ChangePct,
		Change5d:     rec.Change5d,
		Change10d:    rec.Change10d,
		Change20d:    rec.Change20d,
		MoneyInflow:  rec.MoneyInflow,
		LimitUpCount: rec.LimitUpCount,
		UpCount:      rec.UpCount,
		DownCount:    rec.DownCount,
		Turnover:     rec.Turnover,
		Volume:       rec.Volume,
	}
}
