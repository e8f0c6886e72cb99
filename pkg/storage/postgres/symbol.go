package postgres

import (
	"context"
	"errors"

	"signalcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSymbols refreshes reference data from the metadata sync.
func (p *PostgresClient) UpsertSymbols(ctx context.Context, symbols []model.Symbol) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	records := make([]SymbolRecord, 0, len(symbols))
	for _, s := range symbols {
		records = append(records, SymbolRecord{
			Code:     s.Code,
			Name:     s.Name,
			Kind:     string(s.Kind),
			Industry: s.Industry,
		})
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "kind", "industry",
		}),
	}).Create(&records)

	if tx.Error != nil {
		return 0, readErr("upsert symbols", tx.Error)
	}
	return int(tx.RowsAffected), nil
}

// FindSymbol returns reference data for a code, or nil when unknown.
func (p *PostgresClient) FindSymbol(ctx context.Context, code string) (*model.Symbol, error) {
	var rec SymbolRecord
	err := p.DB.WithContext(ctx).Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("find symbol", err)
	}

	return &model.Symbol{
		Code:     rec.Code,
		Name:     rec.Name,
		Kind:     model.SymbolKind(rec.Kind),
		Industry: rec.Industry,
	}, nil
}
