package postgres

import "time"

// BarRecord is one OHLCV bar. (symbol, timeframe, bar_time) is unique;
// ingestion upserts, the core only reads.
type BarRecord struct {
	ID uint `gorm:"primaryKey"`

	Symbol    string    `gorm:"type:text;not null;index:idx_bar_symbol;index:idx_bar_symbol_tf_time,unique"`
	Timeframe string    `gorm:"type:varchar(10);not null;index:idx_bar_symbol_tf_time,unique"`
	BarTime   time.Time `gorm:"not null;index:idx_bar_symbol_tf_time,unique"`

	Open  float64 `gorm:"type:numeric;not null"`
	High  float64 `gorm:"type:numeric;not null"`
	Low   float64 `gorm:"type:numeric;not null"`
	Close float64 `gorm:"type:numeric;not null"`

	Volume   float64 `gorm:"type:numeric;not null"`
	Turnover float64 `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (BarRecord) TableName() string {
	return "bar"
}

// BoardSnapshotRecord is one poll-cycle observation of a board on a trade
// date. (board, trade_date) is unique; later polls on the same date replace
// the row.
type BoardSnapshotRecord struct {
	ID uint `gorm:"primaryKey"`

	Board     string    `gorm:"type:text;not null;index:idx_board_date,unique"`
	TradeDate time.Time `gorm:"not null;index:idx_board_date,unique;index:idx_snapshot_date"`

	Name       string    `gorm:"type:text"`
	ObservedAt time.Time `gorm:"not null"`

	ChangePct    float64 `gorm:"type:numeric;not null"`
	Change5d     float64 `gorm:"column:change5d;type:numeric"`
	Change10d    float64 `gorm:"column:change10d;type:numeric"`
	Change20d    float64 `gorm:"column:change20d;type:numeric"`
	MoneyInflow  float64 `gorm:"type:numeric"`
	LimitUpCount int     `gorm:"not null;default:0"`
	UpCount      int     `gorm:"not null;default:0"`
	DownCount    int     `gorm:"not null;default:0"`
	Turnover     float64 `gorm:"type:numeric"`
	Volume       float64 `gorm:"type:numeric"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (BoardSnapshotRecord) TableName() string {
	return "board_snapshot"
}

// FinancialIndicatorRecord is one reporting period of fundamentals for a
// ticker. Nullable columns mirror "not reported", not zero.
type FinancialIndicatorRecord struct {
	ID uint `gorm:"primaryKey"`

	Ticker    string    `gorm:"type:text;not null;index:idx_fin_ticker;index:idx_fin_ticker_period,unique"`
	PeriodEnd time.Time `gorm:"not null;index:idx_fin_ticker_period,unique"`

	ROE          *float64 `gorm:"column:roe;type:numeric"`
	NetProfit    *float64 `gorm:"column:net_profit;type:numeric"`
	NetProfitYoY *float64 `gorm:"column:net_profit_yoy;type:numeric"`
	GrossMargin  *float64 `gorm:"column:gross_margin;type:numeric"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (FinancialIndicatorRecord) TableName() string {
	return "financial_indicator"
}

// SymbolRecord is reference data refreshed by the metadata sync.
type SymbolRecord struct {
	ID uint `gorm:"primaryKey"`

	Code     string `gorm:"type:text;not null;uniqueIndex:idx_symbol_code"`
	Name     string `gorm:"type:text"`
	Kind     string `gorm:"type:varchar(16);not null"`
	Industry string `gorm:"type:text;index:idx_symbol_industry"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SymbolRecord) TableName() string {
	return "symbol"
}
