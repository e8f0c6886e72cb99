package model

import "time"

// SymbolKind classifies what a symbol code refers to.
type SymbolKind string

const (
	KindStock         SymbolKind = "STOCK"
	KindIndex         SymbolKind = "INDEX"
	KindConceptBoard  SymbolKind = "CONCEPT"
	KindIndustryBoard SymbolKind = "INDUSTRY"
)

// Timeframe is the bar aggregation period.
type Timeframe string

const (
	TimeframeDay   Timeframe = "DAY"
	TimeframeMin30 Timeframe = "MIN30"
)

// Symbol is immutable reference data maintained by the metadata sync.
type Symbol struct {
	Code     string
	Name     string
	Kind     SymbolKind
	Industry string
	Boards   []string
}

// Bar is a single OHLCV record, identified by (symbol, timeframe, timestamp).
type Bar struct {
	Symbol    string
	Timeframe Timeframe
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Turnover  float64
}

// RealtimeQuote is the latest observed price for a symbol. Only the most
// recent quote per symbol is retained.
type RealtimeQuote struct {
	Symbol        string
	Price         float64
	PreviousClose float64
	ObservedAt    time.Time
}

// BoardSnapshot is one poll-cycle observation of a thematic or industry board.
type BoardSnapshot struct {
	Board        string
	Name         string
	ObservedAt   time.Time
	ChangePct    float64
	Change5d     float64
	Change10d    float64
	Change20d    float64
	MoneyInflow  float64
	LimitUpCount int
	UpCount      int
	DownCount    int
	Turnover     float64
	Volume       float64
}

// FinancialIndicatorPeriod is one reporting period of fundamentals for a
// ticker. Pointer fields distinguish "not reported" from zero.
type FinancialIndicatorPeriod struct {
	Ticker       string
	PeriodEnd    time.Time
	ROE          *float64
	NetProfit    *float64
	NetProfitYoY *float64
	GrossMargin  *float64
}

// PeerIndicator is a same-industry peer with its latest ranking metric value.
type PeerIndicator struct {
	Ticker string
	ROE    *float64
}
