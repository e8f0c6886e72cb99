package model

import "time"

// SignalState is a board's position in the momentum lifecycle.
type SignalState string

const (
	StateIdle      SignalState = "IDLE"
	StateWatching  SignalState = "WATCHING"
	StateConfirmed SignalState = "CONFIRMED"
	StateFaded     SignalState = "FADED"
)

// MomentumSignal is the per-board state machine record, owned exclusively by
// the detector's scan loop.
type MomentumSignal struct {
	Board            string
	Name             string
	State            SignalState
	Score            float64
	ConsecutiveAbove int
	ConsecutiveBelow int
	CooldownLeft     int
	TriggeredAt      time.Time
	LastUpdatedAt    time.Time
}

// Transition records a single state change produced by one scan cycle.
type Transition struct {
	Board string
	From  SignalState
	To    SignalState
	Score float64
	At    time.Time
}

// UserFacing reports whether this transition should surface as a signal.
// Only a freshly confirmed board is; Watching and Faded are diagnostic.
func (t Transition) UserFacing() bool {
	return t.To == StateConfirmed
}

// DetectorHealth is the detector's queryable liveness state.
type DetectorHealth string

const (
	HealthRunning   DetectorHealth = "RUNNING"
	HealthSuspended DetectorHealth = "SUSPENDED"
)

// DivergenceLevel grades a price/fundamental divergence.
type DivergenceLevel string

const (
	DivergenceNone     DivergenceLevel = "NONE"
	DivergenceMild     DivergenceLevel = "MILD"
	DivergenceModerate DivergenceLevel = "MODERATE"
	DivergenceSevere   DivergenceLevel = "SEVERE"
)

// ProfitTrend summarizes the most recent reporting period.
type ProfitTrend string

const (
	TrendUnknown   ProfitTrend = "UNKNOWN"
	TrendLoss      ProfitTrend = "LOSS"
	TrendDeclining ProfitTrend = "DECLINING"
	TrendGrowing   ProfitTrend = "GROWING"
)

// DivergenceAlert is the result of analyzing one ticker. Recomputed fresh on
// every call, never persisted by the core.
type DivergenceAlert struct {
	Ticker              string
	Name                string
	Level               DivergenceLevel
	ProfitTrend         ProfitTrend
	PriceVs52wHighRatio float64
	LatestProfitYoY     *float64
	ROE                 *float64
	DataInsufficient    bool
	ComputedAt          time.Time
}

// IndustryRanking is a ticker's standing among same-industry peers.
type IndustryRanking struct {
	Ticker     string
	Industry   string
	Metric     string
	Value      float64
	Rank       int
	TotalPeers int
	Percentile float64
	IsTop20    bool
}

// ConsistencyVerdict compares the three price sources for one symbol after
// market close.
type ConsistencyVerdict struct {
	Symbol        string
	RealtimePrice float64
	DayClose      float64
	Min30Close    float64
	HasMin30      bool
	MaxDeviation  float64
	Tolerance     float64
	Healthy       bool
	Err           string
}

// MarketSentiment is the breadth-based mood of the current snapshot round.
type MarketSentiment struct {
	Score          int
	Label          string
	UpCount        int
	DownCount      int
	LimitUpCount   int
	MoneyFlowLabel string
	ObservedAt     time.Time
}
