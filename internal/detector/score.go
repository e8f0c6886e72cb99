package detector

import (
	"sort"

	"signalcore/internal/model"
)

// Weight keys for the score inputs.
const (
	WeightChangePct   = "change_pct"
	WeightChange5d    = "change_5d"
	WeightChange10d   = "change_10d"
	WeightChange20d   = "change_20d"
	WeightMoneyInflow = "money_inflow"
	WeightLimitUp     = "limit_up"
	WeightUpRatio     = "up_ratio"
	WeightTurnover    = "turnover"
)

// DefaultWeights favors same-day strength and money flow over the slower
// multi-day inputs.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		WeightChangePct:   0.25,
		WeightMoneyInflow: 0.20,
		WeightLimitUp:     0.15,
		WeightChange5d:    0.10,
		WeightUpRatio:     0.10,
		WeightTurnover:    0.10,
		WeightChange10d:   0.05,
		WeightChange20d:   0.05,
	}
}

// scoreInput extracts the raw score inputs from a snapshot. Every input is
// positive-signal: bigger means stronger.
func scoreInput(s model.BoardSnapshot) map[string]float64 {
	return map[string]float64{
		WeightChangePct:   s.ChangePct,
		WeightChange5d:    s.Change5d,
		WeightChange10d:   s.Change10d,
		WeightChange20d:   s.Change20d,
		WeightMoneyInflow: s.MoneyInflow,
		WeightLimitUp:     float64(s.LimitUpCount),
		WeightUpRatio:     upRatio(s.UpCount, s.DownCount),
		WeightTurnover:    s.Turnover,
	}
}

func upRatio(up, down int) float64 {
	total := up + down
	if total == 0 {
		return 0.5
	}
	return float64(up) / float64(total)
}

// computeScores maps each board to a score in [0, 100]. Each input is
// normalized against the current cross-board distribution by rank: a board's
// per-input contribution is the fraction of boards whose value does not
// exceed its own. That keeps scores comparable across sessions of different
// volatility, and raising any input while holding the rest fixed can only
// raise the rank, so the score is monotonic in every input.
func computeScores(snaps []model.BoardSnapshot, weights map[string]float64) map[string]float64 {
	if len(snaps) == 0 {
		return nil
	}
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	var totalWeight float64
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight == 0 {
		return nil
	}

	inputs := make([]map[string]float64, len(snaps))
	for i, s := range snaps {
		inputs[i] = scoreInput(s)
	}

	// Sorted column per input for rank lookups.
	columns := make(map[string][]float64, len(weights))
	for key := range weights {
		col := make([]float64, len(snaps))
		for i := range inputs {
			col[i] = inputs[i][key]
		}
		sort.Float64s(col)
		columns[key] = col
	}

	scores := make(map[string]float64, len(snaps))
	for i, s := range snaps {
		var score float64
		for key, w := range weights {
			if w <= 0 {
				continue
			}
			score += w * rankFraction(columns[key], inputs[i][key]) / totalWeight
		}
		scores[s.Board] = score * 100
	}
	return scores
}

// rankFraction is the fraction of values in the sorted column that are <= v.
func rankFraction(sorted []float64, v float64) float64 {
	idx := sort.SearchFloat64s(sorted, v)
	for idx < len(sorted) && sorted[idx] <= v {
		idx++
	}
	return float64(idx) / float64(len(sorted))
}
