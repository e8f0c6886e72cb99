// Package sentiment derives a breadth-based market mood from one round of
// board snapshots. The score is a small integer; callers show the label.
package sentiment

import (
	"time"

	"signalcore/internal/model"
)

// One 亿 (hundred million) CNY; inflow figures from the gateway are in yuan.
const yi = 1e8

// FromSnapshots aggregates board breadth into a market sentiment reading.
// Concept and industry boards overlap by construction, so the counts are a
// mood gauge, not a census of distinct stocks.
func FromSnapshots(snaps []model.BoardSnapshot) model.MarketSentiment {
	var (
		up, down, limitUp int
		inflow            float64
		volumeUp          int
		volumeDown        int
	)
	for _, s := range snaps {
		up += s.UpCount
		down += s.DownCount
		limitUp += s.LimitUpCount
		inflow += s.MoneyInflow
		if s.ChangePct > 0 {
			volumeUp++
		} else if s.ChangePct < 0 {
			volumeDown++
		}
	}

	score := breadthScore(up, down, limitUp, volumeUp, volumeDown)

	return model.MarketSentiment{
		Score:          score,
		Label:          label(score),
		UpCount:        up,
		DownCount:      down,
		LimitUpCount:   limitUp,
		MoneyFlowLabel: MoneyFlowLabel(inflow),
		ObservedAt:     time.Now(),
	}
}

// breadthScore sums three independent reads: advance/decline ratio, limit-up
// activity, and the share of boards trading up.
func breadthScore(up, down, limitUp, volumeUp, volumeDown int) int {
	score := 0

	if down > 0 {
		ratio := float64(up) / float64(down)
		switch {
		case ratio > 1.3:
			score += 2
		case ratio > 1.1:
			score++
		case ratio < 0.8:
			score -= 2
		case ratio < 0.9:
			score--
		}
	} else if up > 0 {
		score += 2
	}

	switch {
	case limitUp > 80:
		score += 2
	case limitUp > 50:
		score++
	case limitUp < 20:
		score--
	}

	total := volumeUp + volumeDown
	if total > 0 {
		upShare := float64(volumeUp) / float64(total)
		switch {
		case upShare > 0.6:
			score++
		case upShare < 0.4:
			score--
		}
	}

	return score
}

func label(score int) string {
	switch {
	case score >= 4:
		return "Strong"
	case score >= 2:
		return "Bullish"
	case score >= -1:
		return "Choppy"
	case score >= -3:
		return "Bearish"
	default:
		return "Weak"
	}
}

// MoneyFlowLabel grades the aggregate main-capital inflow.
func MoneyFlowLabel(inflowYuan float64) string {
	inflowYi := inflowYuan / yi
	switch {
	case inflowYi > 10:
		return "Heavy inflow"
	case inflowYi > 3:
		return "Inflow"
	case inflowYi < -10:
		return "Heavy outflow"
	case inflowYi < -3:
		return "Outflow"
	default:
		return "Balanced"
	}
}
