package analyzer

import (
	"context"
	"fmt"
	"sort"

	"signalcore/internal/model"
)

// RankIndustry places a ticker among its same-industry peers by latest ROE.
// Ties are broken by ticker code ascending so repeated calls are
// deterministic. A peer set of size 1 yields percentile 100.
func (a *Analyzer) RankIndustry(ctx context.Context, ticker, industry string) (model.IndustryRanking, error) {
	ranking := model.IndustryRanking{
		Ticker:   ticker,
		Industry: industry,
		Metric:   "ROE",
	}

	peers, err := a.source.FindPeers(ctx, industry)
	if err != nil {
		return ranking, err
	}

	// Peers without a reported metric cannot be ranked.
	ranked := make([]model.PeerIndicator, 0, len(peers))
	for _, p := range peers {
		if p.ROE != nil {
			ranked = append(ranked, p)
		}
	}
	if len(ranked) == 0 {
		return ranking, fmt.Errorf("%s/%s: no rankable peers: %w", ticker, industry, model.ErrInsufficientData)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if *ranked[i].ROE != *ranked[j].ROE {
			return *ranked[i].ROE > *ranked[j].ROE
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})

	rank := 0
	for i, p := range ranked {
		if p.Ticker == ticker {
			rank = i + 1
			ranking.Value = *p.ROE
			break
		}
	}
	if rank == 0 {
		return ranking, fmt.Errorf("%s: no reported %s: %w", ticker, ranking.Metric, model.ErrInsufficientData)
	}

	total := len(ranked)
	ranking.Rank = rank
	ranking.TotalPeers = total
	ranking.Percentile = float64(total-rank+1) / float64(total) * 100
	ranking.IsTop20 = ranking.Percentile >= a.cfg.Top20Percentile
	return ranking, nil
}
