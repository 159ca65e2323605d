package strategy

import (
	"sort"

	"TradePilot/internal/model"
)

// ViableScore is the minimum score a candidate needs to be bought.
const ViableScore = 60

// Bands maps scores to display bands, highest first.
var Bands = []model.ScoreBand{
	{Label: "strong", Emoji: "🟢", MinScore: 70},
	{Label: "watch", Emoji: "🟡", MinScore: 50},
}

// DefaultBand is the band for scores below every entry in Bands.
var DefaultBand = model.ScoreBand{Label: "weak", Emoji: "🔴", MinScore: 0}

// Band maps a candidate score to its display band.
func Band(score int) model.ScoreBand {
	for _, b := range Bands {
		if score >= b.MinScore {
			return b
		}
	}
	return DefaultBand
}

// Rank returns the candidates sorted by score, highest first. Ties keep input order.
func Rank(candidates []model.Candidate) []model.Candidate {
	ranked := append([]model.Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// Viable filters ranked candidates down to those at or above ViableScore.
func Viable(ranked []model.Candidate) []model.Candidate {
	var out []model.Candidate
	for _, c := range ranked {
		if c.Score >= ViableScore {
			out = append(out, c)
		}
	}
	return out
}
