package strategy

import (
	"testing"

	"TradePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBand_AllBoundaries(t *testing.T) {
	tests := []struct {
		score int
		emoji string
	}{
		{100, "🟢"},
		{70, "🟢"},
		{69, "🟡"},
		{50, "🟡"},
		{49, "🔴"},
		{0, "🔴"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.emoji, Band(tt.score).Emoji, "score %d", tt.score)
	}
}

func TestRankAndViable(t *testing.T) {
	in := []model.Candidate{
		{Symbol: "DEAD", Score: 40},
		{Symbol: "PEPE2", Score: 72},
		{Symbol: "MID", Score: 60},
		{Symbol: "TIE", Score: 72},
	}
	ranked := Rank(in)
	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"PEPE2", "TIE", "MID", "DEAD"}, symbols(ranked))
	assert.Equal(t, "DEAD", in[0].Symbol, "input must not be reordered")

	assert.Equal(t, []string{"PEPE2", "TIE", "MID"}, symbols(Viable(ranked)))
}

func symbols(cs []model.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Symbol
	}
	return out
}

func TestSizeBet_HotStreakIsClampedToFivePercent(t *testing.T) {
	s := SizeBet(model.PolymarketStats{TotalBets: 10, Wins: 7}, 200, "grow steadily")
	assert.Equal(t, 0.7, s.WinRate)
	assert.Equal(t, 0.2, s.Edge)
	assert.Equal(t, 1.5, s.RiskFactor)
	assert.Equal(t, 60.0, s.Raw)
	assert.Equal(t, 10.0, s.Max)
	assert.Equal(t, 10.0, s.Amount)
}

func TestSizeBet_NoHistoryUsesMinimumEdge(t *testing.T) {
	s := SizeBet(model.PolymarketStats{}, 1000, "")
	assert.Equal(t, 0.5, s.WinRate)
	assert.Equal(t, 0.1, s.Edge)
	assert.Equal(t, 1.0, s.RiskFactor)
	assert.Equal(t, 100.0, s.Raw)
	assert.Equal(t, 50.0, s.Amount)
}

func TestSizeBet_SurvivalLanguageShrinksRisk(t *testing.T) {
	s := SizeBet(model.PolymarketStats{TotalBets: 10, Wins: 8}, 40, "this is my last $40, I can't lose it")
	assert.True(t, s.Survival)
	assert.Equal(t, 0.5, s.RiskFactor)
	// floor(40 * 0.3 * 0.5) = 6, max = 2
	assert.Equal(t, 6.0, s.Raw)
	assert.Equal(t, 2.0, s.Amount)
}

func TestSizeBet_ColdStreakAndMinimum(t *testing.T) {
	s := SizeBet(model.PolymarketStats{TotalBets: 5, Wins: 1}, 10, "")
	assert.Equal(t, 0.6, s.RiskFactor)
	// floor(10 * 0.1 * 0.6) = 0 -> clamped up to 1
	assert.Equal(t, 0.0, s.Raw)
	assert.Equal(t, 1.0, s.Amount)
}

func TestApplyLossStreak(t *testing.T) {
	s := BetSizing{Amount: 10}
	assert.True(t, ApplyLossStreak(&s, 1))
	assert.Equal(t, 10.0, s.Amount)
	assert.False(t, s.Halved)

	s = BetSizing{Amount: 10}
	assert.True(t, ApplyLossStreak(&s, 3))
	assert.Equal(t, 5.0, s.Amount)
	assert.True(t, s.Halved)
	assert.Contains(t, s.Caution, "3 consecutive losses")

	s = BetSizing{Amount: 1.5}
	assert.True(t, ApplyLossStreak(&s, 2))
	assert.Equal(t, 1.0, s.Amount)

	s = BetSizing{Amount: 10}
	assert.False(t, ApplyLossStreak(&s, 4))
}
