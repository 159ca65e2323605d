package strategy

import (
	"fmt"
	"regexp"

	"TradePilot/internal/model"

	"github.com/shopspring/decimal"
)

var (
	minEdge      = decimal.NewFromFloat(0.1)
	half         = decimal.NewFromFloat(0.5)
	maxBetShare  = decimal.NewFromFloat(0.05)
	minBetAmount = decimal.NewFromInt(1)

	survivalLanguage = regexp.MustCompile(`(?i)(can'?t lose|cannot lose|can not lose|last \$|last of my|survive|survival|all i have|need this|rent money)`)
)

// Loss-streak thresholds for the prediction loop.
const (
	CautionLosses = 2
	PauseLosses   = 4
)

// BetSizing is the breakdown of a bet size computation.
type BetSizing struct {
	WinRate    float64
	Edge       float64
	RiskFactor float64
	Survival   bool
	Raw        float64
	Max        float64
	Amount     float64
	Halved     bool
	Caution    string
}

// SizeBet computes a risk-adjusted bet from the trailing win rate, balance and strategy text.
//
//	winRate = wins / totalBets (0.5 without history)
//	edge    = max(0.1, winRate - 0.5)
//	amount  = clamp(floor(balance * edge * riskFactor), 1, balance * 0.05)
func SizeBet(stats model.PolymarketStats, balance float64, strategyText string) BetSizing {
	winRate := half
	if stats.TotalBets > 0 {
		winRate = decimal.NewFromInt(int64(stats.Wins)).Div(decimal.NewFromInt(int64(stats.TotalBets)))
	}

	edge := decimal.Max(minEdge, winRate.Sub(half))

	survival := survivalLanguage.MatchString(strategyText)
	risk := decimal.NewFromInt(1)
	switch {
	case survival:
		risk = decimal.NewFromFloat(0.5)
	case stats.TotalBets >= 5 && winRate.GreaterThan(decimal.NewFromFloat(0.6)):
		risk = decimal.NewFromFloat(1.5)
	case stats.TotalBets >= 5 && winRate.LessThan(decimal.NewFromFloat(0.4)):
		risk = decimal.NewFromFloat(0.6)
	}

	bal := decimal.NewFromFloat(balance)
	raw := bal.Mul(edge).Mul(risk).Floor()
	maxBet := bal.Mul(maxBetShare)
	amount := decimal.Max(minBetAmount, decimal.Min(raw, maxBet))

	return BetSizing{
		WinRate:    winRate.InexactFloat64(),
		Edge:       edge.InexactFloat64(),
		RiskFactor: risk.InexactFloat64(),
		Survival:   survival,
		Raw:        raw.InexactFloat64(),
		Max:        maxBet.InexactFloat64(),
		Amount:     amount.InexactFloat64(),
	}
}

// ApplyLossStreak adjusts s for the current run of settled losses. It returns false when
// the cycle must not bet at all.
func ApplyLossStreak(s *BetSizing, losses int) bool {
	switch {
	case losses >= PauseLosses:
		return false
	case losses >= CautionLosses:
		halved := decimal.NewFromFloat(s.Amount).Div(decimal.NewFromInt(2)).Round(2)
		s.Amount = decimal.Max(minBetAmount, halved).InexactFloat64()
		s.Halved = true
		s.Caution = fmt.Sprintf("CAUTION: %d consecutive losses. Bet size halved; only take a very clear edge.", losses)
	}
	return true
}
