package notifier

import (
	"testing"
	"time"

	"TradePilot/internal/model"
	"TradePilot/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func TestFormatScanReport(t *testing.T) {
	ranked := []model.Candidate{
		{Score: 72, Symbol: "PEPE2", MarketCap: 35000, Volume24h: 1200, Change24h: 15, Reason: "strong momentum"},
		{Score: 20, Symbol: "DEAD", MarketCap: 900},
	}
	buys := []model.TradeEntry{
		{Symbol: "PEPE2", Amount: "$5", Price: 0.001, Status: model.StatusOpen},
		{Symbol: "<X>", Amount: "$5", Price: 0.5, Status: model.StatusFailed},
	}

	out := FormatScanReport(ranked, 1, buys, "Max open positions reached (3/3)")
	assert.Contains(t, out, "🟢 <b>PEPE2</b> 72/100 | mcap $35.0k | vol $1.2k | +15.0%")
	assert.Contains(t, out, "strong momentum")
	assert.Contains(t, out, "<b>DEAD</b> 20/100")
	assert.Contains(t, out, "Viable (≥60): 1 of 2")
	assert.Contains(t, out, "✅ $5 PEPE2 @ $0.001")
	assert.Contains(t, out, "❌ $5 &lt;X&gt; @ $0.5")
	assert.Contains(t, out, "Max open positions reached (3/3)")
}

func TestFormatScanReport_Empty(t *testing.T) {
	out := FormatScanReport(nil, 0, nil, "")
	assert.Contains(t, out, "No candidates could be scored")
	assert.NotContains(t, out, "Auto-trades")
}

func TestFormatExits(t *testing.T) {
	tr := model.TradeEntry{Symbol: "PEPE2", Price: 0.001}
	tp := FormatTakeProfit(tr, 0.0021, 110)
	assert.Contains(t, tp, "🎯 <b>Take Profit</b> | PEPE2")
	assert.Contains(t, tp, "PnL: +110.00%")
	assert.Contains(t, tp, "Sold 50% of position")

	sl := FormatStopLoss(tr, 0.0006, -40)
	assert.Contains(t, sl, "🛑 <b>Stop Loss</b>")
	assert.Contains(t, sl, "PnL: -40.00%")
	assert.Contains(t, sl, "Sold 100% of position")
}

func TestFormatBets(t *testing.T) {
	bet := model.PolymarketTrade{Market: "Will it rain?", Outcome: "YES", Odds: "0.40", Amount: 5}
	out := FormatBetPlaced(bet, strategy.BetSizing{WinRate: 0.5, Edge: 0.1, RiskFactor: 1, Halved: true})
	assert.Contains(t, out, "Market: Will it rain?")
	assert.Contains(t, out, "Outcome: YES")
	assert.Contains(t, out, "Amount: $5.00")
	assert.Contains(t, out, "Bet halved")

	assert.Contains(t, FormatBetSkipped("no clear edge"), "no clear edge")
	assert.Contains(t, FormatBetPaused(4), "4 consecutive losses")
}

func TestFormatPositionsAndSettings(t *testing.T) {
	assert.Equal(t, "📭 No open positions", FormatPositions(nil))

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out := FormatPositions([]model.TradeEntry{{Symbol: "PEPE2", Amount: "$5", Price: 0.001, Timestamp: ts}})
	assert.Contains(t, out, "(1)")
	assert.Contains(t, out, "• PEPE2 $5 @ $0.001 (03-01 09:30)")

	settings := FormatSettings(model.DefaultSettings())
	assert.Contains(t, settings, "Scan interval:")
	assert.Contains(t, settings, "Auto-trade: false")
}

func TestFormatStatus(t *testing.T) {
	v := StatusView{
		Running:         true,
		Strategy:        "fade longshots",
		OpenPositions:   2,
		KillSwitch:      true,
		DailyTrades:     3,
		MaxTradesPerDay: 10,
	}
	out := FormatStatus(v)
	assert.Contains(t, out, "▶️ running")
	assert.Contains(t, out, "Open positions: 2")
	assert.Contains(t, out, "Today: 3/10 trades")
	assert.Contains(t, out, "Strategy: fade longshots")
	assert.Contains(t, out, "Kill switch ACTIVE")

	assert.Contains(t, FormatStatus(StatusView{}), "⏹️ stopped")
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "950", compact(950))
	assert.Equal(t, "35.0k", compact(35000))
	assert.Equal(t, "2.5M", compact(2.5e6))
	assert.Equal(t, "1.0B", compact(1e9))
}
