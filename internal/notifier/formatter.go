package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TradePilot/internal/model"
	"TradePilot/internal/strategy"
)

// FormatScanReport formats the top candidates of a scan and any buys it made.
func FormatScanReport(ranked []model.Candidate, viable int, buys []model.TradeEntry, note string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔍 <b>Market Scan</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))

	if len(ranked) == 0 {
		b.WriteString("No candidates could be scored this cycle.\n")
	}
	for i, c := range ranked {
		if i == 5 {
			break
		}
		band := strategy.Band(c.Score)
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %d/100 | mcap $%s | vol $%s | %+.1f%%\n",
			band.Emoji, html.EscapeString(c.Symbol), c.Score, compact(c.MarketCap), compact(c.Volume24h), c.Change24h))
		if c.Reason != "" {
			b.WriteString(fmt.Sprintf("   %s\n", html.EscapeString(c.Reason)))
		}
	}
	b.WriteString(fmt.Sprintf("\nViable (≥%d): %d of %d\n", strategy.ViableScore, viable, len(ranked)))

	if len(buys) > 0 {
		b.WriteString("\n💰 <b>Auto-trades:</b>\n")
		for _, t := range buys {
			icon := "✅"
			if t.Status == model.StatusFailed {
				icon = "❌"
			}
			b.WriteString(fmt.Sprintf("  %s %s %s @ $%g\n", icon, t.Amount, html.EscapeString(t.Symbol), t.Price))
		}
	}
	if note != "" {
		b.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(note)))
	}
	return b.String()
}

// FormatTakeProfit formats a take-profit exit.
func FormatTakeProfit(t model.TradeEntry, current, pnlPct float64) string {
	return fmt.Sprintf("🎯 <b>Take Profit</b> | %s\n\nEntry: $%g\nNow: $%g\nPnL: %+.2f%%\nSold 50%% of position",
		html.EscapeString(t.Symbol), t.Price, current, pnlPct)
}

// FormatStopLoss formats a stop-loss exit.
func FormatStopLoss(t model.TradeEntry, current, pnlPct float64) string {
	return fmt.Sprintf("🛑 <b>Stop Loss</b> | %s\n\nEntry: $%g\nNow: $%g\nPnL: %+.2f%%\nSold 100%% of position",
		html.EscapeString(t.Symbol), t.Price, current, pnlPct)
}

// FormatBetPlaced formats a placed prediction-market bet.
func FormatBetPlaced(bet model.PolymarketTrade, sizing strategy.BetSizing) string {
	var b strings.Builder
	b.WriteString("🎲 <b>Prediction Bet Placed</b>\n\n")
	b.WriteString(fmt.Sprintf("Market: %s\n", html.EscapeString(bet.Market)))
	if bet.Outcome != "" {
		b.WriteString(fmt.Sprintf("Outcome: %s\n", html.EscapeString(bet.Outcome)))
	}
	if bet.Odds != "" {
		b.WriteString(fmt.Sprintf("Odds: %s\n", html.EscapeString(bet.Odds)))
	}
	b.WriteString(fmt.Sprintf("Amount: $%.2f\n", bet.Amount))
	b.WriteString(fmt.Sprintf("Win rate: %.0f%% | edge %.2f | risk ×%.1f\n", sizing.WinRate*100, sizing.Edge, sizing.RiskFactor))
	if sizing.Halved {
		b.WriteString("⚠️ Bet halved after consecutive losses\n")
	}
	return b.String()
}

// FormatBetSkipped formats a cycle where the agent found no clear edge.
func FormatBetSkipped(reason string) string {
	return fmt.Sprintf("⏭️ <b>Prediction cycle skipped</b>\n\n%s", html.EscapeString(reason))
}

// FormatBetPaused formats a loss-streak pause.
func FormatBetPaused(losses int) string {
	return fmt.Sprintf("⏸️ <b>Auto-betting paused</b>\n\n%d consecutive losses. Skipping this cycle to protect capital.", losses)
}

// FormatPositions lists open positions.
func FormatPositions(open []model.TradeEntry) string {
	if len(open) == 0 {
		return "📭 No open positions"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📂 <b>Open Positions</b> (%d)\n\n", len(open)))
	for _, t := range open {
		b.WriteString(fmt.Sprintf("• %s %s @ $%g (%s)\n",
			html.EscapeString(t.Symbol), t.Amount, t.Price, t.Timestamp.Format("01-02 15:04")))
	}
	return b.String()
}

// FormatSettings formats the current settings.
func FormatSettings(s model.Settings) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Settings</b>\n\n")
	b.WriteString(fmt.Sprintf("Max market cap: $%s\n", compact(s.MaxMarketCap)))
	b.WriteString(fmt.Sprintf("Buy amount: $%g\n", s.MaxBuyAmount))
	b.WriteString(fmt.Sprintf("Take profit: %g%%\n", s.TakeProfitPct))
	b.WriteString(fmt.Sprintf("Stop loss: %g%%\n", s.StopLossPct))
	b.WriteString(fmt.Sprintf("Scan interval: %d min\n", s.ScanIntervalMin))
	b.WriteString(fmt.Sprintf("Max open positions: %d\n", s.MaxOpenPositions))
	b.WriteString(fmt.Sprintf("Auto-trade: %v\n", s.AutoTradeEnabled))
	return b.String()
}

// StatusView is the data shown by FormatStatus.
type StatusView struct {
	Running         bool
	Strategy        string
	Memory          model.AgentMemory
	OpenPositions   int
	KillSwitch      bool
	DailyTrades     int
	MaxTradesPerDay int
}

// FormatStatus formats the agent status.
func FormatStatus(v StatusView) string {
	var b strings.Builder
	state := "⏹️ stopped"
	if v.Running {
		state = "▶️ running"
	}
	b.WriteString(fmt.Sprintf("📊 <b>Agent Status</b> | %s\n\n", state))
	b.WriteString(fmt.Sprintf("Open positions: %d\n", v.OpenPositions))
	b.WriteString(fmt.Sprintf("Total trades: %d | win rate %.0f%% | PnL %+.2f%%\n",
		v.Memory.TotalTrades, v.Memory.WinRate*100, v.Memory.TotalPnL))
	b.WriteString(fmt.Sprintf("Today: %d/%d trades\n", v.DailyTrades, v.MaxTradesPerDay))
	if !v.Memory.LastScanTime.IsZero() {
		b.WriteString(fmt.Sprintf("Last scan: %s\n", v.Memory.LastScanTime.Format("2006-01-02 15:04")))
	}
	ps := v.Memory.PolymarketStats
	b.WriteString(fmt.Sprintf("Prediction bets: %d (W%d/L%d) PnL $%.2f\n", ps.TotalBets, ps.Wins, ps.Losses, ps.TotalPnL))
	if v.Strategy != "" {
		b.WriteString(fmt.Sprintf("Strategy: %s\n", html.EscapeString(v.Strategy)))
	}
	if v.KillSwitch {
		b.WriteString("\n🚨 Kill switch ACTIVE. Use /killreset to resume trading.\n")
	}
	return b.String()
}

func compact(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
