package trader

import (
	"fmt"
	"strings"

	"TradePilot/internal/model"
	"TradePilot/internal/strategy"
)

func findPrompt(s model.Settings, chain string) string {
	return fmt.Sprintf("Find tokens on %s under $%.0f market cap with real trading volume in the last 24h. "+
		"List each token with its symbol, price, market cap, 24h volume and 24h change.", chain, s.MaxMarketCap)
}

func scorePrompt(tokenList string, learnings []string) string {
	var b strings.Builder
	b.WriteString("Score each token below from 0 to 100 as a short-term trade.\n")
	b.WriteString("Reply with one line per token and nothing else, exactly in this format:\n")
	b.WriteString("SCORE|symbol|price|marketcap|volume24h|change24h|reason\n")
	b.WriteString("Example: 72|PEPE2|$0.001|$35k|$1200|+15%|strong momentum\n\n")
	if len(learnings) > 0 {
		b.WriteString("Lessons from past trades:\n")
		for _, l := range learnings {
			b.WriteString("- " + l + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Tokens:\n")
	b.WriteString(tokenList)
	return b.String()
}

func buyPrompt(c model.Candidate, amountUSD float64, chain string) string {
	return fmt.Sprintf("Buy $%g of %s on %s at market price. Confirm the fill price and amount received.",
		amountUSD, c.Symbol, chain)
}

func pricePrompt(t model.TradeEntry) string {
	return fmt.Sprintf("What is the current price of %s in USD? Reply with the price only.", t.Symbol)
}

func sellPrompt(t model.TradeEntry, percent int) string {
	return fmt.Sprintf("Sell %d%% of my %s position at market price.", percent, t.Symbol)
}

func balancePrompt(chain string) string {
	return fmt.Sprintf("What is my available USDC balance on %s? Reply with the dollar amount only.", chain)
}

func betPrompt(strat string, sizing strategy.BetSizing, learnings []string, chain string) string {
	var b strings.Builder
	b.WriteString("You are placing one Polymarket bet for me.\n\n")
	b.WriteString(fmt.Sprintf("My strategy: %s\n\n", strat))
	b.WriteString(fmt.Sprintf("Find exactly one market with a clear edge under this strategy and bet exactly $%.2f on it.\n", sizing.Amount))
	b.WriteString(fmt.Sprintf("Only use USDC already on %s. Do not swap, bridge or move funds from any other chain.\n", chain))
	b.WriteString("If no market has a clear edge, reply with \"SKIP: no clear edge\" and place nothing.\n")
	b.WriteString("When you bet, include these lines:\nMARKET: <question>\nOUTCOME: <side>\nODDS: <price>\nAMOUNT: <usd>\n")
	if sizing.Caution != "" {
		b.WriteString("\n" + sizing.Caution + "\n")
	}
	if len(learnings) > 0 {
		b.WriteString("\nWhat I learned from previous bets:\n")
		for _, l := range learnings {
			b.WriteString("- " + l + "\n")
		}
	}
	return b.String()
}

func reflectPrompt(strat string, bet model.PolymarketTrade, recent []model.PolymarketTrade) string {
	var b strings.Builder
	b.WriteString("Reflect on this bet against my strategy and past bets. ")
	b.WriteString("Reply with one or two sentences I should remember next time.\n\n")
	b.WriteString(fmt.Sprintf("Strategy: %s\n", strat))
	b.WriteString(fmt.Sprintf("Bet: %s | %s | odds %s | $%.2f\n", bet.Market, bet.Outcome, bet.Odds, bet.Amount))
	if len(recent) > 0 {
		b.WriteString("Recent bets:\n")
		for _, r := range recent {
			b.WriteString(fmt.Sprintf("- %s | %s | $%.2f | %s\n", r.Market, r.Outcome, r.Amount, r.Result))
		}
	}
	return b.String()
}
