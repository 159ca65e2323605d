package model

import "time"

// TradeAction is the side of a spot trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// TradeStatus tracks the lifecycle of a TradeEntry: open -> closed | failed.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
	StatusFailed TradeStatus = "failed"
)

// TradeEntry is one attempted or completed spot-market action.
// PnL, ExitPrice and ExitTimestamp are set iff Status is closed.
type TradeEntry struct {
	ID               string      `json:"id"`
	Token            string      `json:"token"`
	Symbol           string      `json:"symbol"`
	Action           TradeAction `json:"action"`
	Amount           string      `json:"amount"` // display string, e.g. "$5"
	Price            float64     `json:"price"`
	MarketCap        float64     `json:"marketCap"`
	Timestamp        time.Time   `json:"timestamp"`
	Reason           string      `json:"reason"`
	ExternalResponse string      `json:"externalResponse"`
	PnL              *float64    `json:"pnl,omitempty"` // percent
	Status           TradeStatus `json:"status"`
	ExitPrice        *float64    `json:"exitPrice,omitempty"`
	ExitTimestamp    *time.Time  `json:"exitTimestamp,omitempty"`
}

// IsOpen reports whether the trade is still being monitored.
func (t *TradeEntry) IsOpen() bool { return t.Status == StatusOpen }

// BetResult is the settlement state of a prediction-market bet.
type BetResult string

const (
	BetPending BetResult = "pending"
	BetWin     BetResult = "win"
	BetLoss    BetResult = "loss"
)

// PolymarketTrade is one prediction-market bet.
type PolymarketTrade struct {
	ID               string     `json:"id"`
	Market           string     `json:"market"`
	Outcome          string     `json:"outcome"`
	Amount           float64    `json:"amount"`
	Odds             string     `json:"odds"`
	Timestamp        time.Time  `json:"timestamp"`
	Result           BetResult  `json:"result"`
	PnL              float64    `json:"pnl"`
	ExternalResponse string     `json:"externalResponse"`
	SettledAt        *time.Time `json:"settledAt,omitempty"`
}

// PolymarketStats aggregates bet outcomes.
type PolymarketStats struct {
	TotalBets int     `json:"totalBets"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	TotalPnL  float64 `json:"totalPnl"`
}
