package model

import "time"

// Ring buffer bounds for free-text learnings.
const (
	MaxLearnings    = 100
	MaxBetLearnings = 20
)

// TokenMemory is the running research cache for one symbol.
type TokenMemory struct {
	Symbol         string    `json:"symbol"`
	LastResearched time.Time `json:"lastResearched"`
	Summary        string    `json:"summary"`
	Score          int       `json:"score"` // 0-100
	MarketCap      float64   `json:"marketCap"`
	Volume         float64   `json:"volume"`
	Price          float64   `json:"price"`
	TradeCount     int       `json:"tradeCount"`
	TotalPnL       float64   `json:"totalPnl"`
	Tags           []string  `json:"tags"`
}

// Settings is the user-tunable block persisted with the aggregate.
type Settings struct {
	MaxMarketCap     float64 `json:"maxMarketCap" yaml:"max_market_cap"`
	MaxBuyAmount     float64 `json:"maxBuyAmount" yaml:"max_buy_amount"`
	TakeProfitPct    float64 `json:"takeProfitPct" yaml:"take_profit_pct"`
	StopLossPct      float64 `json:"stopLossPct" yaml:"stop_loss_pct"`
	ScanIntervalMin  int     `json:"scanIntervalMin" yaml:"scan_interval_min"`
	AutoTradeEnabled bool    `json:"autoTradeEnabled" yaml:"auto_trade_enabled"`
	MaxOpenPositions int     `json:"maxOpenPositions" yaml:"max_open_positions"`
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	MaxMarketCap     *float64 `json:"maxMarketCap,omitempty"`
	MaxBuyAmount     *float64 `json:"maxBuyAmount,omitempty"`
	TakeProfitPct    *float64 `json:"takeProfitPct,omitempty"`
	StopLossPct      *float64 `json:"stopLossPct,omitempty"`
	ScanIntervalMin  *int     `json:"scanIntervalMin,omitempty"`
	AutoTradeEnabled *bool    `json:"autoTradeEnabled,omitempty"`
	MaxOpenPositions *int     `json:"maxOpenPositions,omitempty"`
}

// Apply merges the patch into s.
func (p SettingsPatch) Apply(s *Settings) {
	if p.MaxMarketCap != nil {
		s.MaxMarketCap = *p.MaxMarketCap
	}
	if p.MaxBuyAmount != nil {
		s.MaxBuyAmount = *p.MaxBuyAmount
	}
	if p.TakeProfitPct != nil {
		s.TakeProfitPct = *p.TakeProfitPct
	}
	if p.StopLossPct != nil {
		s.StopLossPct = *p.StopLossPct
	}
	if p.ScanIntervalMin != nil {
		s.ScanIntervalMin = *p.ScanIntervalMin
	}
	if p.AutoTradeEnabled != nil {
		s.AutoTradeEnabled = *p.AutoTradeEnabled
	}
	if p.MaxOpenPositions != nil {
		s.MaxOpenPositions = *p.MaxOpenPositions
	}
}

// DefaultSettings returns the settings used for a fresh state file.
func DefaultSettings() Settings {
	return Settings{
		MaxMarketCap:     50000,
		MaxBuyAmount:     5,
		TakeProfitPct:    100,
		StopLossPct:      50,
		ScanIntervalMin:  30,
		AutoTradeEnabled: false,
		MaxOpenPositions: 3,
	}
}

// AgentMemory is the persisted aggregate root.
type AgentMemory struct {
	Tokens          map[string]*TokenMemory `json:"tokens"`
	Trades          []TradeEntry            `json:"trades"`
	PolymarketBets  []PolymarketTrade       `json:"polymarketTrades"`
	Learnings       []string                `json:"learnings"`
	BetLearnings    []string                `json:"polymarketLearnings"`
	LastScanTime    time.Time               `json:"lastScanTime"`
	TotalTrades     int                     `json:"totalTrades"`
	WinRate         float64                 `json:"winRate"`
	TotalPnL        float64                 `json:"totalPnl"`
	PolymarketStats PolymarketStats         `json:"polymarketStats"`
	Settings        Settings                `json:"settings"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}
