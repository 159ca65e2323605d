package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TradePilot/internal/model"
)

// LoadState reads the agent memory from a JSON file. A missing file yields a fresh state;
// settings absent from the file keep their defaults.
func LoadState(filePath string) (*model.AgentMemory, error) {
	state := &model.AgentMemory{Settings: model.DefaultSettings()}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(state)
			return state, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	applyDefaults(state)
	return state, nil
}

// SaveState writes the whole aggregate to a JSON file.
func SaveState(filePath string, state *model.AgentMemory) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, filePath)
}

func applyDefaults(state *model.AgentMemory) {
	def := model.DefaultSettings()
	s := &state.Settings
	if s.MaxMarketCap <= 0 {
		s.MaxMarketCap = def.MaxMarketCap
	}
	if s.MaxBuyAmount <= 0 {
		s.MaxBuyAmount = def.MaxBuyAmount
	}
	if s.TakeProfitPct <= 0 {
		s.TakeProfitPct = def.TakeProfitPct
	}
	if s.StopLossPct <= 0 {
		s.StopLossPct = def.StopLossPct
	}
	if s.ScanIntervalMin <= 0 {
		s.ScanIntervalMin = def.ScanIntervalMin
	}
	// zero open positions is a valid setting that halts new buys
	if s.MaxOpenPositions < 0 {
		s.MaxOpenPositions = def.MaxOpenPositions
	}
	if state.Tokens == nil {
		state.Tokens = make(map[string]*model.TokenMemory)
	}
	if state.Trades == nil {
		state.Trades = []model.TradeEntry{}
	}
	if state.PolymarketBets == nil {
		state.PolymarketBets = []model.PolymarketTrade{}
	}
	if state.Learnings == nil {
		state.Learnings = []string{}
	}
	if state.BetLearnings == nil {
		state.BetLearnings = []string{}
	}
}
