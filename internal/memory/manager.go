package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"TradePilot/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrTradeNotOpen  = errors.New("trade is not open")
	ErrBetNotFound   = errors.New("bet not found")
	ErrBetSettled    = errors.New("bet already settled")
	ErrInvalidResult = errors.New("bet result must be win or loss")
)

// Manager owns the agent memory. Every mutation holds the lock for the whole
// read-modify-save cycle, so the loops never interleave writes.
type Manager struct {
	mu       sync.Mutex
	state    *model.AgentMemory
	filePath string
	log      *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager, loading or initializing state from disk.
func NewManager(filePath string, defaults model.Settings, log *zap.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}

	// Fresh state takes the configured defaults
	if state.UpdatedAt.IsZero() {
		state.Settings = defaults
		applyDefaults(state)
	}

	m := &Manager{
		state:    state,
		filePath: filePath,
		log:      log.With(zap.String("module", "memory")),
		now:      time.Now,
	}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Snapshot returns a deep copy of the current aggregate.
func (m *Manager) Snapshot() model.AgentMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *m.state
	cp.Tokens = make(map[string]*model.TokenMemory, len(m.state.Tokens))
	for k, v := range m.state.Tokens {
		t := *v
		t.Tags = append([]string(nil), v.Tags...)
		cp.Tokens[k] = &t
	}
	cp.Trades = append([]model.TradeEntry(nil), m.state.Trades...)
	cp.PolymarketBets = append([]model.PolymarketTrade(nil), m.state.PolymarketBets...)
	cp.Learnings = append([]string(nil), m.state.Learnings...)
	cp.BetLearnings = append([]string(nil), m.state.BetLearnings...)
	return cp
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() model.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Settings
}

// UpdateSettings merges a partial patch into the settings and persists immediately.
func (m *Manager) UpdateSettings(patch model.SettingsPatch) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Settings
	patch.Apply(&next)
	if err := validateSettings(next); err != nil {
		return m.state.Settings, err
	}
	m.state.Settings = next
	return next, m.save()
}

func validateSettings(s model.Settings) error {
	switch {
	case s.MaxMarketCap <= 0:
		return fmt.Errorf("maxMarketCap must be positive")
	case s.MaxBuyAmount <= 0:
		return fmt.Errorf("maxBuyAmount must be positive")
	case s.TakeProfitPct <= 0:
		return fmt.Errorf("takeProfitPct must be positive")
	case s.StopLossPct <= 0 || s.StopLossPct > 100:
		return fmt.Errorf("stopLossPct must be in (0, 100]")
	case s.ScanIntervalMin < 1:
		return fmt.Errorf("scanIntervalMin must be at least 1")
	case s.MaxOpenPositions < 0:
		return fmt.Errorf("maxOpenPositions must not be negative")
	}
	return nil
}

// LogTrade appends a trade entry, assigning an id and timestamp if missing.
func (m *Manager) LogTrade(entry model.TradeEntry) (model.TradeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	if entry.Status == "" {
		entry.Status = model.StatusOpen
	}
	m.state.Trades = append(m.state.Trades, entry)

	if entry.Status == model.StatusOpen {
		m.state.TotalTrades++
		tok := m.tokenLocked(entry.Symbol)
		tok.TradeCount++
	}
	return entry, m.save()
}

// CloseTrade moves an open trade to closed, recording the realized pnl percent and exit price.
func (m *Manager) CloseTrade(id string, pnlPct, exitPrice float64) (model.TradeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.findTradeLocked(id)
	if idx < 0 {
		return model.TradeEntry{}, ErrTradeNotFound
	}
	t := &m.state.Trades[idx]
	if !t.IsOpen() {
		return *t, ErrTradeNotOpen
	}

	pnl := math.Round(pnlPct*100) / 100
	now := m.now()
	t.Status = model.StatusClosed
	t.PnL = &pnl
	t.ExitPrice = &exitPrice
	t.ExitTimestamp = &now

	m.state.TotalPnL += pnl
	m.tokenLocked(t.Symbol).TotalPnL += pnl
	m.state.WinRate = winRate(m.state.Trades)

	closed := *t
	return closed, m.save()
}

// OpenTrades returns copies of all trades still open.
func (m *Manager) OpenTrades() []model.TradeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var open []model.TradeEntry
	for _, t := range m.state.Trades {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	return open
}

// IsOpen reports whether the trade with the given id is still open.
func (m *Manager) IsOpen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.findTradeLocked(id)
	return idx >= 0 && m.state.Trades[idx].IsOpen()
}

// RecomputeWinRate recalculates the win rate from closed trades. Calling it repeatedly
// without new closes yields the same value.
func (m *Manager) RecomputeWinRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.WinRate = winRate(m.state.Trades)
	return m.state.WinRate
}

func winRate(trades []model.TradeEntry) float64 {
	var closed, wins int
	for _, t := range trades {
		if t.Status != model.StatusClosed || t.PnL == nil {
			continue
		}
		closed++
		if *t.PnL > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed)
}

// UpsertToken applies fn to the research entry for symbol, creating it if needed.
func (m *Manager) UpsertToken(symbol string, fn func(t *model.TokenMemory)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok := m.tokenLocked(symbol)
	fn(tok)
	tok.LastResearched = m.now()
	return m.save()
}

// Token returns a copy of the research entry for symbol.
func (m *Manager) Token(symbol string) (model.TokenMemory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.state.Tokens[strings.ToUpper(symbol)]
	if !ok {
		return model.TokenMemory{}, false
	}
	return *tok, true
}

// AddLearning appends a free-text learning, keeping the most recent MaxLearnings.
func (m *Manager) AddLearning(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Learnings = pushRing(m.state.Learnings, text, model.MaxLearnings)
	return m.save()
}

// Learnings returns up to n of the most recent trade learnings, oldest first.
func (m *Manager) Learnings(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tail(m.state.Learnings, n)
}

// SetLastScan records the time of the latest completed scan.
func (m *Manager) SetLastScan(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastScanTime = t
	return m.save()
}

// AddBet appends a pending prediction-market bet and counts it.
func (m *Manager) AddBet(bet model.PolymarketTrade) (model.PolymarketTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bet.ID == "" {
		bet.ID = uuid.NewString()
	}
	if bet.Timestamp.IsZero() {
		bet.Timestamp = m.now()
	}
	bet.Result = model.BetPending
	m.state.PolymarketBets = append(m.state.PolymarketBets, bet)
	m.state.PolymarketStats.TotalBets++
	return bet, m.save()
}

// SettleBet resolves a pending bet to win or loss.
func (m *Manager) SettleBet(id string, result model.BetResult, pnl float64) (model.PolymarketTrade, error) {
	if result != model.BetWin && result != model.BetLoss {
		return model.PolymarketTrade{}, ErrInvalidResult
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.state.PolymarketBets {
		b := &m.state.PolymarketBets[i]
		if b.ID != id {
			continue
		}
		if b.Result != model.BetPending {
			return *b, ErrBetSettled
		}
		now := m.now()
		b.Result = result
		b.PnL = pnl
		b.SettledAt = &now

		stats := &m.state.PolymarketStats
		if result == model.BetWin {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalPnL += pnl
		settled := *b
		return settled, m.save()
	}
	return model.PolymarketTrade{}, ErrBetNotFound
}

// AddBetLearning appends a reflection note, keeping the most recent MaxBetLearnings.
func (m *Manager) AddBetLearning(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.BetLearnings = pushRing(m.state.BetLearnings, text, model.MaxBetLearnings)
	return m.save()
}

// BetLearnings returns up to n of the most recent reflection notes, oldest first.
func (m *Manager) BetLearnings(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return tail(m.state.BetLearnings, n)
}

func tail(l []string, n int) []string {
	if n > 0 && len(l) > n {
		l = l[len(l)-n:]
	}
	return append([]string(nil), l...)
}

// BetStats returns a copy of the prediction-market aggregate.
func (m *Manager) BetStats() model.PolymarketStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.PolymarketStats
}

// RecentBets returns up to n of the newest bets, newest first.
func (m *Manager) RecentBets(n int) []model.PolymarketTrade {
	m.mu.Lock()
	defer m.mu.Unlock()

	bets := append([]model.PolymarketTrade(nil), m.state.PolymarketBets...)
	sort.SliceStable(bets, func(i, j int) bool { return bets[i].Timestamp.After(bets[j].Timestamp) })
	if n > 0 && len(bets) > n {
		bets = bets[:n]
	}
	return bets
}

// ConsecutiveBetLosses counts settled losses from the newest bet backwards until a win.
// Pending bets are ignored.
func (m *Manager) ConsecutiveBetLosses() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var losses int
	for i := len(m.state.PolymarketBets) - 1; i >= 0; i-- {
		switch m.state.PolymarketBets[i].Result {
		case model.BetLoss:
			losses++
		case model.BetWin:
			return losses
		}
	}
	return losses
}

func (m *Manager) findTradeLocked(id string) int {
	for i := range m.state.Trades {
		if m.state.Trades[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) tokenLocked(symbol string) *model.TokenMemory {
	key := strings.ToUpper(symbol)
	tok, ok := m.state.Tokens[key]
	if !ok {
		tok = &model.TokenMemory{Symbol: key}
		m.state.Tokens[key] = tok
	}
	return tok
}

func pushRing(buf []string, item string, limit int) []string {
	buf = append(buf, item)
	if len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	return buf
}

func (m *Manager) save() error {
	if err := SaveState(m.filePath, m.state); err != nil {
		m.log.Error("save state failed", zap.Error(err))
		return err
	}
	return nil
}
