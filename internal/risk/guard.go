// Package risk gates new positions behind daily limits, loss-streak cooldowns and a
// drawdown kill switch.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limits configures the guard.
type Limits struct {
	MaxTradesPerDay       int
	MaxPositionPct        float64 // position size as percent of portfolio
	DrawdownKillSwitchPct float64 // cumulative drawdown percent that latches the kill switch
	CooldownAfterLosses   int
	Cooldown              time.Duration
}

// DefaultLimits returns conservative defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxTradesPerDay:       10,
		MaxPositionPct:        10,
		DrawdownKillSwitchPct: 50,
		CooldownAfterLosses:   3,
		Cooldown:              time.Hour,
	}
}

// Decision is the outcome of CanTrade.
type Decision struct {
	Allowed bool
	Reason  string
}

// State is a snapshot of the guard counters.
type State struct {
	DailyTrades       int       `json:"dailyTrades"`
	DailyLoss         float64   `json:"dailyLoss"`
	LastResetDate     string    `json:"lastResetDate"`
	ConsecutiveLosses int       `json:"consecutiveLosses"`
	LastLossTime      time.Time `json:"lastLossTime"`
	TotalDrawdown     float64   `json:"totalDrawdown"`
	AutoTradeKilled   bool      `json:"autoTradeKilled"`
}

// Guard holds per-process risk counters. Daily counters reset on calendar date change;
// the kill switch stays latched until ResetKillSwitch.
type Guard struct {
	mu     sync.Mutex
	limits Limits
	state  State
	now    func() time.Time
	log    *zap.Logger
}

// NewGuard creates a Guard.
func NewGuard(limits Limits, log *zap.Logger) *Guard {
	return NewGuardWithClock(limits, log, time.Now)
}

// NewGuardWithClock creates a Guard reading time from now.
func NewGuardWithClock(limits Limits, log *zap.Logger, now func() time.Time) *Guard {
	g := &Guard{
		limits: limits,
		now:    now,
		log:    log.With(zap.String("module", "risk")),
	}
	g.state.LastResetDate = now().Format("2006-01-02")
	return g
}

// CanTrade reports whether a new position of positionSizeUSD may be opened.
func (g *Guard) CanTrade(positionSizeUSD, portfolioValue float64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()

	if g.state.AutoTradeKilled {
		return Decision{Reason: fmt.Sprintf("kill switch active: drawdown $%.2f exceeded %.0f%% of portfolio", g.state.TotalDrawdown, g.limits.DrawdownKillSwitchPct)}
	}
	if g.state.DailyTrades >= g.limits.MaxTradesPerDay {
		return Decision{Reason: fmt.Sprintf("daily trade limit reached (%d/%d)", g.state.DailyTrades, g.limits.MaxTradesPerDay)}
	}
	if portfolioValue <= 0 {
		return Decision{Reason: "portfolio value unknown"}
	}
	if pct := positionSizeUSD / portfolioValue * 100; pct > g.limits.MaxPositionPct {
		return Decision{Reason: fmt.Sprintf("position size %.1f%% exceeds max %.1f%%", pct, g.limits.MaxPositionPct)}
	}
	if g.state.ConsecutiveLosses >= g.limits.CooldownAfterLosses {
		if remaining := g.limits.Cooldown - g.now().Sub(g.state.LastLossTime); remaining > 0 {
			return Decision{Reason: fmt.Sprintf("cooling down after %d consecutive losses (%s left)", g.state.ConsecutiveLosses, remaining.Round(time.Second))}
		}
	}
	return Decision{Allowed: true}
}

// RecordTrade counts a trade and applies its realized pnl to the loss counters.
func (g *Guard) RecordTrade(pnlUSD, portfolioValue float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()

	g.state.DailyTrades++
	switch {
	case pnlUSD < 0:
		loss := -pnlUSD
		g.state.DailyLoss += loss
		g.state.ConsecutiveLosses++
		g.state.LastLossTime = g.now()
		g.state.TotalDrawdown += loss
		if portfolioValue > 0 && g.state.TotalDrawdown/portfolioValue*100 > g.limits.DrawdownKillSwitchPct && !g.state.AutoTradeKilled {
			g.state.AutoTradeKilled = true
			g.log.Warn("kill switch latched",
				zap.Float64("drawdown", g.state.TotalDrawdown),
				zap.Float64("portfolio", portfolioValue))
		}
	case pnlUSD > 0:
		g.state.ConsecutiveLosses = 0
		g.state.TotalDrawdown -= pnlUSD / 2
		if g.state.TotalDrawdown < 0 {
			g.state.TotalDrawdown = 0
		}
	}
}

// ResetKillSwitch is the only way to clear a latched kill switch.
func (g *Guard) ResetKillSwitch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.AutoTradeKilled = false
	g.log.Info("kill switch reset manually")
}

// Killed reports whether the kill switch is latched.
func (g *Guard) Killed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.AutoTradeKilled
}

// Status returns a snapshot of the counters.
func (g *Guard) Status() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.state
}

// Limits returns the configured limits.
func (g *Guard) Limits() Limits { return g.limits }

func (g *Guard) rolloverLocked() {
	today := g.now().Format("2006-01-02")
	if today != g.state.LastResetDate {
		g.state.DailyTrades = 0
		g.state.DailyLoss = 0
		g.state.LastResetDate = today
	}
}
