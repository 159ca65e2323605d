package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/parser"
	"TradePilot/internal/recorder"
	"TradePilot/internal/safety"
	"TradePilot/internal/strategy"

	"go.uber.org/zap"
)

const (
	// MsgPredictionInProgress is returned when a cycle is requested while one is running.
	MsgPredictionInProgress = "⏳ Prediction cycle already in progress"
	// MsgNoStrategy is returned when no strategy has been set.
	MsgNoStrategy = "ℹ️ No prediction strategy set. Send /bet <strategy> first."
)

// ErrEmptyStrategy is returned by SetStrategy for blank input.
var ErrEmptyStrategy = errors.New("strategy text is empty")

// PredictorConfig tunes the prediction loop.
type PredictorConfig struct {
	SettlementChain string        // the only chain the agent may spend from
	BetTimeout      time.Duration // wall-clock limit for the placement call
	BalanceTTL      time.Duration // how long a balance reading is reused
}

// DefaultPredictorConfig returns the production values.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		SettlementChain: "Polygon",
		BetTimeout:      3 * time.Minute,
		BalanceTTL:      5 * time.Minute,
	}
}

// Predictor places at most one prediction-market bet per cycle under a user strategy.
type Predictor struct {
	Deps
	cfg     PredictorConfig
	running atomic.Bool
	now     func() time.Time

	mu       sync.Mutex
	strategy string

	balMu     sync.Mutex
	balance   float64
	balanceAt time.Time
}

// NewPredictor creates a Predictor with no strategy. It never bets until SetStrategy is called.
func NewPredictor(d Deps, cfg PredictorConfig) *Predictor {
	d.fill()
	d.Log = d.Log.With(zap.String("module", "predictor"))
	return &Predictor{Deps: d, cfg: cfg, now: time.Now}
}

// SetStrategy records the user's strategy text.
func (p *Predictor) SetStrategy(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyStrategy
	}
	p.mu.Lock()
	p.strategy = text
	p.mu.Unlock()
	p.Log.Info("strategy set", zap.String("strategy", text))
	return nil
}

// ClearStrategy removes the strategy, disabling the loop.
func (p *Predictor) ClearStrategy() {
	p.mu.Lock()
	p.strategy = ""
	p.mu.Unlock()
	p.Log.Info("strategy cleared")
}

// Strategy returns the active strategy text, or "" when none is set.
func (p *Predictor) Strategy() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategy
}

// Run executes one prediction cycle.
func (p *Predictor) Run(ctx context.Context) string {
	if !p.running.CompareAndSwap(false, true) {
		return MsgPredictionInProgress
	}
	defer p.running.Store(false)

	strat := p.Strategy()
	if strat == "" {
		return MsgNoStrategy
	}
	cycle := cycleID(p.now())

	losses := p.Store.ConsecutiveBetLosses()
	if losses >= strategy.PauseLosses {
		p.Log.Warn("betting paused by loss streak", zap.Int("losses", losses))
		p.recordBet(&recorder.BetEvent{EventType: "PAUSED", Note: fmt.Sprintf("%d consecutive losses", losses)})
		p.Metrics.BetSkipped("loss_streak")
		msg := notifier.FormatBetPaused(losses)
		p.Notifier.Notify(ctx, msg)
		return msg
	}
	if p.Guard.Killed() {
		p.Metrics.BetSkipped("kill_switch")
		return "🚨 Kill switch active. No bets until /killreset."
	}

	balance, err := p.availableBalance(ctx, cycle)
	if err != nil {
		p.Log.Error("balance check failed", zap.Error(err))
		p.Metrics.BetSkipped("balance")
		return "❌ Failed: " + err.Error()
	}

	sizing := strategy.SizeBet(p.Store.BetStats(), balance, strat)
	strategy.ApplyLossStreak(&sizing, losses)
	if sizing.Amount > balance {
		p.Metrics.BetSkipped("balance")
		return fmt.Sprintf("❌ Failed: balance $%.2f is below the minimum bet $%.2f", balance, sizing.Amount)
	}
	p.Log.Info("bet sized",
		zap.Float64("balance", balance),
		zap.Float64("win_rate", sizing.WinRate),
		zap.Float64("risk_factor", sizing.RiskFactor),
		zap.Float64("amount", sizing.Amount),
		zap.Bool("halved", sizing.Halved))

	betCtx, cancel := context.WithTimeout(ctx, p.cfg.BetTimeout)
	res := p.prompt(betCtx, safety.ActionPredictionBet, map[string]any{
		"strategy": strat, "amount": sizing.Amount, "cycle": cycle,
	}, betPrompt(strat, sizing, p.Store.BetLearnings(5), p.cfg.SettlementChain))
	cancel()
	if !res.Success {
		p.Log.Error("bet placement failed", zap.Error(res.Err()))
		p.Metrics.BetSkipped("failed")
		msg := res.FailureText()
		p.Notifier.Notify(ctx, msg)
		return msg
	}

	if skip, line := parser.IsSkip(res.Output); skip {
		p.Log.Info("agent skipped the cycle", zap.String("reason", line))
		p.recordBet(&recorder.BetEvent{
			EventType: "SKIPPED", Amount: sizing.Amount, WinRate: sizing.WinRate, RiskFactor: sizing.RiskFactor, Note: line,
		})
		p.Metrics.BetSkipped("no_edge")
		msg := notifier.FormatBetSkipped(line)
		p.Notifier.Notify(ctx, msg)
		return msg
	}

	details := parser.ParseBetDetails(res.Output)
	bet, err := p.Store.AddBet(model.PolymarketTrade{
		Market:           details.Market,
		Outcome:          details.Outcome,
		Odds:             details.Odds,
		Amount:           sizing.Amount,
		ExternalResponse: res.Output,
	})
	if err != nil {
		p.Log.Error("add bet", zap.Error(err))
	}
	p.invalidateBalance()
	p.recordBet(&recorder.BetEvent{
		BetID: bet.ID, EventType: "PLACED", Market: bet.Market, Outcome: bet.Outcome,
		Amount: bet.Amount, WinRate: sizing.WinRate, RiskFactor: sizing.RiskFactor, Note: sizing.Caution,
	})
	p.Metrics.BetPlaced()

	p.reflect(ctx, strat, bet)

	msg := notifier.FormatBetPlaced(bet, sizing)
	p.Notifier.Notify(ctx, msg)
	return msg
}

// Settle resolves a pending bet with the operator-reported result.
func (p *Predictor) Settle(id string, result model.BetResult, pnl float64) (model.PolymarketTrade, error) {
	bet, err := p.Store.SettleBet(id, result, pnl)
	if err != nil {
		return bet, err
	}
	p.recordBet(&recorder.BetEvent{
		BetID: bet.ID, EventType: "SETTLED", Market: bet.Market, Outcome: string(bet.Result), Amount: bet.PnL,
	})
	p.Log.Info("bet settled", zap.String("bet_id", id), zap.String("result", string(result)), zap.Float64("pnl", pnl))
	return bet, nil
}

func (p *Predictor) reflect(ctx context.Context, strat string, bet model.PolymarketTrade) {
	res := p.prompt(ctx, safety.ActionResearch, map[string]any{
		"step": "reflect", "bet": bet.ID,
	}, reflectPrompt(strat, bet, p.Store.RecentBets(10)))
	if !res.Success {
		p.Log.Warn("reflection failed", zap.Error(res.Err()))
		return
	}
	note := strings.TrimSpace(res.Output)
	if note == "" {
		return
	}
	if err := p.Store.AddBetLearning(note); err != nil {
		p.Log.Error("add bet learning", zap.Error(err))
	}
}

// availableBalance returns the cached balance, refreshing it once per BalanceTTL.
func (p *Predictor) availableBalance(ctx context.Context, cycle string) (float64, error) {
	p.balMu.Lock()
	defer p.balMu.Unlock()

	if !p.balanceAt.IsZero() && p.now().Sub(p.balanceAt) < p.cfg.BalanceTTL {
		return p.balance, nil
	}

	res := p.prompt(ctx, safety.ActionResearch, map[string]any{
		"step": "balance", "chain": p.cfg.SettlementChain, "cycle": cycle,
	}, balancePrompt(p.cfg.SettlementChain))
	if !res.Success {
		return 0, fmt.Errorf("read balance: %s", res.Error.Message)
	}
	v := parser.ExtractPrice(res.Output)
	if !v.OK {
		return 0, fmt.Errorf("read balance: could not parse %q", res.Output)
	}
	p.balance = v.Value
	p.balanceAt = p.now()
	return p.balance, nil
}

func (p *Predictor) invalidateBalance() {
	p.balMu.Lock()
	p.balanceAt = time.Time{}
	p.balMu.Unlock()
}
