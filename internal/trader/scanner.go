package trader

import (
	"context"
	"fmt"
	"strings"
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

// MsgScanInProgress is returned when a scan is requested while one is running.
const MsgScanInProgress = "⏳ Scan already in progress"

// Scanner finds, scores and optionally buys low-cap tokens.
type Scanner struct {
	Deps
	running atomic.Bool
	now     func() time.Time
}

// NewScanner creates a Scanner.
func NewScanner(d Deps) *Scanner {
	d.fill()
	d.Log = d.Log.With(zap.String("module", "scanner"))
	return &Scanner{Deps: d, now: time.Now}
}

// Running reports whether a scan is in flight.
func (s *Scanner) Running() bool { return s.running.Load() }

// Scan runs one find, score and buy cycle and returns the report.
func (s *Scanner) Scan(ctx context.Context) string {
	if !s.running.CompareAndSwap(false, true) {
		return MsgScanInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	cycle := cycleID(start)
	settings := s.Store.Settings()
	s.Log.Info("scan started", zap.Float64("max_market_cap", settings.MaxMarketCap))

	find := s.prompt(ctx, safety.ActionScan, map[string]any{
		"step": "find", "maxMarketCap": settings.MaxMarketCap, "chain": s.Chain, "cycle": cycle,
	}, findPrompt(settings, s.Chain))
	if !find.Success {
		return s.abort(ctx, "find candidates", find)
	}

	score := s.prompt(ctx, safety.ActionScan, map[string]any{
		"step": "score", "cycle": cycle,
	}, scorePrompt(find.Output, s.Store.Learnings(5)))
	if !score.Success {
		return s.abort(ctx, "score candidates", score)
	}

	parsed := parser.ParseScoreLines(score.Output)
	for _, r := range parsed.Rejected {
		s.Log.Debug("score line rejected", zap.String("line", r.Line), zap.String("reason", r.Reason))
	}
	ranked := strategy.Rank(parsed.Candidates)
	for _, c := range ranked {
		if err := s.Store.UpsertToken(c.Symbol, func(t *model.TokenMemory) {
			t.Score = c.Score
			t.Price = c.Price
			t.MarketCap = c.MarketCap
			t.Volume = c.Volume24h
			t.Summary = c.Reason
		}); err != nil {
			s.Log.Error("update token memory", zap.String("symbol", c.Symbol), zap.Error(err))
		}
	}
	viable := strategy.Viable(ranked)

	buys, note := s.autoBuy(ctx, viable, settings, cycle)

	if err := s.Store.SetLastScan(start); err != nil {
		s.Log.Error("set last scan", zap.Error(err))
	}
	s.Metrics.ObserveScan(s.now().Sub(start).Seconds(), len(ranked))
	s.Metrics.SetOpenPositions(len(s.Store.OpenTrades()))

	s.Log.Info("scan finished",
		zap.Int("candidates", len(ranked)),
		zap.Int("rejected", len(parsed.Rejected)),
		zap.Int("viable", len(viable)),
		zap.Int("buys", len(buys)))

	report := notifier.FormatScanReport(ranked, len(viable), buys, note)
	s.Notifier.Notify(ctx, report)
	return report
}

func (s *Scanner) abort(ctx context.Context, step string, res *safety.Result) string {
	s.Log.Error("scan aborted", zap.String("step", step), zap.Error(res.Err()))
	msg := fmt.Sprintf("❌ Scan failed: %s", res.Error.Message)
	s.Notifier.Notify(ctx, msg)
	return msg
}

// autoBuy opens up to the free position slots from the viable candidates, best first.
func (s *Scanner) autoBuy(ctx context.Context, viable []model.Candidate, settings model.Settings, cycle string) ([]model.TradeEntry, string) {
	if !settings.AutoTradeEnabled || len(viable) == 0 {
		return nil, ""
	}

	open := s.Store.OpenTrades()
	slots := settings.MaxOpenPositions - len(open)
	if slots <= 0 {
		return nil, fmt.Sprintf("Max open positions reached (%d/%d)", len(open), settings.MaxOpenPositions)
	}
	held := make(map[string]bool, len(open))
	for _, t := range open {
		held[strings.ToUpper(t.Symbol)] = true
	}

	var buys []model.TradeEntry
	var note string
	for _, c := range viable {
		if len(buys) >= slots {
			break
		}
		sym := strings.ToUpper(c.Symbol)
		if held[sym] {
			continue
		}
		decision := s.Guard.CanTrade(settings.MaxBuyAmount, s.PortfolioUSD)
		if !decision.Allowed {
			note = "🛡️ Risk guard: " + decision.Reason
			s.Log.Warn("buy blocked by risk guard", zap.String("symbol", c.Symbol), zap.String("reason", decision.Reason))
			break
		}
		entry := s.buy(ctx, c, settings.MaxBuyAmount, cycle)
		if entry.Status == model.StatusOpen {
			held[sym] = true
		}
		buys = append(buys, entry)
	}
	s.Metrics.SetKillSwitch(s.Guard.Killed())
	return buys, note
}

func (s *Scanner) buy(ctx context.Context, c model.Candidate, amount float64, cycle string) model.TradeEntry {
	res := s.prompt(ctx, safety.ActionTrade, map[string]any{
		"side": "buy", "symbol": c.Symbol, "amount": amount, "cycle": cycle,
	}, buyPrompt(c, amount, s.Chain))

	entry := model.TradeEntry{
		Token:     c.Symbol,
		Symbol:    c.Symbol,
		Action:    model.ActionBuy,
		Amount:    fmt.Sprintf("$%g", amount),
		Price:     c.Price,
		MarketCap: c.MarketCap,
		Reason:    c.Reason,
	}
	if res.Success {
		entry.Status = model.StatusOpen
		entry.ExternalResponse = res.Output
		if entry.Price <= 0 {
			if p := parser.ExtractPrice(res.Output); p.OK {
				entry.Price = p.Value
			}
		}
	} else {
		entry.Status = model.StatusFailed
		entry.ExternalResponse = res.FailureText()
	}

	logged, err := s.Store.LogTrade(entry)
	if err != nil {
		s.Log.Error("log trade", zap.String("symbol", c.Symbol), zap.Error(err))
		logged = entry
	}

	evt := &recorder.TradeEvent{
		TradeID: logged.ID, Symbol: c.Symbol, Amount: logged.Amount, Price: logged.Price, Note: c.Reason,
	}
	if res.Success {
		evt.EventType = "OPEN"
		s.Metrics.TradeOpened()
		s.Guard.RecordTrade(0, s.PortfolioUSD)
		s.Log.Info("position opened", zap.String("symbol", c.Symbol), zap.Int("score", c.Score), zap.Float64("price", logged.Price))
	} else {
		evt.EventType = "FAILED"
		evt.Note = res.Error.Message
		s.Metrics.TradeFailed()
		s.Log.Warn("buy failed", zap.String("symbol", c.Symbol), zap.Error(res.Err()))
	}
	s.recordTrade(evt)
	return logged
}
