package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/trader"
)

const helpText = "Available commands:\n" +
	"• /scan - scan for candidates now\n" +
	"• /check - check open positions now\n" +
	"• /positions - list open positions\n" +
	"• /status - agent status\n" +
	"• /settings - show settings\n" +
	"• /set &lt;key&gt; &lt;value&gt; - change a setting (maxmcap, buy, tp, sl, interval, maxpos, auto)\n" +
	"• /bet &lt;strategy&gt; - start prediction betting\n" +
	"• /stopbet - stop prediction betting\n" +
	"• /settle &lt;bet id&gt; win|loss &lt;pnl&gt; - settle a bet\n" +
	"• /killreset - clear the drawdown kill switch\n" +
	"• /start, /stop - start or stop the timers"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := strings.ToLower(fields[0])
	if i := strings.Index(name, "@"); i > 0 {
		name = name[:i]
	}
	rest := strings.TrimSpace(strings.TrimPrefix(command, fields[0]))

	switch name {
	case "/scan":
		if s.scanner.Running() {
			return trader.MsgScanInProgress
		}
		go s.RunScanNow(s.ctx)
		return "🔍 Scan started"
	case "/check":
		if s.monitor.Running() {
			return trader.MsgMonitorInProgress
		}
		go func() { s.trySend(s.RunMonitorNow(s.ctx)) }()
		return "🔎 Checking open positions"
	case "/positions":
		return notifier.FormatPositions(s.store.OpenTrades())
	case "/status":
		return notifier.FormatStatus(s.Status())
	case "/settings":
		return notifier.FormatSettings(s.store.Settings())
	case "/set":
		return s.setCommand(fields[1:])
	case "/bet":
		if rest == "" {
			if cur := s.predictor.Strategy(); cur != "" {
				return "🎲 Current strategy: " + cur
			}
			return trader.MsgNoStrategy
		}
		if err := s.SetStrategy(rest); err != nil {
			return "❌ Failed: " + err.Error()
		}
		if !s.Running() {
			return "🎲 Strategy saved. Timers are stopped; send /start to begin betting."
		}
		return fmt.Sprintf("🎲 Strategy set. Betting every %s.", s.cfg.PredictionInterval)
	case "/stopbet":
		s.ClearStrategy()
		return "⏹️ Prediction betting stopped"
	case "/settle":
		return s.settleCommand(fields[1:])
	case "/killreset":
		s.ResetKillSwitch()
		return "✅ Kill switch reset. Auto-trading may resume."
	case "/start":
		s.Start()
		return "▶️ Agent started"
	case "/stop":
		s.Stop()
		return "⏹️ Agent stopped"
	default:
		return helpText
	}
}

func (s *Scheduler) setCommand(args []string) string {
	if len(args) != 2 {
		return "Usage: /set &lt;key&gt; &lt;value&gt;"
	}
	patch, err := parseSetting(strings.ToLower(args[0]), args[1])
	if err != nil {
		return "❌ Failed: " + err.Error()
	}
	settings, err := s.UpdateSettings(patch)
	if err != nil {
		return "❌ Failed: " + err.Error()
	}
	return notifier.FormatSettings(settings)
}

func parseSetting(key, value string) (model.SettingsPatch, error) {
	var p model.SettingsPatch
	switch key {
	case "maxmcap", "buy", "tp", "sl":
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(value, "$"), "%"), 64)
		if err != nil {
			return p, fmt.Errorf("%s must be a number", key)
		}
		switch key {
		case "maxmcap":
			p.MaxMarketCap = &v
		case "buy":
			p.MaxBuyAmount = &v
		case "tp":
			p.TakeProfitPct = &v
		case "sl":
			p.StopLossPct = &v
		}
	case "interval", "maxpos":
		v, err := strconv.Atoi(value)
		if err != nil {
			return p, fmt.Errorf("%s must be an integer", key)
		}
		if key == "interval" {
			p.ScanIntervalMin = &v
		} else {
			p.MaxOpenPositions = &v
		}
	case "auto":
		v, err := parseSwitch(value)
		if err != nil {
			return p, err
		}
		p.AutoTradeEnabled = &v
	default:
		return p, fmt.Errorf("unknown setting %q", key)
	}
	return p, nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("auto must be on or off")
}

func (s *Scheduler) settleCommand(args []string) string {
	if len(args) != 3 {
		return "Usage: /settle &lt;bet id&gt; win|loss &lt;pnl&gt;"
	}
	result := model.BetResult(strings.ToLower(args[1]))
	pnl, err := strconv.ParseFloat(strings.TrimPrefix(args[2], "$"), 64)
	if err != nil {
		return "❌ Failed: pnl must be a number"
	}
	bet, err := s.SettleBet(args[0], result, pnl)
	if err != nil {
		return "❌ Failed: " + err.Error()
	}
	return fmt.Sprintf("✅ Bet settled: %s → %s ($%+.2f)", bet.Market, bet.Result, bet.PnL)
}
