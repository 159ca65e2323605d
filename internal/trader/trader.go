// Package trader implements the three agent loops: the candidate scanner, the position
// monitor and the prediction-market loop. Each loop returns a display string and never
// an error; failures are logged and rendered as text.
package trader

import (
	"context"
	"fmt"
	"time"

	"TradePilot/internal/agentapi"
	"TradePilot/internal/memory"
	"TradePilot/internal/metrics"
	"TradePilot/internal/recorder"
	"TradePilot/internal/risk"
	"TradePilot/internal/safety"

	"go.uber.org/zap"
)

// Notifier receives human-formatted summaries. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}

// Deps are the collaborators shared by every loop.
type Deps struct {
	Store        *memory.Manager
	Guard        *risk.Guard
	Exec         *safety.Executor
	Agent        agentapi.Agent
	Notifier     Notifier
	Recorder     recorder.Recorder
	Metrics      *metrics.Metrics
	Log          *zap.Logger
	UserID       string
	Chain        string  // chain the scanner trades on
	PortfolioUSD float64 // portfolio value fed to the risk guard
}

func (d *Deps) fill() {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.UserID == "" {
		d.UserID = "agent"
	}
}

// prompt sends one instruction to the agent through the safety wrapper.
func (d *Deps) prompt(ctx context.Context, action safety.ActionType, params map[string]any, text string) *safety.Result {
	req := safety.Request{Action: action, UserID: d.UserID, Params: params}
	return d.Exec.Execute(ctx, req, func(ctx context.Context) (string, error) {
		resp, err := d.Agent.Prompt(ctx, text, "")
		if err != nil {
			return "", err
		}
		if !resp.Success {
			return resp.Text, fmt.Errorf("agent reported failure: %s", resp.Text)
		}
		return resp.Text, nil
	})
}

func (d *Deps) recordTrade(evt *recorder.TradeEvent) {
	if err := d.Recorder.RecordTradeEvent(evt); err != nil {
		d.Log.Error("record trade event", zap.String("event", evt.EventType), zap.Error(err))
	}
}

func (d *Deps) recordBet(evt *recorder.BetEvent) {
	if err := d.Recorder.RecordBetEvent(evt); err != nil {
		d.Log.Error("record bet event", zap.String("event", evt.EventType), zap.Error(err))
	}
}

func cycleID(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
