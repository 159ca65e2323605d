package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/memory"
	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/risk"
	"TradePilot/internal/trader"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config holds the fixed loop intervals. The scan interval comes from the persisted settings.
type Config struct {
	MonitorInterval    time.Duration
	PredictionInterval time.Duration
}

// DefaultConfig returns the production intervals.
func DefaultConfig() Config {
	return Config{
		MonitorInterval:    5 * time.Minute,
		PredictionInterval: 30 * time.Minute,
	}
}

// Scheduler owns the loop timers. Stopped -> Running arms the scan and monitor entries,
// plus the prediction entry when a strategy is set. Running -> Stopped removes every entry
// and clears the strategy; cycles already in flight finish on their own.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	scanner   *trader.Scanner
	monitor   *trader.Monitor
	predictor *trader.Predictor
	store     *memory.Manager
	guard     *risk.Guard
	notifier  trader.Notifier
	log       *zap.Logger
	ctx       context.Context

	mu        sync.Mutex
	running   bool
	scanID    cron.EntryID
	monitorID cron.EntryID
	predictID cron.EntryID
}

// NewScheduler creates a stopped Scheduler. ctx bounds every cycle it starts.
func NewScheduler(ctx context.Context, cfg Config, sc *trader.Scanner, mon *trader.Monitor, pred *trader.Predictor,
	store *memory.Manager, guard *risk.Guard, n trader.Notifier, log *zap.Logger) *Scheduler {
	log = log.With(zap.String("module", "scheduler"))
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cfg:       cfg,
		scanner:   sc,
		monitor:   mon,
		predictor: pred,
		store:     store,
		guard:     guard,
		notifier:  n,
		log:       log,
		ctx:       ctx,
	}
}

// Start arms the loop timers. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	interval := time.Duration(s.store.Settings().ScanIntervalMin) * time.Minute
	s.scanID = s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.scanJob))
	s.monitorID = s.cron.Schedule(cron.Every(s.cfg.MonitorInterval), cron.FuncJob(s.monitorJob))
	if s.predictor.Strategy() != "" {
		s.armPredictionLocked()
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started",
		zap.Duration("scan_every", interval),
		zap.Duration("monitor_every", s.cfg.MonitorInterval),
		zap.Bool("prediction", s.predictID != 0))
}

// Stop removes every timer and clears the prediction strategy.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictor.ClearStrategy()
	if !s.running {
		return
	}
	for _, id := range []cron.EntryID{s.scanID, s.monitorID, s.predictID} {
		if id != 0 {
			s.cron.Remove(id)
		}
	}
	s.scanID, s.monitorID, s.predictID = 0, 0, 0
	s.cron.Stop()
	s.running = false
	s.log.Info("scheduler stopped")
}

// Running reports whether the timers are armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// UpdateSettings persists a settings patch. When the scan interval changes while running,
// only the scan timer is re-armed.
func (s *Scheduler) UpdateSettings(patch model.SettingsPatch) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.store.Settings()
	after, err := s.store.UpdateSettings(patch)
	if err != nil {
		return before, err
	}
	if s.running && after.ScanIntervalMin != before.ScanIntervalMin {
		s.cron.Remove(s.scanID)
		s.scanID = s.cron.Schedule(cron.Every(time.Duration(after.ScanIntervalMin)*time.Minute), cron.FuncJob(s.scanJob))
		s.log.Info("scan timer re-armed", zap.Int("interval_min", after.ScanIntervalMin))
	}
	return after, nil
}

// SetStrategy records a prediction strategy and arms the prediction timer when running.
func (s *Scheduler) SetStrategy(text string) error {
	if err := s.predictor.SetStrategy(text); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.predictID == 0 {
		s.armPredictionLocked()
	}
	return nil
}

// ClearStrategy disables the prediction loop.
func (s *Scheduler) ClearStrategy() {
	s.predictor.ClearStrategy()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.predictID != 0 {
		s.cron.Remove(s.predictID)
		s.predictID = 0
	}
}

func (s *Scheduler) armPredictionLocked() {
	s.predictID = s.cron.Schedule(cron.Every(s.cfg.PredictionInterval), cron.FuncJob(s.predictionJob))
}

// RunScanNow runs a scan immediately.
func (s *Scheduler) RunScanNow(ctx context.Context) string { return s.scanner.Scan(ctx) }

// RunMonitorNow checks open positions immediately.
func (s *Scheduler) RunMonitorNow(ctx context.Context) string { return s.monitor.Run(ctx) }

// RunPredictionNow runs one prediction cycle immediately.
func (s *Scheduler) RunPredictionNow(ctx context.Context) string { return s.predictor.Run(ctx) }

// SettleBet resolves a pending prediction-market bet.
func (s *Scheduler) SettleBet(id string, result model.BetResult, pnl float64) (model.PolymarketTrade, error) {
	return s.predictor.Settle(id, result, pnl)
}

// ResetKillSwitch clears a latched drawdown kill switch.
func (s *Scheduler) ResetKillSwitch() {
	s.guard.ResetKillSwitch()
}

// Status collects the data shown by /status.
func (s *Scheduler) Status() notifier.StatusView {
	mem := s.store.Snapshot()
	rs := s.guard.Status()
	return notifier.StatusView{
		Running:         s.Running(),
		Strategy:        s.predictor.Strategy(),
		Memory:          mem,
		OpenPositions:   len(s.store.OpenTrades()),
		KillSwitch:      rs.AutoTradeKilled,
		DailyTrades:     rs.DailyTrades,
		MaxTradesPerDay: s.guard.Limits().MaxTradesPerDay,
	}
}

// entries returns the number of armed timers.
func (s *Scheduler) entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) scanJob() {
	s.log.Info("running scheduled scan")
	s.scanner.Scan(s.ctx)
}

func (s *Scheduler) monitorJob() {
	out := s.monitor.Run(s.ctx)
	s.log.Info("scheduled monitor finished", zap.String("result", out))
}

func (s *Scheduler) predictionJob() {
	out := s.predictor.Run(s.ctx)
	s.log.Info("scheduled prediction cycle finished", zap.String("result", out))
}

func (s *Scheduler) trySend(text string) {
	if text == "" {
		return
	}
	if s.notifier == nil {
		s.log.Info("notification", zap.String("text", text))
		return
	}
	s.notifier.Notify(s.ctx, text)
}

// cronLogger routes cron's own logging through zap. Scheduling chatter goes to debug.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(fmt.Sprintf("%s: %v", msg, err), keysAndValues...)
}
