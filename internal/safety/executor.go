package safety

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePilot/internal/metrics"
	"TradePilot/internal/recorder"

	"go.uber.org/zap"
)

// Operation is the guarded external call.
type Operation func(ctx context.Context) (string, error)

// Config tunes the executor.
type Config struct {
	Limits     map[ActionType]Limit
	Backoff    map[ErrorType]time.Duration
	MaxRetries int
	SuccessTTL time.Duration
	FailureTTL time.Duration
}

// DefaultConfig returns the production limits, backoffs and cache TTLs.
func DefaultConfig() Config {
	return Config{
		Limits: DefaultLimits(),
		Backoff: map[ErrorType]time.Duration{
			ErrorNetwork:   2 * time.Second,
			ErrorRateLimit: 60 * time.Second,
			ErrorSystem:    5 * time.Second,
		},
		MaxRetries: 3,
		SuccessTTL: time.Hour,
		FailureTTL: 5 * time.Minute,
	}
}

// Executor runs operations inside the safety envelope.
type Executor struct {
	cfg      Config
	mu       sync.Mutex
	inFlight map[string]struct{}
	limiter  *Limiter
	cache    *resultCache
	log      *zap.Logger
	metrics  *metrics.Metrics
	rec      recorder.Recorder
	now      func() time.Time
}

// NewExecutor creates an Executor. metrics may be nil; rec may be nil.
func NewExecutor(cfg Config, log *zap.Logger, m *metrics.Metrics, rec recorder.Recorder) *Executor {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Executor{
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
		limiter:  NewLimiter(cfg.Limits, time.Now),
		cache:    newResultCache(time.Now),
		log:      log.With(zap.String("module", "safety")),
		metrics:  m,
		rec:      rec,
		now:      time.Now,
	}
}

// Execute runs op for req unless it is a duplicate, rate limited or already cached.
func (e *Executor) Execute(ctx context.Context, req Request, op Operation) *Result {
	if req.ID == "" {
		req.ID = RequestID(req.Action, req.Params)
	}

	if res := e.admit(req); res != nil {
		e.report(req, res, "")
		return res
	}
	defer e.release(req.ID)

	start := e.now()
	res := &Result{RequestID: req.ID, Action: req.Action}
	for {
		out, err := op(ctx)
		if err == nil {
			res.Success = true
			res.Output = out
			res.Error = nil
			break
		}

		res.Error = Classify(err)
		res.Output = out
		if !res.Error.Retryable || res.RetryCount >= e.cfg.MaxRetries || ctx.Err() != nil {
			break
		}

		wait := e.cfg.Backoff[res.Error.Type]
		e.log.Warn("execution failed, retrying",
			zap.String("request_id", req.ID),
			zap.String("action", string(req.Action)),
			zap.String("error_type", string(res.Error.Type)),
			zap.Int("attempt", res.RetryCount+1),
			zap.Duration("backoff", wait),
			zap.Error(err))
		e.metrics.Retry(string(res.Error.Type))

		if !sleep(ctx, wait) {
			res.Error = Classify(ctx.Err())
			break
		}
		res.RetryCount++
	}
	res.Duration = e.now().Sub(start)

	ttl := e.cfg.FailureTTL
	if res.Success {
		ttl = e.cfg.SuccessTTL
	}
	e.cache.put(req.ID, *res, ttl)

	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	e.report(req, res, outcome)
	return res
}

// admit applies duplicate suppression, rate limiting and the result cache in that order.
// A nil return means the caller owns the in-flight slot for req.ID.
func (e *Executor) admit(req Request) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inFlight[req.ID]; busy {
		return &Result{
			RequestID: req.ID,
			Action:    req.Action,
			Duplicate: true,
			Error:     &ExecError{Type: ErrorSystem, Message: "duplicate execution prevented"},
		}
	}

	if ok, retryAfter := e.limiter.Allow(req.Action, req.UserID); !ok {
		return &Result{
			RequestID:   req.ID,
			Action:      req.Action,
			RateLimited: true,
			RetryAfter:  retryAfter,
			Error: &ExecError{
				Type:    ErrorRateLimit,
				Message: fmt.Sprintf("rate limit exceeded for %s, retry after %s", req.Action, retryAfter.Round(time.Second)),
			},
		}
	}

	if cached, ok := e.cache.get(req.ID); ok {
		cached.Cached = true
		return &cached
	}

	e.inFlight[req.ID] = struct{}{}
	return nil
}

func (e *Executor) release(id string) {
	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
}

func (e *Executor) report(req Request, res *Result, outcome string) {
	switch {
	case res.Duplicate:
		outcome = "duplicate"
	case res.RateLimited:
		outcome = "rate_limited"
	case res.Cached:
		outcome = "cached"
	}

	fields := []zap.Field{
		zap.String("request_id", req.ID),
		zap.String("action", string(req.Action)),
		zap.String("user", req.UserID),
		zap.String("outcome", outcome),
		zap.Int("retries", res.RetryCount),
		zap.Duration("duration", res.Duration),
	}
	evt := &recorder.ExecutionEvent{
		RequestID:  req.ID,
		Action:     string(req.Action),
		Outcome:    outcome,
		RetryCount: res.RetryCount,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Error != nil {
		fields = append(fields, zap.String("error_type", string(res.Error.Type)), zap.String("error", res.Error.Message))
		evt.ErrorType = string(res.Error.Type)
		evt.Message = res.Error.Message
		e.log.Warn("execution finished", fields...)
	} else {
		e.log.Info("execution finished", fields...)
	}

	e.metrics.Execution(string(req.Action), outcome)
	if err := e.rec.RecordExecution(evt); err != nil {
		e.log.Error("record execution failed", zap.Error(err))
	}
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
