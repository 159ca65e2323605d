package recorder

// TradeEvent records one spot-position lifecycle change.
type TradeEvent struct {
	TradeID   string
	Symbol    string
	EventType string // "OPEN", "FAILED", "TAKE_PROFIT", "STOP_LOSS"
	Amount    string
	Price     float64
	PnLPct    float64
	Note      string
}

// BetEvent records one prediction-market cycle outcome.
type BetEvent struct {
	BetID      string
	EventType  string // "PLACED", "SKIPPED", "PAUSED", "SETTLED"
	Market     string
	Outcome    string
	Amount     float64
	WinRate    float64
	RiskFactor float64
	Note       string
}

// ExecutionEvent records one guarded call to the external agent API.
type ExecutionEvent struct {
	RequestID  string
	Action     string
	Outcome    string // "success", "failure", "duplicate", "rate_limited", "cached"
	ErrorType  string
	RetryCount int
	DurationMs int64
	Message    string
}

// Recorder persists an append-only history next to the JSON state snapshot.
type Recorder interface {
	RecordTradeEvent(evt *TradeEvent) error
	RecordBetEvent(evt *BetEvent) error
	RecordExecution(evt *ExecutionEvent) error
	Close() error
}
