// Package safety wraps calls to the external agent API with duplicate suppression,
// per-action rate limiting, idempotent result caching and classified retries.
package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ActionType selects the rate limit bucket.
type ActionType string

const (
	ActionTrade         ActionType = "trade"
	ActionScan          ActionType = "scan"
	ActionResearch      ActionType = "research"
	ActionPredictionBet ActionType = "prediction_bet"
)

// ErrorType classifies a failed execution.
type ErrorType string

const (
	ErrorNetwork             ErrorType = "network"
	ErrorRateLimit           ErrorType = "rate_limit"
	ErrorInsufficientBalance ErrorType = "insufficient_balance"
	ErrorMarketClosed        ErrorType = "market_closed"
	ErrorInvalidParams       ErrorType = "invalid_params"
	ErrorSystem              ErrorType = "system"
)

// Retryable reports whether errors of this type are retried in-process.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorNetwork, ErrorRateLimit, ErrorSystem:
		return true
	}
	return false
}

// ExecError is a classified execution failure.
type ExecError struct {
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ExecError) Error() string { return fmt.Sprintf("%s: %s", e.Type, e.Message) }

// Request identifies one logical external action.
type Request struct {
	ID     string
	Action ActionType
	UserID string
	Params map[string]any
}

// Result is the outcome of Execute.
type Result struct {
	RequestID   string
	Action      ActionType
	Success     bool
	Output      string
	Error       *ExecError
	RetryCount  int
	Cached      bool
	Duplicate   bool
	RateLimited bool
	RetryAfter  time.Duration
	Duration    time.Duration
}

// Err returns the classified error, or nil on success.
func (r *Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// FailureText renders a failed result for display.
func (r *Result) FailureText() string {
	if r.Error == nil {
		return ""
	}
	return "❌ Failed: " + r.Error.Message
}

// RequestID derives a deterministic id from the action type and normalized params.
func RequestID(action ActionType, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(action))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(strings.TrimSpace(k)))
		b.WriteByte('=')
		b.WriteString(normalize(params[k]))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

func normalize(v any) string {
	switch x := v.(type) {
	case string:
		return strings.ToLower(strings.Join(strings.Fields(x), " "))
	case float64:
		return fmt.Sprintf("%.8f", x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
