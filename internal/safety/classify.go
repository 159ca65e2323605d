package safety

import (
	"context"
	"errors"
	"strings"
)

// classifiers are checked in order. Network patterns precede invalid_params so a transient
// failure whose text happens to say "invalid" is still retried.
var classifiers = []struct {
	typ      ErrorType
	patterns []string
}{
	{ErrorRateLimit, []string{"rate limit", "ratelimit", "too many requests", "status 429", "throttl"}},
	{ErrorInsufficientBalance, []string{"insufficient", "not enough balance", "not enough funds", "balance too low", "exceeds balance"}},
	{ErrorMarketClosed, []string{"market closed", "market is closed", "trading halted", "market not active", "not accepting orders", "market resolved"}},
	{ErrorNetwork, []string{"econnreset", "econnrefused", "etimedout", "enotfound", "socket hang up", "connection reset", "connection refused", "network", "timeout", "timed out", "no such host", "eof", "status 502", "status 503", "status 504", "bad gateway", "service unavailable"}},
	{ErrorInvalidParams, []string{"invalid", "bad request", "status 400", "unsupported token", "not found", "missing parameter"}},
}

// Classify maps an error onto the execution taxonomy by matching its message.
func Classify(err error) *ExecError {
	if err == nil {
		return nil
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee
	}

	msg := err.Error()
	typ := ErrorSystem
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		typ = ErrorNetwork
	case errors.Is(err, context.Canceled):
		return &ExecError{Type: ErrorSystem, Message: msg}
	default:
		lower := strings.ToLower(msg)
	outer:
		for _, c := range classifiers {
			for _, p := range c.patterns {
				if strings.Contains(lower, p) {
					typ = c.typ
					break outer
				}
			}
		}
	}
	return &ExecError{Type: typ, Message: msg, Retryable: typ.Retryable()}
}
