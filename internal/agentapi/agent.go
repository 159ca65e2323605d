// Package agentapi talks to the external prompt-driven execution agent.
package agentapi

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrJobFailed is returned when the agent reports a failed or cancelled job.
var ErrJobFailed = errors.New("agent job failed")

// Response is the outcome of one prompt.
type Response struct {
	Success      bool
	Text         string
	ThreadID     string
	Transactions []json.RawMessage
}

// Agent accepts a natural-language instruction and returns a free-text answer.
type Agent interface {
	Prompt(ctx context.Context, prompt, threadID string) (*Response, error)
	Name() string
}
