package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPAgent implements Agent against a submit-then-poll job API.
type HTTPAgent struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	JobTimeout   time.Duration
	Client       *http.Client
	log          *zap.Logger
}

// NewHTTPAgent creates a client with optional proxy support.
func NewHTTPAgent(baseURL, apiKey, proxyURL string, pollInterval, jobTimeout time.Duration, log *zap.Logger) *HTTPAgent {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPAgent{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		PollInterval: pollInterval,
		JobTimeout:   jobTimeout,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		log: log.With(zap.String("module", "agentapi")),
	}
}

func (a *HTTPAgent) Name() string { return "http-agent" }

type submitRequest struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"threadId,omitempty"`
}

type submitResponse struct {
	Success  bool   `json:"success"`
	JobID    string `json:"jobId"`
	ThreadID string `json:"threadId"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

type jobResponse struct {
	JobID        string            `json:"jobId"`
	ThreadID     string            `json:"threadId"`
	Status       string            `json:"status"`
	Response     string            `json:"response"`
	Error        string            `json:"error"`
	Transactions []json.RawMessage `json:"transactions"`
}

// Prompt submits the instruction and polls until the job finishes.
func (a *HTTPAgent) Prompt(ctx context.Context, prompt, threadID string) (*Response, error) {
	if a.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.JobTimeout)
		defer cancel()
	}

	var sub submitResponse
	if err := a.do(ctx, http.MethodPost, "/agent/prompt", submitRequest{Prompt: prompt, ThreadID: threadID}, &sub); err != nil {
		return nil, fmt.Errorf("submit prompt: %w", err)
	}
	if !sub.Success || sub.JobID == "" {
		msg := sub.Error
		if msg == "" {
			msg = sub.Message
		}
		return nil, fmt.Errorf("submit prompt: %w: %s", ErrJobFailed, msg)
	}
	a.log.Debug("prompt submitted", zap.String("job_id", sub.JobID))

	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()
	for {
		var job jobResponse
		if err := a.do(ctx, http.MethodGet, "/agent/job/"+url.PathEscape(sub.JobID), nil, &job); err != nil {
			return nil, fmt.Errorf("poll job %s: %w", sub.JobID, err)
		}

		switch job.Status {
		case "completed":
			thread := job.ThreadID
			if thread == "" {
				thread = sub.ThreadID
			}
			return &Response{
				Success:      true,
				Text:         job.Response,
				ThreadID:     thread,
				Transactions: job.Transactions,
			}, nil
		case "failed", "cancelled":
			msg := job.Error
			if msg == "" {
				msg = job.Status
			}
			return nil, fmt.Errorf("job %s: %w: %s", sub.JobID, ErrJobFailed, msg)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s timeout: %w", sub.JobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *HTTPAgent) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("x-api-key", a.APIKey)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limit: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
