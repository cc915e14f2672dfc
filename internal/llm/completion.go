package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable means the provider failed (or returned garbage) on
// every attempt. The caller decides the fallback — an empty list, a
// canned reply, or abandoning the work item. Never a silent empty success.
var ErrUnavailable = errors.New("completion unavailable")

// ErrLowConfidence means the provider answered but flagged its own
// output with the error marker. Treated as a fallback trigger, not a retry.
var ErrLowConfidence = errors.New("low confidence completion")

// errorMarker is the substring a free-text response may carry to signal
// the model could not produce a useful answer.
const errorMarker = "[ERROR"

const (
	defaultAttempts    = 3
	defaultRetryDelay  = 2 * time.Second
	defaultCallTimeout = 30 * time.Second
)

// Completer wraps a provider Client with the retry discipline shared by
// every completion call site: a fixed attempt bound, a fixed
// inter-attempt delay (deliberately not exponential), and a per-attempt
// wall-clock timeout so a stuck provider cannot stall a request.
type Completer struct {
	Client      Client
	Attempts    int
	RetryDelay  time.Duration
	CallTimeout time.Duration
}

// NewCompleter returns a Completer with the standard retry policy.
func NewCompleter(client Client) *Completer {
	return &Completer{
		Client:      client,
		Attempts:    defaultAttempts,
		RetryDelay:  defaultRetryDelay,
		CallTimeout: defaultCallTimeout,
	}
}

// retryable reports whether a failed attempt should be tried again.
func retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	// Per-attempt timeouts count as provider timeouts.
	return errors.Is(err, context.DeadlineExceeded)
}

// complete runs the bounded retry loop around one logical completion.
// validate inspects the raw response and may reject it; a rejected
// response counts as a failed attempt exactly like a provider error.
func (c *Completer) complete(ctx context.Context, prompt string, maxTokens int, validate func(string) error) (string, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := c.attempt(ctx, prompt, maxTokens, validate)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, ErrLowConfidence) {
			return "", err
		}
		lastErr = err
		if !retryable(err) && !isBadShape(err) {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Completer) attempt(ctx context.Context, prompt string, maxTokens int, validate func(string) error) (string, error) {
	timeout := c.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.Client.Complete(callCtx, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", &ProviderError{Msg: "empty response"}
	}
	if validate != nil {
		if err := validate(resp.Content); err != nil {
			return "", err
		}
	}
	return resp.Content, nil
}

// Text runs a free-text completion. The output is used verbatim; a
// response carrying the error marker returns ErrLowConfidence so the
// caller takes its fallback path without retrying.
func (c *Completer) Text(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.complete(ctx, prompt, maxTokens, func(content string) error {
		if strings.Contains(content, errorMarker) {
			return ErrLowConfidence
		}
		return nil
	})
}

// errBadShape marks a structured-mode response that did not parse as a
// JSON array. Indistinguishable from a provider failure to callers.
type errBadShape struct{ msg string }

func (e *errBadShape) Error() string { return "bad response shape: " + e.msg }

func isBadShape(err error) bool {
	var bs *errBadShape
	return errors.As(err, &bs)
}

// List runs a structured-mode completion: the provider's text output
// must parse as a homogeneous JSON array. Anything else — prose, an
// object, truncated JSON — is treated identically to a provider failure
// and consumes a retry attempt.
func (c *Completer) List(ctx context.Context, prompt string, maxTokens int) ([]json.RawMessage, error) {
	var items []json.RawMessage
	_, err := c.complete(ctx, prompt, maxTokens, func(content string) error {
		parsed, perr := ParseJSONArray(content)
		if perr != nil {
			return &errBadShape{msg: perr.Error()}
		}
		items = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ParseJSONArray extracts a JSON array from an LLM response. The
// response might contain markdown code fences or other wrapper text.
func ParseJSONArray(content string) ([]json.RawMessage, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		// Remove first and last lines (```json and ```)
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	content = strings.TrimSpace(content)

	// Find the JSON array
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < 0 || end <= start {
		return nil, errors.New("no JSON array found in response")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("unmarshal array: %w", err)
	}
	return items, nil
}
