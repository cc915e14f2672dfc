package llm

import "context"

// MockClient is a test double for the LLM Client interface.
// When Script is non-empty, calls consume it in order; otherwise every
// call returns Response/Err.
type MockClient struct {
	Response *Response
	Err      error
	Script   []ScriptStep
	Calls    []string // records prompts sent
}

// ScriptStep is one scripted result for a MockClient call.
type ScriptStep struct {
	Response *Response
	Err      error
}

// Complete records the call and returns the next scripted (or fixed) result.
func (m *MockClient) Complete(ctx context.Context, prompt string, maxTokens int) (*Response, error) {
	m.Calls = append(m.Calls, prompt)
	if len(m.Script) > 0 {
		step := m.Script[0]
		m.Script = m.Script[1:]
		return step.Response, step.Err
	}
	return m.Response, m.Err
}
