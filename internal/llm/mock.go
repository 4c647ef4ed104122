package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real. Si Responses tiene
// elementos se consumen en orden; si se agotan se repite el último. GenerateFn
// tiene prioridad cuando está definido.
type MockClient struct {
	Response   string
	Responses  []string
	Err        error
	GenerateFn func(ctx context.Context, prompt string, opts Options) (string, error)

	mu      sync.Mutex
	Prompts []string
	Opts    []Options
}

func (m *MockClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Opts = append(m.Opts, opts)
	var next string
	switch {
	case len(m.Responses) > 1:
		next = m.Responses[0]
		m.Responses = m.Responses[1:]
	case len(m.Responses) == 1:
		next = m.Responses[0]
	default:
		next = m.Response
	}
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt, opts)
	}
	return next, m.Err
}
