package ai

import "context"

// MockProvider is a test double for AI providers. Responses are consumed in
// order; the last one repeats once the queue is exhausted.
type MockProvider struct {
	Responses   []string
	Err         error
	Requests    []CompletionRequest // every request received, for inspection
	LastRequest *CompletionRequest
}

// NewMockProvider creates a MockProvider that always returns response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Responses: []string{response}}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.Requests = append(m.Requests, req)
	m.LastRequest = &req
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}

	content := ""
	if n := len(m.Responses); n > 0 {
		idx := len(m.Requests) - 1
		if idx >= n {
			idx = n - 1
		}
		content = m.Responses[idx]
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

// CallCount returns how many completions were requested.
func (m *MockProvider) CallCount() int {
	return len(m.Requests)
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}
