package provider

import (
	"context"
	"io"
)

// MockProvider is a scriptable provider for testing
type MockProvider struct {
	name string

	// Responses to return for each request
	GenerateResponses []*GenerateResponse
	StreamChunks      [][]*StreamChunk
	Errors            []error

	// Track calls
	GenerateCalls []GenerateRequest
	StreamCalls   []GenerateRequest

	currentIndex int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Generate implements Provider
func (m *MockProvider) Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error) {
	m.GenerateCalls = append(m.GenerateCalls, request)

	if m.currentIndex < len(m.Errors) && m.Errors[m.currentIndex] != nil {
		err := m.Errors[m.currentIndex]
		m.currentIndex++
		return nil, err
	}

	if m.currentIndex < len(m.GenerateResponses) {
		response := m.GenerateResponses[m.currentIndex]
		m.currentIndex++
		return response, nil
	}

	return &GenerateResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

// GenerateStream implements Provider
func (m *MockProvider) GenerateStream(ctx context.Context, request GenerateRequest) (Stream, error) {
	m.StreamCalls = append(m.StreamCalls, request)

	if m.currentIndex < len(m.Errors) && m.Errors[m.currentIndex] != nil {
		err := m.Errors[m.currentIndex]
		m.currentIndex++
		return nil, err
	}

	var chunks []*StreamChunk
	if m.currentIndex < len(m.StreamChunks) {
		chunks = m.StreamChunks[m.currentIndex]
		m.currentIndex++
	} else {
		chunks = []*StreamChunk{
			{Delta: "Mock "},
			{Delta: "stream "},
			{Delta: "response"},
		}
	}

	return &MockStream{chunks: chunks}, nil
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return m.name
}

// MaxTemperature implements Provider
func (m *MockProvider) MaxTemperature() float64 {
	return 1.0
}

// Models implements Provider
func (m *MockProvider) Models() []string {
	return []string{"mock-large", "mock-small"}
}

// SummaryModel implements Provider
func (m *MockProvider) SummaryModel() string {
	return "mock-small"
}

// AddGenerateResponse adds a non-streaming response to return
func (m *MockProvider) AddGenerateResponse(response *GenerateResponse) *MockProvider {
	m.GenerateResponses = append(m.GenerateResponses, response)
	return m
}

// AddStreamChunks adds stream chunks to return
func (m *MockProvider) AddStreamChunks(chunks []*StreamChunk) *MockProvider {
	m.StreamChunks = append(m.StreamChunks, chunks)
	return m
}

// AddError adds an error to return
func (m *MockProvider) AddError(err error) *MockProvider {
	m.Errors = append(m.Errors, err)
	return m
}

// Reset resets the mock provider
func (m *MockProvider) Reset() {
	m.GenerateResponses = nil
	m.StreamChunks = nil
	m.Errors = nil
	m.GenerateCalls = nil
	m.StreamCalls = nil
	m.currentIndex = 0
}

// MockStream is a mock stream implementation. It delivers scripted chunks
// in order and then behaves like a real stream at end of input, returning
// a final stop chunk alongside io.EOF.
type MockStream struct {
	chunks       []*StreamChunk
	currentIndex int
	closed       bool

	// Err, if set, is returned after all chunks are delivered instead of
	// the terminal stop chunk. Used to simulate mid-stream failures.
	Err error
}

// Recv implements Stream
func (s *MockStream) Recv() (*StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	if s.currentIndex >= len(s.chunks) {
		if s.Err != nil {
			return nil, s.Err
		}
		return &StreamChunk{FinishReason: "stop"}, io.EOF
	}

	chunk := s.chunks[s.currentIndex]
	s.currentIndex++
	return chunk, nil
}

// Close implements Stream
func (s *MockStream) Close() error {
	s.closed = true
	return nil
}

// NewMockStream creates a stream delivering the given text fragments
func NewMockStream(deltas ...string) *MockStream {
	chunks := make([]*StreamChunk, len(deltas))
	for i, d := range deltas {
		chunks[i] = &StreamChunk{Delta: d}
	}
	return &MockStream{chunks: chunks}
}
