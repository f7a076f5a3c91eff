// Package provider implements the uniform generation contract over the two
// chat back ends. Each vendor hides its own request/response shape,
// role vocabulary, and temperature range behind the Provider interface.
package provider

import (
	"context"
	"errors"

	"github.com/nexusforge/nexus/internal/chat"
)

// MaxOutputTokens is the fixed per-request output ceiling. Callers may ask
// for less (the summarization pass does) but never for more.
const MaxOutputTokens = 8192

// Provider defines the interface for generation back ends
type Provider interface {
	// Generate creates a complete response in one call (non-streaming).
	Generate(ctx context.Context, request GenerateRequest) (*GenerateResponse, error)

	// GenerateStream creates a streaming response.
	GenerateStream(ctx context.Context, request GenerateRequest) (Stream, error)

	// Name returns the provider name (e.g., "anthropic", "google")
	Name() string

	// MaxTemperature returns the upper bound of the provider's supported
	// temperature range. Requests above it are silently capped.
	MaxTemperature() float64

	// Models returns the model identifiers this provider accepts, most
	// capable first.
	Models() []string

	// SummaryModel returns the cheaper/faster model tier used for
	// out-of-band summarization calls.
	SummaryModel() string
}

// GenerateRequest represents a generation request
type GenerateRequest struct {
	// SystemPrompt is the composed instruction document sent out-of-band
	// from the conversation turns.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Turns is the conversation history in session order.
	Turns []chat.Turn `json:"turns"`

	// Model is the model to use (e.g., "claude-sonnet-4-5-20250929")
	Model string `json:"model,omitempty"`

	// Temperature controls randomness. Clamped to the provider's range.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the requested output budget, capped at MaxOutputTokens.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// GenerateResponse represents a complete generation result
type GenerateResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// FinishReason explains why generation stopped
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information
	Usage Usage `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Stream represents a streaming response
type Stream interface {
	// Recv receives the next chunk
	Recv() (*StreamChunk, error)

	// Close closes the stream
	Close() error
}

// StreamChunk represents a chunk in a streaming response
type StreamChunk struct {
	// Delta is the incremental content
	Delta string `json:"delta"`

	// FinishReason if this is the last chunk
	FinishReason string `json:"finish_reason,omitempty"`
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider      string `json:"provider"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Type          string `json:"type,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	OriginalError error  `json:"-"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the original error
func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// Common error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeRateLimit      = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
	ErrorCodeTransport      = "transport_error"
	ErrorCodeModelNotFound  = "model_not_found"
	ErrorCodeUnknown        = "unknown_error"
)

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, original error) *ProviderError {
	return &ProviderError{
		Provider:      provider,
		Code:          code,
		Message:       message,
		OriginalError: original,
	}
}

// IsAuthError reports whether err is a missing/invalid-credential failure
// that can be resolved by supplying a key and retrying once.
func IsAuthError(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == ErrorCodeAuthentication
}

// clampTemperature caps t to [0, max]. Values above the provider's max are
// silently reduced rather than rejected.
func clampTemperature(t, max float64) float64 {
	if t < 0 {
		return 0
	}
	if t > max {
		return max
	}
	return t
}

// clampMaxTokens applies the fixed output ceiling.
func clampMaxTokens(n int) int {
	if n <= 0 || n > MaxOutputTokens {
		return MaxOutputTokens
	}
	return n
}
