package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	// Anthropic accepts the wider sampling range.
	anthropicMaxTemperature = 1.5
)

func init() {
	RegisterFactory("anthropic", func(config map[string]any) (Provider, error) {
		apiKey := ""
		if key, ok := config["api_key"].(string); ok {
			apiKey = key
		}
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, NewProviderError("anthropic", ErrorCodeAuthentication, "ANTHROPIC_API_KEY not set", nil)
		}

		baseURL := anthropicBaseURL
		if url, ok := config["base_url"].(string); ok && url != "" {
			baseURL = url
		}

		return NewAnthropicProvider(apiKey, baseURL), nil
	})
}

// AnthropicProvider implements Provider for the Anthropic Messages API
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// MaxTemperature returns the top of the supported sampling range
func (p *AnthropicProvider) MaxTemperature() float64 {
	return anthropicMaxTemperature
}

// Models returns the selectable model identifiers
func (p *AnthropicProvider) Models() []string {
	return []string{
		"claude-opus-4-5",
		"claude-sonnet-4-5-20250929",
		"claude-haiku-4-5-20251001",
	}
}

// SummaryModel returns the fast tier used for summarization calls
func (p *AnthropicProvider) SummaryModel() string {
	return "claude-haiku-4-5-20251001"
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate creates a complete response in one call
func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp anthropicResponse
	if err := p.doRequest(ctx, p.buildRequest(req, false), &resp); err != nil {
		return nil, err
	}
	return p.parseResponse(&resp), nil
}

// GenerateStream creates a streaming response
func (p *AnthropicProvider) GenerateStream(ctx context.Context, req GenerateRequest) (Stream, error) {
	body, err := json.Marshal(p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError("anthropic", ErrorCodeTransport, err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, p.handleErrorResponse(resp)
	}

	return &anthropicStream{reader: bufio.NewReader(resp.Body), closer: resp.Body}, nil
}

func (p *AnthropicProvider) buildRequest(req GenerateRequest, stream bool) anthropicRequest {
	messages := make([]anthropicMessage, 0, len(req.Turns))
	for _, t := range req.Turns {
		messages = append(messages, anthropicMessage{Role: string(t.Role), Content: t.Content})
	}

	return anthropicRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      req.SystemPrompt,
		MaxTokens:   clampMaxTokens(req.MaxTokens),
		Temperature: clampTemperature(req.Temperature, anthropicMaxTemperature),
		Stream:      stream,
	}
}

func (p *AnthropicProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func (p *AnthropicProvider) doRequest(ctx context.Context, reqBody anthropicRequest, result *anthropicResponse) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return NewProviderError("anthropic", ErrorCodeTransport, err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return p.handleErrorResponse(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (p *AnthropicProvider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp anthropicResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		code := ErrorCodeUnknown
		switch resp.StatusCode {
		case 401:
			code = ErrorCodeAuthentication
		case 429:
			code = ErrorCodeRateLimit
		case 400:
			code = ErrorCodeInvalidRequest
		case 404:
			code = ErrorCodeModelNotFound
		default:
			if resp.StatusCode >= 500 {
				code = ErrorCodeServerError
			}
		}
		return &ProviderError{
			Provider:   "anthropic",
			Code:       code,
			Message:    errResp.Error.Message,
			Type:       errResp.Error.Type,
			StatusCode: resp.StatusCode,
		}
	}

	return NewProviderError("anthropic", ErrorCodeUnknown, string(body), nil)
}

func (p *AnthropicProvider) parseResponse(resp *anthropicResponse) *GenerateResponse {
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	finishReason := resp.StopReason
	if finishReason == "end_turn" {
		finishReason = "stop"
	}

	return &GenerateResponse{
		Content:      content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// anthropicStream implements Stream over the Messages SSE protocol
type anthropicStream struct {
	reader *bufio.Reader
	closer io.Closer
}

func (s *anthropicStream) Recv() (*StreamChunk, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return &StreamChunk{FinishReason: "stop"}, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}

		data := bytes.TrimPrefix(line, []byte("data: "))

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type       string `json:"type"`
				Text       string `json:"text"`
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
			Error *struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}

		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" {
				return &StreamChunk{Delta: event.Delta.Text}, nil
			}
		case "message_delta":
			if event.Delta.StopReason != "" {
				reason := event.Delta.StopReason
				if reason == "end_turn" {
					reason = "stop"
				}
				return &StreamChunk{FinishReason: reason}, nil
			}
		case "message_stop":
			return &StreamChunk{FinishReason: "stop"}, io.EOF
		case "error":
			if event.Error != nil {
				return nil, &ProviderError{
					Provider: "anthropic",
					Code:     ErrorCodeServerError,
					Message:  event.Error.Message,
					Type:     event.Error.Type,
				}
			}
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.closer.Close()
}
