package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// The Generative Language API rejects temperatures above 1.0.
	geminiMaxTemperature = 1.0
)

func init() {
	RegisterFactory("google", func(config map[string]any) (Provider, error) {
		apiKey := ""
		if key, ok := config["api_key"].(string); ok {
			apiKey = key
		}
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, NewProviderError("google", ErrorCodeAuthentication, "GOOGLE_API_KEY not set", nil)
		}

		baseURL := geminiBaseURL
		if url, ok := config["base_url"].(string); ok && url != "" {
			baseURL = url
		}

		return NewGeminiProvider(apiKey, baseURL), nil
	})
}

// GeminiProvider implements Provider for the Google Generative Language API
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, baseURL string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "google"
}

// MaxTemperature returns the top of the supported sampling range
func (p *GeminiProvider) MaxTemperature() float64 {
	return geminiMaxTemperature
}

// Models returns the selectable model identifiers
func (p *GeminiProvider) Models() []string {
	return []string{
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.0-flash",
	}
}

// SummaryModel returns the fast tier used for summarization calls
func (p *GeminiProvider) SummaryModel() string {
	return "gemini-2.5-flash"
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Generate creates a complete response in one call
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	endpoint := fmt.Sprintf("/models/%s:generateContent?key=%s", req.Model, p.apiKey)

	var resp geminiResponse
	if err := p.doRequest(ctx, endpoint, p.buildRequest(req), &resp); err != nil {
		return nil, err
	}
	return p.parseResponse(&resp)
}

// GenerateStream creates a streaming response
func (p *GeminiProvider) GenerateStream(ctx context.Context, req GenerateRequest) (Stream, error) {
	endpoint := fmt.Sprintf("/models/%s:streamGenerateContent?key=%s&alt=sse", req.Model, p.apiKey)

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError("google", ErrorCodeTransport, err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, p.handleErrorResponse(resp)
	}

	return &geminiStream{reader: bufio.NewReader(resp.Body), closer: resp.Body}, nil
}

func (p *GeminiProvider) buildRequest(req GenerateRequest) geminiRequest {
	var systemContent *geminiContent
	if req.SystemPrompt != "" {
		systemContent = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}

	contents := make([]geminiContent, 0, len(req.Turns))
	for _, t := range req.Turns {
		role := string(t.Role)
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: t.Content}},
		})
	}

	return geminiRequest{
		Contents:          contents,
		SystemInstruction: systemContent,
		GenerationConfig: &geminiGenConfig{
			Temperature:     clampTemperature(req.Temperature, geminiMaxTemperature),
			MaxOutputTokens: clampMaxTokens(req.MaxTokens),
		},
	}
}

func (p *GeminiProvider) doRequest(ctx context.Context, endpoint string, reqBody geminiRequest, result *geminiResponse) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return NewProviderError("google", ErrorCodeTransport, err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return p.handleErrorResponse(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (p *GeminiProvider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp geminiResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		code := ErrorCodeUnknown
		switch resp.StatusCode {
		case 401, 403:
			code = ErrorCodeAuthentication
		case 429:
			code = ErrorCodeRateLimit
		case 400:
			// A bad API key comes back as 400 INVALID_ARGUMENT, not 401.
			code = ErrorCodeInvalidRequest
			if strings.Contains(strings.ToLower(errResp.Error.Message), "api key") {
				code = ErrorCodeAuthentication
			}
		case 404:
			code = ErrorCodeModelNotFound
		default:
			if resp.StatusCode >= 500 {
				code = ErrorCodeServerError
			}
		}
		return &ProviderError{
			Provider:   "google",
			Code:       code,
			Message:    errResp.Error.Message,
			Type:       errResp.Error.Status,
			StatusCode: resp.StatusCode,
		}
	}

	return NewProviderError("google", ErrorCodeUnknown, string(body), nil)
}

func (p *GeminiProvider) parseResponse(resp *geminiResponse) (*GenerateResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, NewProviderError("google", ErrorCodeUnknown, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	var content string
	for _, part := range candidate.Content.Parts {
		content += part.Text
	}

	finishReason := candidate.FinishReason
	if finishReason == "STOP" {
		finishReason = "stop"
	}

	return &GenerateResponse{
		Content:      content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// geminiStream implements Stream over the SSE variant of streamGenerateContent
type geminiStream struct {
	reader *bufio.Reader
	closer io.Closer
}

func (s *geminiStream) Recv() (*StreamChunk, error) {
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

		var resp geminiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}

		if len(resp.Candidates) == 0 {
			continue
		}

		candidate := resp.Candidates[0]
		var text string
		for _, part := range candidate.Content.Parts {
			text += part.Text
		}

		finishReason := ""
		if candidate.FinishReason == "STOP" {
			finishReason = "stop"
		}

		return &StreamChunk{
			Delta:        text,
			FinishReason: finishReason,
		}, nil
	}
}

func (s *geminiStream) Close() error {
	return s.closer.Close()
}
