// Package providers implements the language-model backend clients.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiDefaultBase = "https://generativelanguage.googleapis.com/v1beta"

// ErrEmptyResponse signals the model returned no usable candidate: empty
// output or a safety block. Callers treat it as "no decision", not a fault.
var ErrEmptyResponse = errors.New("gemini: empty or blocked response")

// TextGenerator is the oracle surface the pipeline depends on. The model
// returns free-form text expected to contain a JSON array.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// GeminiClient talks to the Generative Language REST API. One client serves
// both pipeline stages; the model name selects flash vs pro per call.
type GeminiClient struct {
	apiKey      string
	apiBase     string
	client      *http.Client
	retryConfig RetryConfig
}

func NewGeminiClient(apiKey, apiBase string) *GeminiClient {
	if apiBase == "" {
		apiBase = geminiDefaultBase
	}
	apiBase = strings.TrimRight(apiBase, "/")

	return &GeminiClient{
		apiKey:      apiKey,
		apiBase:     apiBase,
		client:      &http.Client{Timeout: 120 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate submits a fully-rendered prompt and returns the raw model text.
// Transient failures (429, 5xx, network) are retried with backoff; a blocked
// or empty candidate maps to ErrEmptyResponse.
func (c *GeminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.apiBase, model)

	return RetryDo(ctx, c.retryConfig, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("gemini: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return "", Retryable(fmt.Errorf("gemini: %w", err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return "", Retryable(fmt.Errorf("gemini: read response: %w", err))
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", Retryable(fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(data, 200)))
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(data, 200))
		}

		var parsed geminiResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return "", fmt.Errorf("gemini: decode response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("gemini: api error %d: %s", parsed.Error.Code, parsed.Error.Message)
		}
		if parsed.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w (block reason %s)", ErrEmptyResponse, parsed.PromptFeedback.BlockReason)
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return "", ErrEmptyResponse
		}

		var sb strings.Builder
		for _, part := range parsed.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
}

func truncate(data []byte, n int) string {
	s := string(data)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
