package integrations

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yair/whats-on/pkg/domain"
)

const systemPrompt = "You are a concise assistant for a local what's-on events guide. Answer briefly and stick to events."

// LLMClient wraps a chat-completion HTTP API in blocking and token-streaming
// modes. Both enforce the configured timeout via context cancellation: an
// in-flight request is aborted, never left dangling.
type LLMClient struct {
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

func NewLLMClient(config LLMConfig) (*LLMClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("llm base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &LLMClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		model:   config.Model,
		apiKey:  config.APIKey,
		timeout: config.Timeout,
		// Request lifetime is bounded per call by context, not here.
		httpClient: &http.Client{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

// chatChunk tolerates both the streaming-delta and the non-streaming-message
// choice shapes, for robustness against backend differences.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *LLMClient) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: request aborted: %v", domain.ErrUpstreamModel, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamModel, err)
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.UpstreamModelError{Status: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// Complete performs a blocking chat completion and returns the first
// choice's text content.
func (c *LLMClient) Complete(ctx context.Context, userText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: 0.3,
		MaxTokens:   512,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed completion response: %v", domain.ErrUpstreamModel, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: completion response had no choices", domain.ErrUpstreamModel)
	}
	text := out.Choices[0].Message.Content
	if text == "" {
		text = out.Choices[0].Delta.Content
	}
	return text, nil
}

// CompleteStream performs a streaming chat completion, invoking onDelta for
// each incremental text fragment strictly in generation order, and returns
// the fully concatenated text. Exactly one terminal outcome per call: the
// returned error is nil on success (explicit [DONE] sentinel, a non-null
// finish_reason, or natural end of stream) and non-nil otherwise.
func (c *LLMClient) CompleteStream(ctx context.Context, userText string, onDelta func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: 0.3,
		MaxTokens:   512,
		Stream:      true,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Chunk boundaries do not align with line boundaries; the scanner
	// carries partial lines across reads.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "[DONE]" {
			return full.String(), nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// Malformed or partial fragment: skip, not fatal.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		delta := choice.Delta.Content
		if delta == "" {
			delta = choice.Message.Content
		}
		if delta != "" {
			full.WriteString(delta)
			onDelta(delta)
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			return full.String(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: stream aborted: %v", domain.ErrUpstreamModel, err)
		}
		return "", fmt.Errorf("%w: stream read failed: %v", domain.ErrUpstreamModel, err)
	}

	// Stream ended without an explicit termination signal: the accumulated
	// text is final.
	return full.String(), nil
}
