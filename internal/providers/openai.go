package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/halcyonchat/halcyon/internal/schema"
)

// Client makes direct HTTP calls to an OpenAI-compatible chat endpoint.
type Client struct {
	apiKey       string
	apiBase      string
	defaultModel string
	httpClient   *http.Client
}

// Params configures a Client.
type Params struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	ServiceName  string
}

// New constructs a Client, filling the API base and default model from the
// named service's spec when not set explicitly.
func New(p Params) *Client {
	base := p.APIBase
	model := p.DefaultModel

	if spec := FindByName(p.ServiceName); spec != nil {
		if base == "" {
			base = spec.DefaultAPIBase
		}
		if model == "" {
			model = spec.DefaultModel
		}
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}

	return &Client{
		apiKey:       p.APIKey,
		apiBase:      strings.TrimRight(base, "/"),
		defaultModel: model,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) DefaultModel() string { return c.defaultModel }

// Chat implements schema.LLMProvider.
func (c *Client) Chat(ctx context.Context, messages []schema.Message, opts schema.ChatOptions) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	wire := make([]map[string]string, len(messages))
	for i, m := range messages {
		wire[i] = map[string]string{"role": m.Role, "content": m.Content}
	}

	body, err := json.Marshal(map[string]any{
		"model":       model,
		"messages":    wire,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	})
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return schema.LLMResponse{}, fmt.Errorf("chat API %d: %s", resp.StatusCode, msg)
	}

	content := gjson.GetBytes(data, "choices.0.message.content").String()
	if content == "" {
		return schema.LLMResponse{}, fmt.Errorf("chat API: empty completion")
	}

	return schema.LLMResponse{
		Content:      content,
		FinishReason: gjson.GetBytes(data, "choices.0.finish_reason").String(),
		Usage: schema.Usage{
			InputTokens:  int(gjson.GetBytes(data, "usage.prompt_tokens").Int()),
			OutputTokens: int(gjson.GetBytes(data, "usage.completion_tokens").Int()),
		},
	}, nil
}

var _ schema.LLMProvider = (*Client)(nil)
