package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marmos91/stickerd/internal/logger"
)

// OpenAIConfig configures the OpenAI-compatible vision client.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or a
	// compatible gateway.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKey is sent as a bearer token.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Model is the vision-capable model name.
	Model string `mapstructure:"model" yaml:"model"`

	// Timeout bounds each model call. This is the only per-call deadline in
	// the pipeline.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *OpenAIConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

const analyzePrompt = `你是一个表情包整理助手。请分析这张表情包图片` +
	`（多张图片时为同一动图的采样帧），并以JSON格式输出：` +
	`{"name":"简短名称","category":"分类","tags":["标签1","标签2"],` +
	`"description":"一句话描述","newCategory":"如需新分类则填写，否则省略"}。` +
	`只输出JSON，不要输出其他内容。`

// OpenAIClient implements Client against any OpenAI-compatible
// chat-completions endpoint with image input support.
type OpenAIClient struct {
	config OpenAIConfig
	http   *http.Client
}

// NewOpenAIClient creates a vision client from the configuration.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	cfg.ApplyDefaults()
	return &OpenAIClient{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire types for the chat-completions request and response. Only the fields
// the client actually touches are declared.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Analyze(ctx context.Context, frames [][]byte) (*Result, error) {
	content, err := c.complete(ctx, analyzePrompt, frames)
	if err != nil {
		return nil, err
	}

	raw, ok := ExtractJSON(content)
	if !ok {
		logger.Warn("Vision response did not contain valid JSON", "content_len", len(content))
		return nil, ErrEmptyResult
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode vision result: %w", err)
	}
	if result.Name == "" && result.Category == "" && len(result.Tags) == 0 {
		return nil, ErrEmptyResult
	}
	return &result, nil
}

func (c *OpenAIClient) Classify(ctx context.Context, frames [][]byte, accepted []string) (string, error) {
	prompt := fmt.Sprintf(
		`请判断这张图片属于以下哪种类型：%s。只输出类型名称，不要输出其他内容。`,
		strings.Join(accepted, "、"))

	content, err := c.complete(ctx, prompt, frames)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(content)
	if answer == "" {
		return "", ErrEmptyResult
	}
	return answer, nil
}

// complete sends one chat-completions request with the prompt and frames and
// returns the raw assistant text.
func (c *OpenAIClient) complete(ctx context.Context, prompt string, frames [][]byte) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("no frames to analyze")
	}

	parts := make([]contentPart, 0, len(frames)+1)
	parts = append(parts, contentPart{Type: "text", Text: prompt})
	for _, frame := range frames {
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: dataURL(frame),
			},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.config.Model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode vision request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("vision API error: %s", msg)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyResult
	}
	return parsed.Choices[0].Message.Content, nil
}

// dataURL encodes a frame as a base64 data URL. Frame format is sniffed from
// the bytes so sampled PNG frames and original GIF/WebP bytes both work.
func dataURL(frame []byte) string {
	mime := "image/png"
	switch {
	case len(frame) >= 3 && frame[0] == 0xFF && frame[1] == 0xD8:
		mime = "image/jpeg"
	case len(frame) >= 4 && string(frame[:4]) == "GIF8":
		mime = "image/gif"
	case len(frame) >= 12 && string(frame[:4]) == "RIFF" && string(frame[8:12]) == "WEBP":
		mime = "image/webp"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(frame)
}
