package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const systemPrompt = "You are an investment research assistant extracting financially material ESG signals from disclosure excerpts. Return strict JSON only."

const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultOllamaURL   = "http://localhost:11434"
	DefaultModel       = "phi3:mini"
	DefaultTemperature = 0.2
	DefaultTimeout     = 300 * time.Second

	generateEndpoint = "/api/generate"
	maxOutputTokens  = 4096
)

// Generator sends one prompt to a completion service and returns the raw text.
// Implementations make exactly one request per call; SDK retries are disabled.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// ModelConfig selects and tunes the completion service.
type ModelConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	APIKey      string
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" && c.Provider == ProviderOllama {
		c.BaseURL = DefaultOllamaURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// NewGenerator builds the client for cfg.Provider.
func NewGenerator(cfg ModelConfig) (Generator, error) {
	cfg = cfg.withDefaults()
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// OllamaClient calls the Ollama generate endpoint with streaming disabled.
type OllamaClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func NewOllamaClient(cfg ModelConfig) *OllamaClient {
	cfg = cfg.withDefaults()
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOllamaURL
	}
	return &OllamaClient{
		BaseURL:     strings.TrimRight(base, "/"),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *OllamaClient) ModelName() string { return c.Model }

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: c.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+generateEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama API error: %s", out.Error)
	}
	return out.Response, nil
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error)
}

type AnthropicClient struct {
	messages    AnthropicMessager
	model       string
	temperature float64
	timeout     time.Duration
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(anthropicoption.WithAPIKey(apiKey), anthropicoption.WithMaxRetries(0))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// NewAnthropicClient uses cfg.APIKey, falling back to ANTHROPIC_API_KEY.
func NewAnthropicClient(cfg ModelConfig) (*AnthropicClient, error) {
	cfg = cfg.withDefaults()
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	}
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicClient{
		messages:    newAnthropicClient(apiKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (a *AnthropicClient) ModelName() string { return a.model }

func (a *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxOutputTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

type OpenAIResponder interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...openaioption.RequestOption) (*responses.Response, error)
}

type OpenAIClient struct {
	responses   OpenAIResponder
	model       string
	temperature float64
	timeout     time.Duration
}

// NewOpenAIClient uses cfg.APIKey, falling back to OPENAI_API_KEY.
func NewOpenAIClient(cfg ModelConfig) (*OpenAIClient, error) {
	cfg = cfg.withDefaults()
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not configured")
	}
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey), openaioption.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{
		responses:   &client.Responses,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (o *OpenAIClient) ModelName() string { return o.model }

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	resp, err := o.responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Temperature:     openai.Float(o.temperature),
		MaxOutputTokens: openai.Int(maxOutputTokens),
	})
	if err != nil {
		return "", fmt.Errorf("call OpenAI: %w", err)
	}
	return resp.OutputText(), nil
}

// FailureClass labels a transport error for logs and the run manifest.
type FailureClass string

const (
	FailureTimeout   FailureClass = "timeout"
	FailureRateLimit FailureClass = "rate_limit"
	FailureServer    FailureClass = "server"
	FailureClient    FailureClass = "client"
	FailureCanceled  FailureClass = "canceled"
)

var statusCodeRe = regexp.MustCompile(`status(?:\s+code)?[:=\s]+(\d{3})`)

func classifyTransportError(err error) FailureClass {
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		switch {
		case m[1] == "429":
			return FailureRateLimit
		case strings.HasPrefix(m[1], "5"):
			return FailureServer
		case strings.HasPrefix(m[1], "4"):
			return FailureClient
		}
	}
	if strings.Contains(msg, "rate limit") {
		return FailureRateLimit
	}
	return FailureServer
}
