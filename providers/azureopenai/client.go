package azureopenai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/quailyquaily/slackqa/llm"
)

const (
	APITypeAzure  = "azure"
	APITypeOpenAI = "openai"
)

type Config struct {
	APIKey     string
	APIBase    string
	APIVersion string
	// APIType is "azure" (deployment-scoped endpoints) or "openai".
	APIType    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client talks to Azure OpenAI (or OpenAI proper) chat completions. The
// request model is used as the Azure deployment name.
type Client struct {
	api openai.Client
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	base := strings.TrimSpace(cfg.APIBase)

	opts := []option.RequestOption{
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	switch apiType := strings.ToLower(strings.TrimSpace(cfg.APIType)); apiType {
	case APITypeAzure, "azure_ad":
		if base == "" {
			return nil, fmt.Errorf("openai api base is required for azure")
		}
		version := strings.TrimSpace(cfg.APIVersion)
		if version == "" {
			return nil, fmt.Errorf("openai api version is required for azure")
		}
		opts = append(opts,
			azure.WithEndpoint(strings.TrimRight(base, "/"), version),
			azure.WithAPIKey(apiKey),
		)
	case APITypeOpenAI, "open_ai", "":
		opts = append(opts, option.WithAPIKey(apiKey))
		if base != "" {
			opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
		}
	default:
		return nil, fmt.Errorf("unsupported openai api type %q", cfg.APIType)
	}

	return &Client{api: openai.NewClient(opts...)}, nil
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return llm.Result{}, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return llm.Result{}, fmt.Errorf("at least one message is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toParams(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Result{}, err
	}
	out := llm.Result{
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return out, fmt.Errorf("chat completion returned no choices")
	}
	out.Text = resp.Choices[0].Message.Content
	return out, nil
}

func toParams(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case llm.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
