package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Client sends prompts to the configured chat model
type Client struct {
	llm         llms.Model
	model       string
	temperature float64
}

func NewClient(llmConfig *config.LLMConfig) (*Client, error) {
	log.Debug().Interface("llmConfig", map[string]any{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Creating LLM client")

	httpClient := &http.Client{}
	if llmConfig.TimeoutSecs > 0 {
		httpClient.Timeout = time.Duration(llmConfig.TimeoutSecs) * time.Second
	}

	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model), ollama.WithHTTPClient(httpClient)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err = ollama.New(opts...)
	case config.ProviderOpenAI, "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithHTTPClient(httpClient),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unknown inference provider %q", models.ErrConfig, llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %v", err)
	}
	return NewClientWithModel(llm, llmConfig.Model, llmConfig.Temperature), nil
}

// NewClientWithModel wraps an existing langchaingo model
func NewClientWithModel(llm llms.Model, model string, temperature float64) *Client {
	return &Client{llm: llm, model: model, temperature: temperature}
}

// GenerateAnswer sends a single user prompt and returns the completion verbatim
func (c *Client) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	res, err := c.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: model %s returned no choices", models.ErrModel, c.model)
	}
	return res.Choices[0].Content, nil
}

func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	start := time.Now()
	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrModel, c.model, err)
	}
	log.Debug().Str("model", c.model).Dur("elapsed", time.Since(start)).Msg("Generated content")
	return res, nil
}
