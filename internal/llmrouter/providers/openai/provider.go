// Package openai adapts github.com/openai/openai-go/v3 to
// internal/llmrouter's Provider and EmbeddingProvider interfaces.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
)

// Config configures one OpenAI-backed provider instance.
type Config struct {
	APIKey         string
	BaseURL        string // override for tests/proxies
	RequestOptions []option.RequestOption
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	return nil
}

// Provider wraps an openai.Client for router registration.
type Provider struct {
	client openai.Client
}

// New constructs a Provider, ready to register with a Router via
// RegisterProvider/RegisterEmbeddingProvider.
func New(cfg *Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, cfg.RequestOptions...)
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{client: openai.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Generate(ctx context.Context, model string, messages []llmrouter.Message, opts llmrouter.Options) (string, int, int, error) {
	params := buildParams(model, messages, opts)
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", 0, 0, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, domain.NewError(domain.KindLLMUnavailable, "openai: empty choices")
	}
	return resp.Choices[0].Message.Content, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens), nil
}

func (p *Provider) StreamGenerate(ctx context.Context, model string, messages []llmrouter.Message, opts llmrouter.Options) (<-chan llmrouter.Chunk, error) {
	params := buildParams(model, messages, opts)
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan llmrouter.Chunk)
	go streamChunks(stream, out)
	return out, nil
}

func streamChunks(stream *ssestream.Stream[openai.ChatCompletionChunk], out chan<- llmrouter.Chunk) {
	defer close(out)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		out <- llmrouter.Chunk{Text: chunk.Choices[0].Delta.Content}
	}
	if err := stream.Err(); err != nil {
		out <- llmrouter.Chunk{Err: classifyError(err)}
		return
	}
	out <- llmrouter.Chunk{Done: true}
}

func (p *Provider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, classifyError(err)
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func buildParams(model string, messages []llmrouter.Message, opts llmrouter.Options) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{Model: model}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llmrouter.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case llmrouter.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	params.Messages = msgs

	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	return params
}

// classifyError maps an OpenAI SDK error onto this repo's typed error
// kinds, using the SDK's *openai.Error status code where available.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return domain.Wrap(domain.KindRateLimited, err, "openai rate limited")
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return domain.Wrap(domain.KindAuthFailure, err, "openai auth failure")
		case apiErr.StatusCode >= 500:
			return domain.Wrap(domain.KindPermanentServerError, err, "openai server error")
		case apiErr.StatusCode >= 400:
			return domain.Wrap(domain.KindPermanentClientError, err, "openai client error")
		}
	}
	return domain.Wrap(domain.KindTransientNetwork, err, "openai request failed")
}
