// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to
// internal/llmrouter's Provider interface. Anthropic has no first-party
// embedding endpoint, so this package only implements chat generation. It
// serves whichever use-cases are configured to the "anthropic" provider (by
// default query_analysis and hyde) and can also appear as a fallback-chain
// hop.
package anthropic

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
)

// Config configures one Anthropic-backed provider instance.
type Config struct {
	APIKey         string
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

// Provider wraps an anthropic.Client for router registration.
type Provider struct {
	client anthropic.Client
}

func New(cfg *Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, cfg.RequestOptions...)
	return &Provider{client: anthropic.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Generate(ctx context.Context, model string, messages []llmrouter.Message, opts llmrouter.Options) (string, int, int, error) {
	params, system := buildParams(model, messages, opts)
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, classifyError(err)
	}
	if len(resp.Content) == 0 {
		return "", 0, 0, domain.NewError(domain.KindLLMUnavailable, "anthropic: empty content")
	}
	return resp.Content[0].Text, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), nil
}

func (p *Provider) StreamGenerate(ctx context.Context, model string, messages []llmrouter.Message, opts llmrouter.Options) (<-chan llmrouter.Chunk, error) {
	params, system := buildParams(model, messages, opts)
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan llmrouter.Chunk)
	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					out <- llmrouter.Chunk{Text: text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- llmrouter.Chunk{Err: classifyError(err)}
			return
		}
		out <- llmrouter.Chunk{Done: true}
	}()
	return out, nil
}

func buildParams(model string, messages []llmrouter.Message, opts llmrouter.Options) (anthropic.MessageNewParams, string) {
	var system string
	msgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llmrouter.RoleSystem:
			system = m.Content
		case llmrouter.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	return params, system
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return domain.Wrap(domain.KindRateLimited, err, "anthropic rate limited")
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return domain.Wrap(domain.KindAuthFailure, err, "anthropic auth failure")
		case apiErr.StatusCode >= 500:
			return domain.Wrap(domain.KindPermanentServerError, err, "anthropic server error")
		case apiErr.StatusCode >= 400:
			return domain.Wrap(domain.KindPermanentClientError, err, "anthropic client error")
		}
	}
	return domain.Wrap(domain.KindTransientNetwork, err, "anthropic request failed")
}
