package llmrouter

import "context"

// Provider is one LLM backend (OpenAI, Anthropic, ...). The router never
// imports a concrete SDK directly; it only ever talks to this interface,
// so adding a provider is registering one, not touching the router.
type Provider interface {
	Name() string
	Generate(ctx context.Context, model string, messages []Message, opts Options) (text string, promptTokens, completionTokens int, err error)
	StreamGenerate(ctx context.Context, model string, messages []Message, opts Options) (<-chan Chunk, error)
}

// EmbeddingProvider produces dense vectors for a batch of texts against one
// model. Implemented by the same provider packages that implement
// Provider, but kept as a separate interface since not every chat provider
// also serves embeddings.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// registry is the process-wide provider set, keyed by provider name as
// used in LLMUseCaseConfig.Provider. Populated once at process start.
type registry struct {
	chat  map[string]Provider
	embed map[string]EmbeddingProvider
}

func newRegistry() *registry {
	return &registry{chat: map[string]Provider{}, embed: map[string]EmbeddingProvider{}}
}

func (r *registry) registerChat(p Provider) { r.chat[p.Name()] = p }
func (r *registry) registerEmbed(p EmbeddingProvider) { r.embed[p.Name()] = p }
