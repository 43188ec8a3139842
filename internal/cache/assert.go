package cache

import (
	"github.com/wedosoft/ticketrag/internal/embed"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
)

var (
	_ llmrouter.Cache = (*LLMResponses)(nil)
	_ embed.Cache     = (*Embeddings)(nil)
)
