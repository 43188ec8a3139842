package llmrouter

import "time"

// Role is a chat message's speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat-style prompt.
type Message struct {
	Role    Role
	Content string
}

// Options carries per-call overrides layered on top of the use-case's
// configured defaults.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Chunk is one partial frame of a streamed generation.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// Meta reports what actually happened for a generate call: which
// provider/model served it, whether it was a cache hit, and token usage.
type Meta struct {
	Provider        string
	Model           string
	CacheHit        bool
	PromptTokens    int
	CompletionTokens int
	Duration        time.Duration
	FallbackHops    int
}
