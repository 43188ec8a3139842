package embed

import "github.com/pkoukk/tiktoken-go"

// tokenEncoding counts and truncates text by actual model tokens rather
// than characters, since embedding models cap input by token count.
// Grounded on the teacher's ai/tokenizer.Tiktoken: a thin wrapper around
// tiktoken.GetEncoding, used here only for its Encode/Decode pair.
type tokenEncoding struct {
	enc *tiktoken.Tiktoken
}

// newTokenEncoding loads the cl100k_base encoding, shared by every OpenAI
// embedding model this tree targets.
func newTokenEncoding() (*tokenEncoding, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &tokenEncoding{enc: enc}, nil
}

// truncate returns text unchanged if it already fits within maxTokens,
// otherwise the longest token-aligned prefix that does, with an ellipsis
// marking the cut.
func (t *tokenEncoding) truncate(text string, maxTokens int) string {
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens]) + "…"
}
