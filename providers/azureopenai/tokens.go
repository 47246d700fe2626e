package azureopenai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/quailyquaily/slackqa/llm"
)

const defaultEncoding = "cl100k_base"

// Per-message framing used by gpt-3.5-turbo / gpt-4 chat models: every
// message costs three extra tokens and every reply is primed with three.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

type TokenCounter struct {
	enc encoder
}

// NewTokenCounter picks the tokenizer for model. Azure deployment names are
// not OpenAI model names, so unknown names fall back to cl100k_base.
//
// tiktoken-go downloads the BPE ranks on first use and caches them under
// TIKTOKEN_CACHE_DIR.
func NewTokenCounter(model string) (*TokenCounter, error) {
	model = strings.TrimSpace(model)
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &TokenCounter{enc: enc}, nil
		}
	}
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load %s tokenizer: %w", defaultEncoding, err)
	}
	return &TokenCounter{enc: enc}, nil
}

func (c *TokenCounter) Count(messages []llm.Message) int {
	return countMessages(c.enc, messages)
}

// Func adapts the counter to llm.TokenCounter.
func (c *TokenCounter) Func() llm.TokenCounter {
	return c.Count
}

func countMessages(enc encoder, messages []llm.Message) int {
	if len(messages) == 0 {
		return 0
	}
	n := 0
	for _, m := range messages {
		n += tokensPerMessage
		n += len(enc.Encode(m.Role, nil, nil))
		n += len(enc.Encode(m.Content, nil, nil))
	}
	return n + tokensPerReply
}
