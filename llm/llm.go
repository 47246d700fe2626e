package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model    string
	Messages []Message
	// MaxTokens caps the completion length; 0 leaves it to the provider.
	MaxTokens int
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text  string
	Usage Usage
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// TokenCounter reports how many prompt tokens a message list costs for one
// model. Implementations may be expensive; callers must not assume caching.
type TokenCounter func(messages []Message) int

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
