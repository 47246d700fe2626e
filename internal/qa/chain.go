package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailyquaily/slackqa/internal/chathistory"
	"github.com/quailyquaily/slackqa/internal/retrieval"
	"github.com/quailyquaily/slackqa/llm"
)

const DefaultSystemPrompt = "You are a helpful assistant answering questions from a Slack workspace. " +
	"Answer in the language of the question. When context documents are provided, base the answer on them " +
	"and say so when they do not contain the answer."

// SourceDocument is a retrieved document the answer was grounded on.
type SourceDocument struct {
	Metadata map[string]string
}

// Result mirrors what retrieval chains return. Some chains fill Answer and
// others Result; readers should prefer Answer.
type Result struct {
	Answer          string
	Result          string
	SourceDocuments []SourceDocument
}

func (r Result) Text() string {
	if strings.TrimSpace(r.Answer) != "" {
		return r.Answer
	}
	return r.Result
}

type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Document, error)
}

type Answerer interface {
	Run(ctx context.Context, messages []llm.Message, model string) (string, error)
}

// Runner is what the Slack handler and the ask command depend on.
type Runner interface {
	Run(ctx context.Context, question string, history chathistory.Transcript) (Result, error)
}

type Chain struct {
	Agent        Answerer
	Retriever    Retriever
	Model        string
	SystemPrompt string
	TopK         int
}

// Run answers question given the earlier turns of the thread. The prompt is
// [system + context] + history + question; trimming to the model budget
// happens inside Agent.
func (c *Chain) Run(ctx context.Context, question string, history chathistory.Transcript) (Result, error) {
	if c == nil || c.Agent == nil {
		return Result{}, fmt.Errorf("qa chain is not initialized")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, fmt.Errorf("question is required")
	}

	var docs []retrieval.Document
	if c.Retriever != nil && c.TopK > 0 {
		found, err := c.Retriever.Search(ctx, question, c.TopK)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve documents: %w", err)
		}
		docs = found
	}

	messages := make([]llm.Message, 0, 2+len(history)*2)
	messages = append(messages, llm.System(c.systemMessage(docs)))
	messages = append(messages, chathistory.BuildMessages(history, question)...)

	answer, err := c.Agent.Run(ctx, messages, c.Model)
	if err != nil {
		return Result{}, err
	}

	out := Result{Answer: answer}
	for _, d := range docs {
		meta := make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		out.SourceDocuments = append(out.SourceDocuments, SourceDocument{Metadata: meta})
	}
	return out, nil
}

func (c *Chain) systemMessage(docs []retrieval.Document) string {
	prompt := strings.TrimSpace(c.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	if len(docs) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nContext documents:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, d.Source(), strings.TrimSpace(d.Content))
	}
	return b.String()
}
