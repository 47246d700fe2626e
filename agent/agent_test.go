package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/quailyquaily/slackqa/llm"
)

type recordingClient struct {
	reqs []llm.Request
	text string
	err  error
}

func (c *recordingClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return llm.Result{}, c.err
	}
	return llm.Result{Text: c.text}, nil
}

func perMessage(n int) llm.TokenCounter {
	return func(messages []llm.Message) int { return len(messages) * n }
}

func TestAgentRunTrimsBeforeChat(t *testing.T) {
	reg, err := NewRegistry(ModelProfile{Name: "small", ContextWindow: 160, ReservedResponse: 10})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	client := &recordingClient{text: "  answer \n"}
	a := New(reg, Backend{Client: client, CountTokens: perMessage(50)})

	in := fourMessages()
	got, err := a.Run(context.Background(), in, "small")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "answer" {
		t.Fatalf("Run() = %q, want answer", got)
	}
	if len(client.reqs) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(client.reqs))
	}
	req := client.reqs[0]
	if req.Model != "small" || req.MaxTokens != 10 {
		t.Fatalf("request model/max = %q/%d, want small/10", req.Model, req.MaxTokens)
	}
	if len(req.Messages) != 3 || req.Messages[0].Content != "A1" {
		t.Fatalf("request messages = %#v, want first message dropped", req.Messages)
	}
	if len(in) != 4 || in[0].Content != "H1" {
		t.Fatalf("caller slice modified: %#v", in)
	}
}

func TestAgentRunUnknownModel(t *testing.T) {
	client := &recordingClient{text: "x"}
	a := New(NewDefaultRegistry(), Backend{Client: client, CountTokens: perMessage(1)})
	_, err := a.Run(context.Background(), fourMessages(), "unknown-model")
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("Run() error = %v, want ErrUnknownModel", err)
	}
	if len(client.reqs) != 0 {
		t.Fatalf("chat called %d times for unknown model", len(client.reqs))
	}
}

func TestAgentRunModelBackendOverride(t *testing.T) {
	def := &recordingClient{text: "default"}
	gpt4 := &recordingClient{text: "gpt4"}
	a := New(NewDefaultRegistry(),
		Backend{Client: def, CountTokens: perMessage(1)},
		WithModelBackend(ModelGPT4, Backend{Client: gpt4, CountTokens: perMessage(1)}),
	)
	got, err := a.Run(context.Background(), fourMessages(), ModelGPT4)
	if err != nil || got != "gpt4" {
		t.Fatalf("Run(gpt4) = %q, %v", got, err)
	}
	got, err = a.Run(context.Background(), fourMessages(), ModelGPT35Turbo)
	if err != nil || got != "default" {
		t.Fatalf("Run(turbo) = %q, %v", got, err)
	}
}

func TestAgentRunEverythingTrimmed(t *testing.T) {
	client := &recordingClient{text: "x"}
	a := New(NewDefaultRegistry(), Backend{Client: client, CountTokens: perMessage(1_000_000)})
	_, err := a.Run(context.Background(), fourMessages(), ModelGPT4)
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("Run() error = %v, want ErrEmptyPrompt", err)
	}
}

func TestAgentRunPropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	a := New(NewDefaultRegistry(), Backend{Client: &recordingClient{err: boom}, CountTokens: perMessage(1)})
	_, err := a.Run(context.Background(), fourMessages(), ModelGPT4)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped boom", err)
	}
}
