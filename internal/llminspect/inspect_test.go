package llminspect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quailyquaily/slackqa/llm"
)

func TestModelSceneContext(t *testing.T) {
	if got := ModelSceneFromContext(nil); got != defaultModelScene {
		t.Fatalf("scene for nil ctx = %q, want %q", got, defaultModelScene)
	}
	ctx := WithModelScene(context.Background(), " slack.mention ")
	if got := ModelSceneFromContext(ctx); got != "slack.mention" {
		t.Fatalf("scene = %q, want slack.mention", got)
	}
}

func readSingleDumpFile(t *testing.T, path string) (string, string) {
	t.Helper()
	path = strings.TrimSpace(path)
	if path == "" {
		t.Fatalf("empty dump path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("filepath.Abs() error = %v", err)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	return abs, string(raw)
}

type staticChatClient struct{}

func (staticChatClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	return llm.Result{Text: "ok"}, nil
}

func TestPromptClientDumpsRequests(t *testing.T) {
	dir := t.TempDir()
	inspector, err := NewPromptInspector(Options{Mode: "slack", Task: "slack", DumpDir: dir})
	if err != nil {
		t.Fatalf("NewPromptInspector() error = %v", err)
	}
	client := &PromptClient{Base: staticChatClient{}, Inspector: inspector}

	ctx := WithModelScene(context.Background(), "slack.mention")
	res, err := client.Chat(ctx, llm.Request{
		Model:     "azure-gpt-4-32k",
		MaxTokens: 3950,
		Messages:  []llm.Message{llm.System("be brief"), llm.User("hello")},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Text != "ok" {
		t.Fatalf("Text = %q, want ok", res.Text)
	}
	if err := inspector.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	abs, body := readSingleDumpFile(t, inspector.Path())
	if !strings.HasPrefix(filepath.Base(abs), "prompt_slack_") || filepath.Ext(abs) != ".md" {
		t.Fatalf("dump file = %q", abs)
	}
	for _, want := range []string{"- scene: slack.mention", "- model: azure-gpt-4-32k", "- max_tokens: 3950", "be brief", "hello"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dump missing %q:\n%s", want, body)
		}
	}

	if err := inspector.Dump(ctx, llm.Request{}); err == nil {
		t.Fatalf("expected error dumping after Close")
	}
}

func TestPromptClientNilBase(t *testing.T) {
	if _, err := (&PromptClient{}).Chat(context.Background(), llm.Request{}); err == nil {
		t.Fatalf("expected error for nil base")
	}
}
