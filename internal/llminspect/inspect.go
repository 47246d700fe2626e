package llminspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quailyquaily/slackqa/llm"
)

const defaultModelScene = "unspecified"

type modelSceneKey struct{}

// WithModelScene labels model calls made with ctx, e.g. "slack.mention".
func WithModelScene(ctx context.Context, scene string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, modelSceneKey{}, strings.TrimSpace(scene))
}

func ModelSceneFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultModelScene
	}
	if v, ok := ctx.Value(modelSceneKey{}).(string); ok && v != "" {
		return v
	}
	return defaultModelScene
}

type Options struct {
	Mode            string
	Task            string
	TimestampFormat string
	// DumpDir defaults to ./dump.
	DumpDir string
}

// PromptInspector appends every prompt sent to the model to one markdown
// file per process run.
type PromptInspector struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	count int
}

func NewPromptInspector(opts Options) (*PromptInspector, error) {
	mode := strings.TrimSpace(opts.Mode)
	if mode == "" {
		mode = "unknown"
	}
	format := strings.TrimSpace(opts.TimestampFormat)
	if format == "" {
		format = "20060102_150405"
	}
	dir := strings.TrimSpace(opts.DumpDir)
	if dir == "" {
		dir = "dump"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("prompt_%s_%s.md", mode, time.Now().Format(format)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("# Prompt dump\n\n- mode: %s\n- task: %s\n- started: %s\n", mode, strings.TrimSpace(opts.Task), time.Now().Format(time.RFC3339))
	if _, err := f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &PromptInspector{file: f, path: path}, nil
}

func (p *PromptInspector) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Dump writes one request. It is safe for concurrent use.
func (p *PromptInspector) Dump(ctx context.Context, req llm.Request) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return fmt.Errorf("prompt inspector is closed")
	}
	p.count++
	var b strings.Builder
	fmt.Fprintf(&b, "\n## Request %d\n\n- scene: %s\n- model: %s\n- max_tokens: %d\n- messages: %d\n", p.count, ModelSceneFromContext(ctx), req.Model, req.MaxTokens, len(req.Messages))
	for i, m := range req.Messages {
		fmt.Fprintf(&b, "\n### %d. %s\n\n```text\n%s\n```\n", i+1, m.Role, m.Content)
	}
	_, err := p.file.WriteString(b.String())
	return err
}

func (p *PromptInspector) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

// PromptClient dumps each request before passing it to Base.
type PromptClient struct {
	Base      llm.Client
	Inspector *PromptInspector
}

func (c *PromptClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil || c.Base == nil {
		return llm.Result{}, fmt.Errorf("prompt client base is nil")
	}
	if c.Inspector != nil {
		if err := c.Inspector.Dump(ctx, req); err != nil {
			return llm.Result{}, fmt.Errorf("dump prompt: %w", err)
		}
	}
	return c.Base.Chat(ctx, req)
}
