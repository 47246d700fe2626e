package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/slackqa/llm"
)

var ErrEmptyPrompt = errors.New("no messages left within the model's token budget")

// Backend is the model client pair used for one profile.
type Backend struct {
	Client      llm.Client
	CountTokens llm.TokenCounter
}

type Option func(*Agent)

func WithLogger(log *slog.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// WithModelBackend routes one model name to its own backend instead of the
// default one.
func WithModelBackend(model string, b Backend) Option {
	return func(a *Agent) {
		a.backends[strings.TrimSpace(model)] = b
	}
}

// Agent answers a message list with a registered model, trimming the oldest
// messages first so the prompt fits the model's budget.
type Agent struct {
	registry *Registry
	fallback Backend
	backends map[string]Backend
	log      *slog.Logger
}

func New(registry *Registry, backend Backend, opts ...Option) *Agent {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	a := &Agent{
		registry: registry,
		fallback: backend,
		backends: make(map[string]Backend),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Registry() *Registry {
	return a.registry
}

func (a *Agent) Run(ctx context.Context, messages []llm.Message, model string) (string, error) {
	profile, err := a.registry.Resolve(model)
	if err != nil {
		return "", err
	}
	backend := a.backendFor(profile.Name)
	if backend.Client == nil {
		return "", fmt.Errorf("no llm client configured for model %q", profile.Name)
	}

	trimmed := TrimMessages(append([]llm.Message(nil), messages...), profile, backend.CountTokens)
	if dropped := len(messages) - len(trimmed); dropped > 0 {
		a.log.Debug("agent_trim",
			"model", profile.Name,
			"budget", profile.Budget(),
			"messages", len(messages),
			"dropped", dropped,
		)
	}
	if len(trimmed) == 0 {
		return "", ErrEmptyPrompt
	}

	res, err := backend.Client.Chat(ctx, llm.Request{
		Model:     profile.Name,
		Messages:  trimmed,
		MaxTokens: profile.ReservedResponse,
	})
	if err != nil {
		return "", fmt.Errorf("chat %s: %w", profile.Name, err)
	}
	a.log.Debug("agent_chat_done",
		"model", profile.Name,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)
	return strings.TrimSpace(res.Text), nil
}

func (a *Agent) backendFor(model string) Backend {
	if b, ok := a.backends[model]; ok {
		return b
	}
	return a.fallback
}
