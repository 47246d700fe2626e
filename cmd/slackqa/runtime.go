package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/quailyquaily/slackqa/agent"
	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/quailyquaily/slackqa/internal/configutil"
	"github.com/quailyquaily/slackqa/internal/llminspect"
	"github.com/quailyquaily/slackqa/internal/logutil"
	"github.com/quailyquaily/slackqa/internal/qa"
	"github.com/quailyquaily/slackqa/internal/retrieval"
	"github.com/quailyquaily/slackqa/llm"
	"github.com/quailyquaily/slackqa/providers/azureopenai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// askSkippedKeys are not needed to answer from the terminal.
var askSkippedKeys = []string{
	config.KeySlackBotToken,
	config.KeySlackAppToken,
	config.KeyMessageHistoryCount,
}

func loadConfig(cmd *cobra.Command, skipRequired ...string) (*config.Config, config.Source, error) {
	return config.Load(viper.GetViper(), config.LoadOptions{
		File:         configutil.FlagOrViperString(cmd, "config", ""),
		DotEnv:       configutil.FlagOrViperString(cmd, "env-file", ""),
		SkipRequired: skipRequired,
	})
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logutil.New(logutil.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	}, os.Stderr)
}

// newRegistry returns the built-in model profiles plus those declared in
// MODEL_PROFILES.
func newRegistry(cfg *config.Config) (*agent.Registry, error) {
	reg := agent.NewDefaultRegistry()
	extra, err := agent.ParseProfiles(cfg.ModelProfiles)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.KeyModelProfiles, err)
	}
	for _, p := range extra {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newAgent(cfg *config.Config, logger *slog.Logger, inspector *llminspect.PromptInspector) (*agent.Agent, error) {
	reg, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	base, err := azureopenai.New(azureopenai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		APIBase:    cfg.OpenAI.APIBase,
		APIVersion: cfg.OpenAI.APIVersion,
		APIType:    cfg.OpenAI.APIType,
		Timeout:    cfg.OpenAI.Timeout,
		MaxRetries: cfg.OpenAI.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	var client llm.Client = base
	if inspector != nil {
		client = &llminspect.PromptClient{Base: base, Inspector: inspector}
	}

	// Deployment names are not OpenAI model names, so every profile ends up
	// on the same tokenizer; load it once.
	counter, err := azureopenai.NewTokenCounter(cfg.DefaultModel)
	if err != nil {
		return nil, err
	}
	return agent.New(reg, agent.Backend{Client: client, CountTokens: counter.Func()}, agent.WithLogger(logger)), nil
}

func newChain(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, inspector *llminspect.PromptInspector) (*qa.Chain, func() error, error) {
	a, err := newAgent(cfg, logger, inspector)
	if err != nil {
		return nil, nil, err
	}
	model := strings.TrimSpace(configutil.FlagOrViperString(cmd, "model", config.KeyDefaultModel))
	if model == "" {
		model = cfg.DefaultModel
	}
	if _, err := a.Registry().Resolve(model); err != nil {
		return nil, nil, err
	}

	chain := &qa.Chain{
		Agent:        a,
		Model:        model,
		SystemPrompt: cfg.SystemPrompt,
		TopK:         cfg.RetrievalTopK,
	}
	closeFn := func() error { return nil }
	if cfg.RetrievalTopK > 0 && cfg.DocumentStorePath != "" {
		store, err := retrieval.Open(cfg.DocumentStorePath)
		if err != nil {
			return nil, nil, err
		}
		n, err := store.Count()
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		logger.Info("document_store_open", "path", cfg.DocumentStorePath, "documents", n)
		chain.Retriever = store
		closeFn = store.Close
	}
	return chain, closeFn, nil
}
