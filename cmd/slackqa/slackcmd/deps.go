package slackcmd

import (
	"fmt"
	"log/slog"

	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/quailyquaily/slackqa/internal/llminspect"
	"github.com/quailyquaily/slackqa/internal/qa"
	"github.com/spf13/cobra"
)

type Dependencies struct {
	LoadConfig func(cmd *cobra.Command) (*config.Config, error)
	NewLogger  func(cfg *config.Config) (*slog.Logger, error)
	// NewChain builds the QA chain; the returned func releases the document
	// store.
	NewChain func(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, inspector *llminspect.PromptInspector) (*qa.Chain, func() error, error)
}

var deps Dependencies

func NewCommand(d Dependencies) *cobra.Command {
	deps = d
	return newSlackCmd()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if deps.LoadConfig == nil {
		return nil, fmt.Errorf("LoadConfig dependency missing")
	}
	return deps.LoadConfig(cmd)
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	if deps.NewLogger == nil {
		return slog.Default(), nil
	}
	return deps.NewLogger(cfg)
}

func newChain(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, inspector *llminspect.PromptInspector) (*qa.Chain, func() error, error) {
	if deps.NewChain == nil {
		return nil, nil, fmt.Errorf("NewChain dependency missing")
	}
	return deps.NewChain(cmd, cfg, logger, inspector)
}
