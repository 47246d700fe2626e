package askcmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/quailyquaily/slackqa/internal/chathistory"
	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/quailyquaily/slackqa/internal/configutil"
	"github.com/quailyquaily/slackqa/internal/llminspect"
	"github.com/quailyquaily/slackqa/internal/outputfmt"
	"github.com/quailyquaily/slackqa/internal/qa"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type Dependencies struct {
	LoadConfig func(cmd *cobra.Command) (*config.Config, error)
	NewLogger  func(cfg *config.Config) (*slog.Logger, error)
	NewChain   func(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, inspector *llminspect.PromptInspector) (*qa.Chain, func() error, error)
}

func NewCommand(d Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.LoadConfig == nil || d.NewLogger == nil || d.NewChain == nil {
				return fmt.Errorf("ask command dependencies missing")
			}
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			cfg, err := d.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := d.NewLogger(cfg)
			if err != nil {
				return err
			}

			history := chathistory.Transcript{}
			if path := strings.TrimSpace(configutil.FlagOrViperString(cmd, "history-file", "")); path != "" {
				history, err = readHistoryFile(path)
				if err != nil {
					return err
				}
			}

			var inspector *llminspect.PromptInspector
			if configutil.FlagOrViperBool(cmd, "inspect-prompt", "") {
				inspector, err = llminspect.NewPromptInspector(llminspect.Options{
					Mode:            "ask",
					Task:            question,
					TimestampFormat: "20060102_150405",
				})
				if err != nil {
					return err
				}
				defer func() { _ = inspector.Close() }()
			}

			chain, closeChain, err := d.NewChain(cmd, cfg, logger, inspector)
			if err != nil {
				return err
			}
			defer func() { _ = closeChain() }()

			ctx := llminspect.WithModelScene(cmd.Context(), "ask")
			user, _ := cmd.Flags().GetString("user")
			result, err := chain.Run(ctx, question, history)
			if err != nil {
				logger.Error("ask_error", "error", err.Error())
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), outputfmt.ComposeFailure(err))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), outputfmt.ComposeReply(result, strings.TrimSpace(user)))
			return err
		},
	}

	cmd.Flags().String("model", "", "Model profile used for the answer (overrides DEFAULT_MODEL).")
	cmd.Flags().String("history-file", "", "YAML list of earlier {user, bot} turns to include as history.")
	cmd.Flags().String("user", "local", "User id the reply is addressed to.")
	cmd.Flags().Bool("inspect-prompt", false, "Dump prompts (messages) to ./dump/prompt_ask_YYYYMMDD_HHmmss.md.")
	return cmd
}

func readHistoryFile(path string) (chathistory.Transcript, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	var turns chathistory.Transcript
	if err := yaml.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("parse history file %s: %w", path, err)
	}
	if turns == nil {
		turns = chathistory.Transcript{}
	}
	return turns, nil
}
