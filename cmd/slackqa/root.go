package main

import (
	"github.com/quailyquaily/slackqa/cmd/slackqa/askcmd"
	"github.com/quailyquaily/slackqa/cmd/slackqa/configcmd"
	"github.com/quailyquaily/slackqa/cmd/slackqa/indexcmd"
	"github.com/quailyquaily/slackqa/cmd/slackqa/modelscmd"
	"github.com/quailyquaily/slackqa/cmd/slackqa/slackcmd"
	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slackqa",
		Short:         "Slack question-answering bot backed by Azure OpenAI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default ./.config.yaml). When present it is the only config source.")
	root.PersistentFlags().String("env-file", ".env", "Optional .env file loaded when no config file is present.")

	root.AddCommand(slackcmd.NewCommand(slackcmd.Dependencies{
		LoadConfig: func(cmd *cobra.Command) (*config.Config, error) {
			cfg, _, err := loadConfig(cmd)
			return cfg, err
		},
		NewLogger: newLogger,
		NewChain:  newChain,
	}))
	root.AddCommand(askcmd.NewCommand(askcmd.Dependencies{
		LoadConfig: func(cmd *cobra.Command) (*config.Config, error) {
			cfg, _, err := loadConfig(cmd, askSkippedKeys...)
			return cfg, err
		},
		NewLogger: newLogger,
		NewChain:  newChain,
	}))
	root.AddCommand(indexcmd.NewCommand(indexcmd.Dependencies{
		LoadConfig: func(cmd *cobra.Command) (*config.Config, error) {
			cfg, _, err := loadConfig(cmd, config.RequiredKeys...)
			return cfg, err
		},
		NewLogger: newLogger,
	}))
	root.AddCommand(modelscmd.NewCommand(modelscmd.Dependencies{
		LoadConfig: func(cmd *cobra.Command) (*config.Config, error) {
			cfg, _, err := loadConfig(cmd, config.RequiredKeys...)
			return cfg, err
		},
		NewRegistry: newRegistry,
	}))
	root.AddCommand(configcmd.NewCommand(configcmd.Dependencies{
		LoadConfig: func(cmd *cobra.Command) (*config.Config, config.Source, error) {
			return loadConfig(cmd, config.RequiredKeys...)
		},
	}))
	return root
}
