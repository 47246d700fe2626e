package configcmd

import (
	"fmt"

	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type Dependencies struct {
	LoadConfig func(cmd *cobra.Command) (*config.Config, config.Source, error)
}

type effectiveConfig struct {
	Source config.Source `yaml:"source"`
	Config config.Config `yaml:"config"`
}

func NewCommand(d Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.LoadConfig == nil {
				return fmt.Errorf("config command dependencies missing")
			}
			cfg, source, err := d.LoadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := render(cfg, source)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func render(cfg *config.Config, source config.Source) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	return yaml.Marshal(effectiveConfig{Source: source, Config: cfg.Redacted()})
}
