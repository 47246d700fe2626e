package modelscmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/quailyquaily/slackqa/agent"
	"github.com/quailyquaily/slackqa/internal/config"
	"github.com/spf13/cobra"
)

type Dependencies struct {
	LoadConfig  func(cmd *cobra.Command) (*config.Config, error)
	NewRegistry func(cfg *config.Config) (*agent.Registry, error)
}

func NewCommand(d Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model profiles and their prompt budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.LoadConfig == nil || d.NewRegistry == nil {
				return fmt.Errorf("models command dependencies missing")
			}
			cfg, err := d.LoadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := d.NewRegistry(cfg)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCONTEXT\tRESERVED\tBUDGET\tDEFAULT")
			for _, p := range reg.Profiles() {
				def := ""
				if p.Name == cfg.DefaultModel {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", p.Name, p.ContextWindow, p.ReservedResponse, p.Budget(), def)
			}
			return w.Flush()
		},
	}
}
