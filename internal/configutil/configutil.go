package configutil

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagOrViperString returns the flag value when it was set on the command
// line, otherwise the viper value for key.
func FlagOrViperString(cmd *cobra.Command, flagName, key string) string {
	if cmd != nil && flagName != "" {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			v, _ := cmd.Flags().GetString(flagName)
			return v
		}
	}
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return viper.GetString(key)
}

func FlagOrViperInt(cmd *cobra.Command, flagName, key string) int {
	if cmd != nil && flagName != "" {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			v, _ := cmd.Flags().GetInt(flagName)
			return v
		}
	}
	if strings.TrimSpace(key) == "" {
		return 0
	}
	return viper.GetInt(key)
}

func FlagOrViperBool(cmd *cobra.Command, flagName, key string) bool {
	if cmd != nil && flagName != "" {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			v, _ := cmd.Flags().GetBool(flagName)
			return v
		}
	}
	if strings.TrimSpace(key) == "" {
		return false
	}
	return viper.GetBool(key)
}

func FlagOrViperDuration(cmd *cobra.Command, flagName, key string) time.Duration {
	if cmd != nil && flagName != "" {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			v, _ := cmd.Flags().GetDuration(flagName)
			return v
		}
	}
	if strings.TrimSpace(key) == "" {
		return 0
	}
	return viper.GetDuration(key)
}
