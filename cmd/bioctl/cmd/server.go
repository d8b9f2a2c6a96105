package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
)

func init() {
	configCmd.AddCommand(configSetServerCmd)
	configCmd.AddCommand(configGetServerCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bioctl configuration",
}

var configSetServerCmd = &cobra.Command{
	Use:   "set-server URL",
	Short: "Save the verifier server URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return clierror.InternalError(err)
		}
		cfg.Server = args[0]
		if err := SaveConfig(cfg); err != nil {
			return clierror.InternalError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server set to %s\n", args[0])
		return nil
	},
}

var configGetServerCmd = &cobra.Command{
	Use:   "get-server",
	Short: "Show the resolved verifier server URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), GetServer())
		return nil
	},
}
