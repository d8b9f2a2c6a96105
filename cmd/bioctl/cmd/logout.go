package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yerzatm002/biometric-auth-system/pkg/audit"
	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long: `Clear the local session and tell the verifier to revoke the refresh
cookie. The local session is cleared even when the server is unreachable.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := newAPIClient().Logout(cmd.Context()); err != nil {
		logger.Warn("remote logout failed", "error", err)
	}

	if err := sess.ClearCredential(); err != nil {
		return clierror.InternalError(err)
	}
	recorder.Record(audit.EventSessionCleared, "", "")

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
