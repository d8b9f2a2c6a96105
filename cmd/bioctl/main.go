// bioctl is the client-side CLI for the biometric authentication flow:
// password login, face liveness verification, and PIN fallback.

package main

import (
	"errors"
	"os"

	"github.com/yerzatm002/biometric-auth-system/cmd/bioctl/cmd"
	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var cliErr *clierror.CLIError
		if errors.As(err, &cliErr) {
			clierror.PrintError(cliErr, cmd.OutputFormat())
			os.Exit(cliErr.ExitCode)
		}
		os.Exit(clierror.ExitGeneral)
	}
}
