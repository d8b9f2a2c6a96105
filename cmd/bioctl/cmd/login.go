package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yerzatm002/biometric-auth-system/internal/flow"
	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
	"github.com/yerzatm002/biometric-auth-system/pkg/verifier"
)

var (
	loginEmail     string
	loginPassword  string
	loginPin       string
	loginFramesDir string
	loginGuided    bool
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted if omitted)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted if omitted)")
	loginCmd.Flags().StringVar(&loginPin, "pin", "", "Fallback PIN for non-interactive runs")
	loginCmd.Flags().StringVar(&loginFramesDir, "frames-dir", "", "Directory of frames to use as the camera source")
	loginCmd.Flags().BoolVar(&loginGuided, "guided", false, "Confirm each capture step and count down before the shot")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with password, face liveness, and PIN fallback",
	Long: `Run the full login sequence against the verifier.

The password step comes first. On success the camera captures a timed
frame sequence (frontal, then turned) for liveness verification. If the
face step cannot succeed, the flow falls back to the account PIN.

Examples:
  bioctl login --email user@example.com --frames-dir ./frames
  bioctl login --guided --frames-dir ./frames`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	email := loginEmail
	if email == "" {
		var err error
		if email, err = readLine("Email: "); err != nil {
			return clierror.InternalError(err)
		}
	}
	password := loginPassword
	if password == "" {
		var err error
		if password, err = readLine("Password: "); err != nil {
			return clierror.InternalError(err)
		}
	}

	capturer, capErr := newCapturer(loginFramesDir, loginGuided)

	l := flow.NewLogin(sess, newAPIClient(), capturer, recorder, logger)

	if err := l.SubmitCredentials(ctx, email, password); err != nil {
		if apiErr, ok := verifier.AsAPIError(err); ok {
			return clierror.InvalidCredentials(apiErr.Detail)
		}
		return clierror.ConnectionFailed(GetServer())
	}

	if capErr != nil {
		// No camera source; the PIN keeps the login usable.
		logger.Warn("no camera source configured, falling back to PIN")
		if err := l.FallBackToPin("no camera source configured"); err != nil {
			return clierror.InternalError(err)
		}
	} else if err := l.RunFaceVerify(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Face capture failed: %v\n", err)
		if err := l.FallBackToPin("capture failed"); err != nil {
			return clierror.InternalError(err)
		}
	}

	if l.State() == flow.StatePinFallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "Face verification unavailable: %s\n", l.FallbackReason())
		if err := runPinFallback(cmd, l); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Authenticated (PIN fallback).")
		return nil
	}

	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Authenticated (face verified).")
	return nil
}

// runPinFallback collects and submits the PIN. Interactive runs get
// three attempts; a --pin flag gets exactly one.
func runPinFallback(cmd *cobra.Command, l *flow.Login) error {
	attempts := 3
	if loginPin != "" {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		pin := loginPin
		if pin == "" {
			var err error
			if pin, err = readLine("PIN: "); err != nil {
				return clierror.InternalError(err)
			}
		}

		err := l.SubmitPIN(cmd.Context(), pin)
		if err == nil {
			return nil
		}
		if errors.Is(err, flow.ErrInvalidPIN) {
			fmt.Fprintln(cmd.ErrOrStderr(), "PIN must be exactly 4 digits.")
			continue
		}
		if apiErr, ok := verifier.AsAPIError(err); ok {
			if apiErr.IsLocked() {
				return clierror.PinLocked(apiErr.Detail)
			}
			if apiErr.IsUnauthorized() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Wrong PIN.")
				continue
			}
		}
		return clierror.ConnectionFailed(GetServer())
	}
	return clierror.NotAuthenticated()
}
