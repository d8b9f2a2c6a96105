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
	registerEmail     string
	registerPassword  string
	registerPin       string
	registerFramesDir string
	registerGuided    bool
	registerConsent   bool
)

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Account password (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerPin, "pin", "", "4-digit fallback PIN (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerFramesDir, "frames-dir", "", "Directory of frames to use as the camera source")
	registerCmd.Flags().BoolVar(&registerGuided, "guided", false, "Confirm each capture step and count down before the shot")
	registerCmd.Flags().BoolVar(&registerConsent, "consent", false, "Acknowledge biometric data processing consent")
	rootCmd.AddCommand(registerCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and enroll a reference face frame",
	Long: `Register a new account with the verifier.

The account is created with a password and a 4-digit fallback PIN, then
a reference face frame is captured and enrolled so later logins can
verify liveness against it.

Examples:
  bioctl register --email new@example.com --frames-dir ./frames`,
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	email := registerEmail
	if email == "" {
		var err error
		if email, err = readLine("Email: "); err != nil {
			return clierror.InternalError(err)
		}
	}
	password := registerPassword
	if password == "" {
		var err error
		if password, err = readLine("Password: "); err != nil {
			return clierror.InternalError(err)
		}
	}
	pin := registerPin
	if pin == "" {
		var err error
		if pin, err = readLine("4-digit PIN: "); err != nil {
			return clierror.InternalError(err)
		}
	}

	consent := registerConsent
	if !consent {
		answer, err := readLine("Enrollment processes your biometric data. Continue? [y/N]: ")
		if err != nil {
			return clierror.InternalError(err)
		}
		consent = answer == "y" || answer == "Y" || answer == "yes"
	}

	capturer, err := newCapturer(registerFramesDir, registerGuided)
	if err != nil {
		return err
	}

	e := flow.NewEnrollment(sess, newAPIClient(), capturer, recorder, logger)
	user, err := e.Run(ctx, email, password, pin, consent)
	if err != nil {
		if errors.Is(err, flow.ErrConsentRequired) {
			return fmt.Errorf("enrollment cancelled: consent not given")
		}
		if errors.Is(err, flow.ErrInvalidPIN) {
			return fmt.Errorf("PIN must be exactly 4 digits")
		}
		if apiErr, ok := verifier.AsAPIError(err); ok {
			return clierror.InvalidCredentials(apiErr.Detail)
		}
		return clierror.InternalError(err)
	}

	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Enrollment complete.")
	fmt.Fprintf(cmd.OutOrStdout(), "Subject ID: %d\n", user.ID)
	return nil
}
