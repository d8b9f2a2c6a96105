package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusOutput represents the JSON/YAML output for the status command.
type StatusOutput struct {
	SubjectID    int64  `json:"subject_id" yaml:"subject_id"`
	FaceVerified bool   `json:"face_verified" yaml:"face_verified"`
	PinIssued    bool   `json:"pin_issued" yaml:"pin_issued"`
	ExpiresAt    string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Server       string `json:"server" yaml:"server"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Display the authenticated session: subject, verification method,
and credential expiry. Fails with a non-zero exit code when the session
would not be admitted past the route guard.

Examples:
  bioctl status
  bioctl status -o json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireAdmitted("/status"); err != nil {
		return err
	}

	snap := sess.Snapshot()
	output := StatusOutput{
		SubjectID:    snap.SubjectID,
		FaceVerified: snap.FaceVerified,
		PinIssued:    snap.PINIssued,
		Server:       GetServer(),
	}
	if snap.ExpiresAt != nil {
		output.ExpiresAt = snap.ExpiresAt.Format(time.RFC3339)
	}

	if outputFormat != "table" {
		return formatOutput(output)
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprintln(out, "Authenticated")
	fmt.Fprintf(out, "Subject:   %d\n", output.SubjectID)
	switch {
	case snap.FaceVerified:
		fmt.Fprintf(out, "Method:    face verification\n")
	case snap.PINIssued:
		fmt.Fprintf(out, "Method:    PIN fallback\n")
	}
	if output.ExpiresAt != "" {
		fmt.Fprintf(out, "Expires:   %s\n", output.ExpiresAt)
	} else {
		fmt.Fprintf(out, "Expires:   (no expiry claim)\n")
	}
	fmt.Fprintf(out, "Server:    %s\n", output.Server)
	return nil
}
