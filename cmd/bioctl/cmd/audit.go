package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
)

var (
	auditRemote bool
	auditLimit  int
)

func init() {
	auditCmd.Flags().BoolVar(&auditRemote, "remote", false, "Fetch the server-side trail instead of the local one")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of entries to show")
	rootCmd.AddCommand(auditCmd)
}

// AuditOutput is one trail entry in JSON/YAML output.
type AuditOutput struct {
	Event     string `json:"event" yaml:"event"`
	Actor     string `json:"actor" yaml:"actor"`
	Success   bool   `json:"success" yaml:"success"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the authentication audit trail",
	Long: `Show audit events, newest first.

The local trail records what this client did: logins, fallbacks,
lockouts, session changes. With --remote, the server's trail for the
authenticated subject is fetched instead.

Examples:
  bioctl audit
  bioctl audit --remote -o json`,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	if err := requireAdmitted("/audit"); err != nil {
		return err
	}

	var entries []AuditOutput
	if auditRemote {
		events, err := newAPIClient().AuditLog(cmd.Context())
		if err != nil {
			return clierror.ConnectionFailed(GetServer())
		}
		for _, ev := range events {
			entries = append(entries, AuditOutput{
				Event:     ev.Action,
				Actor:     fmt.Sprintf("%d", ev.UserID),
				Success:   ev.Success,
				Timestamp: ev.Timestamp.Format(time.RFC3339),
			})
		}
	} else {
		local, err := db.ListAudit(auditLimit)
		if err != nil {
			return clierror.InternalError(err)
		}
		for _, e := range local {
			entries = append(entries, AuditOutput{
				Event:     e.EventType,
				Actor:     e.ActorID,
				Success:   e.Success,
				Detail:    e.Detail,
				Timestamp: e.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	if outputFormat != "table" {
		return formatOutput(entries)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit events.")
		return nil
	}
	fmt.Fprintf(out, "%-25s %-22s %-8s %s\n", "TIMESTAMP", "EVENT", "OK", "DETAIL")
	for _, e := range entries {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		fmt.Fprintf(out, "%-25s %-22s %-8s %s\n", e.Timestamp, e.Event, ok, e.Detail)
	}
	return nil
}
