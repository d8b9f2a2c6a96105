// Package cmd implements the bioctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yerzatm002/biometric-auth-system/pkg/audit"
	"github.com/yerzatm002/biometric-auth-system/pkg/session"
	"github.com/yerzatm002/biometric-auth-system/pkg/store"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Global flags
	outputFormat string
	dbPath       string
	serverFlag   string
	verbose      bool

	// Shared state, initialized in PersistentPreRunE
	db       *store.Store
	sess     *session.Store
	recorder *audit.Recorder
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bioctl",
	Short: "Multi-factor authentication client",
	Long: `bioctl is a command-line client for the biometric authentication flow.

Logging in is a sequence: password first, then face liveness verification
against the camera, with a PIN fallback when the face step cannot succeed.
The resulting session is persisted locally and attached to later requests.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip store initialization for completion commands
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		path := dbPath
		if path == "" {
			path = store.DefaultPath()
		}

		var err error
		db, err = store.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		sess = session.New(db, logger)
		if err := sess.Initialize(); err != nil {
			db.Close()
			return fmt.Errorf("failed to load session: %w", err)
		}

		recorder = audit.NewRecorder(logger, audit.NewStoreEmitter(db))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

func init() {
	store.SetAppName("bioctl")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.local/share/bioctl/session.db)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Verifier server URL (overrides config and BIOCTL_SERVER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// OutputFormat exposes the selected output format to main for error printing.
func OutputFormat() string {
	return outputFormat
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(data)
	case "yaml":
		return outputYAML(data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
