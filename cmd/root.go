/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// root.go defines the root command and CLI execution entry point.
//
// Separated from init_extensions.go to isolate cobra setup from extension
// initialisation logic.
//
// Design: PersistentPreRunE connects to IP Fabric lazily - only commands
// that talk to it trigger extension init. Offline commands (guide, config,
// version, log, history) work before any instance is configured.

package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/jpl-au/ipfa/internal/log"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "ipfa",
	Short: "IP Fabric assistant: MCP tools, snapshot diffs and chat",
	Long: `ipfa exposes an IP Fabric instance to LLMs as MCP tools, compares tables
between snapshots, and runs a chat assistant that uses those tools.

  ipfa guide    # start here`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if output != "" && !slices.Contains(validOutputFormats, output) {
			return fmt.Errorf("invalid output format: %s (valid: %v)", output, validOutputFormats)
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l

		if !term.IsTerminal(int(os.Stdout.Fd())) {
			pterm.DisableStyling()
		}

		if !offlineCommands[topLevelCmdName(cmd)] {
			if err := initExtensions(cmd.Context()); err != nil {
				if JSON() {
					_ = PrintJSON(map[string]string{"error": err.Error()})
					cmd.SilenceErrors = true
					cmd.SilenceUsage = true
				}
				return fmt.Errorf("initialise extensions: %w", err)
			}
		}

		return nil
	},
}

// topLevelCmdName returns the name of the top-level command (direct child of root).
// For "ipfa snapshot use $prev", returns "snapshot".
func topLevelCmdName(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent().HasParent() {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

// Execute runs the root command and handles process lifecycle.
// Opens audit logging, registers extensions, executes the command and
// flushes the logger before exit. Exit code 1 indicates error.
func Execute() {
	// Audit logging is best effort.
	if err := log.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
	}
	defer log.Close()

	registerExtensions()
	err := rootCmd.Execute()

	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		log.Close()
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing and extension access.
func RootCmd() *cobra.Command {
	return rootCmd
}
