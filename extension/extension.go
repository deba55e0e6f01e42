// Package extension provides the plugin architecture for ipfa. Extensions
// group related CLI commands and register at init time, so new command
// groups are added without touching the root command.
package extension

import (
	"github.com/spf13/cobra"
)

// Extension defines the contract for ipfa extensions.
type Extension interface {
	// Name returns a unique identifier for this extension.
	Name() string

	// Commands returns CLI commands to register with the root command.
	Commands() []*cobra.Command
}

// Initializable extensions receive the shared Context before their
// commands run.
type Initializable interface {
	Extension
	Init(ctx Context) error
}

// Offline is an optional interface for extensions with commands that do
// not talk to IP Fabric. Commands returned by OfflineCommands() do not
// trigger extension initialisation in PersistentPreRunE, so they work
// before an instance is configured.
//
// Use cases:
// 1. Local state (config, history, audit log)
// 2. Static information (guide, version, the table catalog)
type Offline interface {
	OfflineCommands() []string
}
