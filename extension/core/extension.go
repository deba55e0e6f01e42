// Package core provides the core extension for ipfa.
// It registers commands: config, serve, guide, version, log.
package core

import (
	"github.com/jpl-au/ipfa/extension"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the core extension.
type Extension struct {
	ctx extension.Context
}

// Compile-time interface compliance. Catches missing methods at build time
// rather than runtime, making interface changes safer to refactor.
var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Offline       = (*Extension)(nil)
)

// Name returns "core" - this extension provides fundamental ipfa commands.
func (e *Extension) Name() string { return "core" }

// Init stores the context for serve.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns all core CLI commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newConfigCmd(),
		e.newServeCmd(),
		newGuideCmd(),
		newVersionCmd(),
		newLogCmd(),
	}
}

// OfflineCommands returns commands that never contact IP Fabric.
// serve is absent: it needs a configured instance.
func (e *Extension) OfflineCommands() []string {
	return []string{"config", "guide", "version", "log"}
}
