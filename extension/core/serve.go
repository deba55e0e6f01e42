// serve.go implements the "ipfa serve" command for MCP server operation.
//
// Separated from extension.go because serve has unique lifecycle requirements.
// Unlike other commands that run and exit, serve blocks handling MCP
// requests over stdio until stdin closes or the process is interrupted.

package core

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/mcp"
	"github.com/spf13/cobra"
)

func (e *Extension) newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Long: `Start an MCP (Model Context Protocol) server over stdio for LLM integration.

The session starts on ipf.snapshot (default $last). Aliases are resolved to a
concrete snapshot id at startup so the session does not drift when a new
snapshot is loaded; use --no-pin to keep the alias.

  ipfa serve
  ipfa serve -s $prev
  ipfa serve --no-pin

Logs go to stderr; stdout carries JSON-RPC only.`,
		Args: cobra.NoArgs,
		RunE: e.runServe,
	}
	c.Flags().Bool(extension.FlagNoPin, false, "Keep snapshot aliases unresolved")
	return c
}

func (e *Extension) runServe(c *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if noPin, _ := c.Flags().GetBool(extension.FlagNoPin); !noPin {
		extension.PinSession(ctx, e.ctx)
	}

	srv := mcp.NewServer(mcp.Options{
		Client:  e.ctx.Client(),
		Session: e.ctx.Session(),
		Logger:  cmd.Logger(),
		Source:  "mcp",
	})
	return mcp.Serve(ctx, srv, cmd.Logger())
}
