// log.go implements the "ipfa log" command for reading the audit log.

package core

import (
	"fmt"
	"time"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/duration"
	"github.com/jpl-au/ipfa/internal/format"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "log",
		Short: "Show recent operations from the audit log",
		Long: `Show recent operations recorded in the audit log, newest first.

Every MCP tool call, chat tool call and CLI command that reads IP Fabric is
recorded with its snapshot, table, row count and outcome.

  ipfa log
  ipfa log --failed
  ipfa log --since 12h
  ipfa log --source mcp:ipf_compare_table -n 5`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}
	c.Flags().Bool(extension.FlagFailed, false, "Only failed operations")
	c.Flags().String(extension.FlagSource, "", "Only entries from this source (e.g. mcp:ipf_query_table)")
	c.Flags().String(extension.FlagSince, "", "Only entries newer than this (12h, 7d, 4w)")
	c.Flags().IntP(extension.FlagLimit, "n", 20, "Number of entries")
	return c
}

func runLog(c *cobra.Command, _ []string) error {
	failed, _ := c.Flags().GetBool(extension.FlagFailed)
	source, _ := c.Flags().GetString(extension.FlagSource)
	since, _ := c.Flags().GetString(extension.FlagSince)
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	if limit < 1 {
		return cmd.PrintJSONError(fmt.Errorf("--%s must be at least 1", extension.FlagLimit))
	}

	f := log.Filter{Source: source, Failed: failed, Limit: limit}
	if since != "" {
		t, err := duration.Before(time.Now(), since)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("--%s: %w", extension.FlagSince, err))
		}
		f.Since = t
	}

	recs, err := log.Recent(f)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("reading audit log: %w", err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(recs)
	}
	return format.LogEntries(cmd.Out(), recs)
}
