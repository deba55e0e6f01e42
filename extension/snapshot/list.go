// list.go implements "ipfa snapshots" and "ipfa snapshot use".

package snapshot

import (
	"fmt"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/internal/format"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (e *Extension) newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshots",
		Long: `List IP Fabric snapshots, newest first. The active snapshot
(--snapshot, or ipf.snapshot from config) is marked with *.

  ipfa snapshots
  ipfa snapshots -o json`,
		Args: cobra.NoArgs,
		RunE: e.runSnapshots,
	}
}

func (e *Extension) runSnapshots(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	current := e.ctx.Session().Snapshot()
	l := log.Event("snapshot:snapshots", "list").Author(cmd.Author()).Snapshot(current)

	snaps, err := e.ctx.Client().Snapshots(ctx)
	l.Rows(len(snaps))
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("listing snapshots: %w", err))
	}

	active := ""
	if s, err := ipf.Resolve(snaps, current); err == nil {
		active = s.ID
		l.Resolved(s.ID)
	} else {
		e.ctx.Logger().Debug("active snapshot not found", zap.String("snapshot", current), zap.Error(err))
	}
	l.Write(nil)

	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{
			"snapshots":        snaps,
			"current_snapshot": current,
			"resolved":         active,
		})
	}
	return format.Snapshots(cmd.Out(), snaps, active)
}

func (e *Extension) newSnapshotCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the default snapshot",
	}
	c.AddCommand(&cobra.Command{
		Use:   "use <id>",
		Short: "Set the default snapshot",
		Long: `Set ipf.snapshot, the snapshot commands, the MCP server and chat start on.
The identifier is checked against IP Fabric first. Aliases are stored as
aliases, so "$last" keeps following the newest snapshot.

  ipfa snapshot use $prev
  ipfa snapshot use 12dd8c61-129c-431a-b98b-4c9211571f89`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return []string{ipf.AliasLast, ipf.AliasPrev, ipf.AliasLastLocked}, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: e.runUse,
	})
	return c
}

func (e *Extension) runUse(c *cobra.Command, args []string) error {
	id := args[0]
	l := log.Event("snapshot:use", "set").Author(cmd.Author()).Snapshot(id)

	s, err := e.ctx.Client().ResolveSnapshot(c.Context(), id)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("snapshot use %q: %w", id, err))
	}
	l.Resolved(s.ID)

	cfg := e.ctx.Config()
	if err := cfg.Set("ipf.snapshot", id); err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	if err := cfg.Save(); err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("config save: %w", err))
	}
	old := e.ctx.Session().Set(id)
	l.Detail("previous", old).Write(nil)

	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"snapshot": id, "resolved": s.ID, "previous": old})
	}
	if id != s.ID {
		fmt.Fprintf(cmd.Out(), "default snapshot: %s (currently %s)\n", id, s.ID)
	} else {
		fmt.Fprintf(cmd.Out(), "default snapshot: %s\n", id)
	}
	return nil
}
