// Package snapshot provides the snapshot extension.
// Registers commands: snapshots, snapshot use, compare, routes-diff.
//
// Snapshot identifiers are concrete ids or the aliases $last, $prev and
// $lastLocked. Commands read the global --snapshot flag, falling back to
// ipf.snapshot from config.

package snapshot

import (
	"fmt"
	"strings"

	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/compare"
	"github.com/spf13/cobra"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the snapshot extension.
type Extension struct {
	ctx extension.Context
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "snapshot".
func (e *Extension) Name() string { return "snapshot" }

// Init keeps the shared context for the IP Fabric client and session.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns snapshot listing and comparison commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newSnapshotsCmd(),
		e.newSnapshotCmd(),
		e.newCompareCmd(),
		e.newRoutesDiffCmd(),
	}
}

// completeTables offers catalog table names for the first argument.
func completeTables(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return catalog.Names(), cobra.ShellCompDirectiveNoFileComp
}

// splitList splits a comma-separated flag value. Returns nil for an empty
// value so compare.Options keeps its defaults.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// compareOptions reads the field selection flags shared by compare.
func compareOptions(c *cobra.Command) compare.Options {
	keys, _ := c.Flags().GetString(extension.FlagKeys)
	include, _ := c.Flags().GetString(extension.FlagInclude)
	nested, _ := c.Flags().GetString(extension.FlagNestedExclude)

	opts := compare.Options{
		KeyFields:           splitList(keys),
		IncludeFields:       splitList(include),
		NestedExcludeFields: splitList(nested),
	}
	// --exclude "" compares every field, including id.
	if c.Flags().Changed(extension.FlagExclude) {
		exclude, _ := c.Flags().GetString(extension.FlagExclude)
		opts.ExcludeFields = splitList(exclude)
		if opts.ExcludeFields == nil {
			opts.ExcludeFields = []string{}
		}
	}
	return opts
}

// target returns --b, the global --snapshot flag or the session snapshot.
func (e *Extension) target(c *cobra.Command) string {
	b, _ := c.Flags().GetString(extension.FlagB)
	return e.ctx.Session().Or(b)
}

func pairFlags(c *cobra.Command) {
	c.Flags().String(extension.FlagA, "", "Baseline snapshot (default $prev, or $last when $prev is the target)")
	c.Flags().String(extension.FlagB, "", "Target snapshot (default --snapshot or ipf.snapshot)")
	c.Flags().String(extension.FlagFilter, "", `IP Fabric filter object as JSON, e.g. '{"siteName":["eq","HQ"]}'`)
	c.Flags().Bool(extension.FlagRaw, false, "Output without colour")
}

func filterError(err error) error {
	return fmt.Errorf("--%s: %w (see: ipfa guide filters)", extension.FlagFilter, err)
}
