// compare.go implements "ipfa compare" and "ipfa routes-diff".
//
// Both run the same pipeline as the MCP comparison tools: resolve the
// snapshot pair, fetch both sides concurrently, diff, report. --b is the
// target (default: the active snapshot) and --a the baseline (default:
// $prev, or $last when $prev is the target). "+" lines exist only in the
// target.

package snapshot

import (
	"fmt"
	"os"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/compare"
	"github.com/jpl-au/ipfa/internal/diff"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// routesTable is the catalog table routes-diff reads.
const routesTable = "technology.routing.routes"

func (e *Extension) newCompareCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "compare <table>",
		Short: "Compare a table between two snapshots",
		Long: `Compare one table between two snapshots and show added (+), removed (-)
and changed (~) records.

  ipfa compare inventory.devices
  ipfa compare inventory.devices --keys hostname
  ipfa compare inventory.interfaces --keys hostname,intName --include l1,l2
  ipfa compare technology.routing.bgp_neighbors --a $lastLocked --b $last
  ipfa compare inventory.devices --exclude ""       # compare id too

Records are matched by --keys; without keys the whole record is its own
key, so a change shows as one removal plus one addition. "id" is excluded
by default because it differs between snapshots. --nested-exclude strips
fields inside nested values ("age" anywhere, "nexthop.age" under nexthop,
"nexthop.meta.age" as an exact path).`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTables,
		RunE:              e.runCompare,
	}
	pairFlags(c)
	c.Flags().String(extension.FlagColumns, "", "Columns to fetch, comma separated (default: table defaults)")
	c.Flags().String(extension.FlagKeys, "", "Fields identifying a record, comma separated")
	c.Flags().String(extension.FlagInclude, "", "Only compare these fields")
	c.Flags().String(extension.FlagExclude, "id", "Fields ignored in the comparison")
	c.Flags().String(extension.FlagNestedExclude, "", "Fields stripped inside nested values")
	return c
}

func (e *Extension) runCompare(c *cobra.Command, args []string) error {
	ctx := c.Context()
	baseline, _ := c.Flags().GetString(extension.FlagA)
	target := e.target(c)
	l := log.Event("snapshot:compare", "compare").Author(cmd.Author()).
		Table(args[0]).Snapshot(target).Detail("compare_to", baseline)

	t, err := catalog.Lookup(args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	text, _ := c.Flags().GetString(extension.FlagFilter)
	filters, err := ipf.ParseFilters(text)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(filterError(err))
	}
	cols, _ := c.Flags().GetString(extension.FlagColumns)
	opts := compareOptions(c)

	pair, err := compare.ResolvePair(ctx, e.ctx.Client(), target, baseline)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	l.Resolved(pair.Target.ID).Detail("baseline", pair.Baseline.ID)

	a, b, err := compare.FetchPair(ctx, e.ctx.Client(), t.Endpoint, ipf.Query{
		Columns: compare.Columns(splitList(cols), t.DefaultColumns, opts),
		Filters: filters,
	}, pair)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("fetching %s: %w", t.Name, err))
	}

	res, err := compare.Diff(a, b, opts)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("%w (choose --keys that identify each record uniquely)", err))
	}
	report := compare.Report(t.Name, pair, a, b, res)
	l.Rows(report.Counts.Added + report.Counts.Removed + report.Counts.Changed).Write(nil)
	e.ctx.Logger().Debug("table compared",
		zap.String("table", t.Name),
		zap.String("baseline", pair.Baseline.ID),
		zap.String("target", pair.Target.ID))

	if cmd.JSON() {
		return cmd.PrintJSON(report)
	}
	return diff.Table(cmd.Out(), report, colour(c))
}

func (e *Extension) newRoutesDiffCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "routes-diff",
		Short: "Compare routing tables between two snapshots",
		Long: `Compare routing tables between two snapshots. Routes are matched by
hostname, VRF and prefix; protocol, first next hop and lowest metric are
compared.

  ipfa routes-diff
  ipfa routes-diff --a $lastLocked
  ipfa routes-diff --filter '{"hostname": ["eq", "core-1"]}'`,
		Args: cobra.NoArgs,
		RunE: e.runRoutesDiff,
	}
	pairFlags(c)
	return c
}

func (e *Extension) runRoutesDiff(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	baseline, _ := c.Flags().GetString(extension.FlagA)
	target := e.target(c)
	l := log.Event("snapshot:routes-diff", "compare").Author(cmd.Author()).
		Table(routesTable).Snapshot(target).Detail("compare_to", baseline)

	text, _ := c.Flags().GetString(extension.FlagFilter)
	filters, err := ipf.ParseFilters(text)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(filterError(err))
	}
	t, err := catalog.Lookup(routesTable)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}

	pair, err := compare.ResolvePair(ctx, e.ctx.Client(), target, baseline)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	l.Resolved(pair.Target.ID).Detail("baseline", pair.Baseline.ID)

	a, b, err := compare.FetchPair(ctx, e.ctx.Client(), t.Endpoint, ipf.Query{
		Columns: compare.RouteColumns,
		Filters: filters,
	}, pair)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("fetching routing tables: %w", err))
	}

	res, err := compare.RouteDiff(a, b, pair.Baseline.ID, pair.Target.ID)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	l.Rows(res.Counts.Added + res.Counts.Removed + res.Counts.Changed).Write(nil)

	if cmd.JSON() {
		return cmd.PrintJSON(res)
	}
	return diff.Routes(cmd.Out(), res, colour(c))
}

// colour reports whether diff output should carry ANSI colour: only on a
// terminal and never with --raw.
func colour(c *cobra.Command) bool {
	raw, _ := c.Flags().GetBool(extension.FlagRaw)
	if raw {
		return false
	}
	if f, ok := cmd.Out().(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
