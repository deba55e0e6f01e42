// Package table provides the table extension.
// Registers commands: tables, query.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/format"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the table extension.
type Extension struct {
	ctx extension.Context
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Offline       = (*Extension)(nil)
)

// Name returns "table".
func (e *Extension) Name() string { return "table" }

// Init keeps the shared context for the IP Fabric client.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns the catalog and query commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newTablesCmd(),
		e.newQueryCmd(),
	}
}

// OfflineCommands returns "tables": the catalog is built in.
func (e *Extension) OfflineCommands() []string {
	return []string{"tables"}
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [table]",
		Short: "List queryable tables",
		Long: `List the tables ipfa can query and compare, or show one table's
endpoint, default columns and an example filter.

  ipfa tables
  ipfa tables inventory.devices`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				tables := catalog.All()
				if cmd.JSON() {
					return cmd.PrintJSON(tables)
				}
				return format.Tables(cmd.Out(), tables)
			}
			t, err := catalog.Lookup(args[0])
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			if cmd.JSON() {
				return cmd.PrintJSON(t)
			}
			w := cmd.Out()
			fmt.Fprintf(w, "%s\n  %s\n\n", t.Name, t.Description)
			fmt.Fprintf(w, "endpoint: /tables/%s\n", t.Endpoint)
			fmt.Fprintf(w, "columns:  %s\n", strings.Join(t.DefaultColumns, ", "))
			if t.Example != "" {
				fmt.Fprintf(w, "example:  ipfa query %s --filter '%s'\n", t.Name, t.Example)
			}
			return nil
		},
	}
}

func (e *Extension) newQueryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "query <table>",
		Short: "Query a table",
		Long: `Query one IP Fabric table in the active snapshot.

  ipfa query inventory.devices
  ipfa query inventory.devices --filter '{"vendor": ["eq", "cisco"]}'
  ipfa query technology.routing.routes --columns hostname,network,protocol -n 20
  ipfa query inventory.sites -s $prev -o json

See "ipfa guide filters" for filter syntax.`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return catalog.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: e.runQuery,
	}
	c.Flags().String(extension.FlagFilter, "", "IP Fabric filter object as JSON")
	c.Flags().String(extension.FlagColumns, "", "Columns to return, comma separated (default: table defaults)")
	c.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum rows (0 = all)")
	return c
}

func (e *Extension) runQuery(c *cobra.Command, args []string) error {
	snap := e.ctx.Session().Snapshot()
	l := log.Event("table:query", "query").Author(cmd.Author()).Table(args[0]).Snapshot(snap)

	t, err := catalog.Lookup(args[0])
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	text, _ := c.Flags().GetString(extension.FlagFilter)
	filters, err := ipf.ParseFilters(text)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("--%s: %w (see: ipfa guide filters)", extension.FlagFilter, err))
	}
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	if limit < 0 {
		err := fmt.Errorf("--%s must not be negative", extension.FlagLimit)
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	cols, _ := c.Flags().GetString(extension.FlagColumns)
	columns := t.Columns(splitList(cols))

	start := time.Now()
	rows, err := e.ctx.Client().Fetch(c.Context(), t.Endpoint, ipf.Query{
		Columns:  columns,
		Filters:  filters,
		Snapshot: snap,
		Limit:    limit,
	})
	e.ctx.Logger().Debug("table query",
		zap.String("table", t.Name),
		zap.String("snapshot", snap),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(start)))

	l.Rows(len(rows))
	if len(filters) > 0 {
		l.Detail("filters", filters)
	}
	l.Write(err)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("query %s: %w", t.Name, err))
	}

	if cmd.JSON() {
		return cmd.PrintJSON(rows)
	}
	return format.Records(cmd.Out(), rows, columns)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
