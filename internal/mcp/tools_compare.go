// tools_compare.go implements the snapshot comparison tools.
//
// Both tools compare snapshot_id (default: the active snapshot) against
// compare_to (default: $prev, or $last when $prev is snapshot_id). The
// result reads from the baseline (snapshot A) to the target (snapshot B):
// "added" records exist only in the target.

package mcp

import (
	"context"
	"fmt"

	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/compare"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// routesTable is the catalog table ipf_compare_routes reads.
const routesTable = "technology.routing.routes"

// compareTable handles ipf_compare_table tool calls.
func (h *handlers) compareTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := getString(req, "table", "")
	l := log.Event(h.source+":ipf_compare_table", "compare").Author(h.source).Table(name)

	if name == "" {
		err := fmt.Errorf("%w: table is required", ErrInvalidArgument)
		l.Write(err)
		return h.failure(err, "Call ipf_list_tables for valid table paths")
	}
	t, err := catalog.Lookup(name)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Unknown table")
	}
	filters, err := getObject(req, "filters")
	if err != nil {
		l.Write(err)
		return h.failure(err, "See ipf_get_filter_help for filter syntax")
	}

	opts, err := compareOptions(req)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Field lists must be arrays of strings")
	}
	columns, err := getStrings(req, "columns")
	if err != nil {
		l.Write(err)
		return h.failure(err, "")
	}

	target := h.sess.Or(getString(req, "snapshot_id", ""))
	baseline := getString(req, "compare_to", "")
	l.Snapshot(target).Detail("compare_to", baseline)

	pair, err := compare.ResolvePair(ctx, h.client, target, baseline)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Failed to resolve snapshots to compare")
	}
	l.Resolved(pair.Target.ID).Detail("baseline", pair.Baseline.ID)

	q := ipf.Query{
		Columns: compare.Columns(columns, t.DefaultColumns, opts),
		Filters: filters,
	}
	a, b, err := compare.FetchPair(ctx, h.client, t.Endpoint, q, pair)
	if err != nil {
		l.Write(err)
		return h.failure(err, fmt.Sprintf("Failed to fetch %s", t.Name))
	}

	res, err := compare.Diff(a, b, opts)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Comparison failed; choose key_fields that identify each record uniquely")
	}

	report := compare.Report(t.Name, pair, a, b, res)
	l.Rows(report.Counts.Added + report.Counts.Removed + report.Counts.Changed).Write(nil)
	h.log.Debug("table compared",
		zap.String("table", t.Name),
		zap.String("baseline", pair.Baseline.ID),
		zap.String("target", pair.Target.ID),
		zap.Int("added", report.Counts.Added),
		zap.Int("removed", report.Counts.Removed),
		zap.Int("changed", report.Counts.Changed))

	return h.success(report, report.Message)
}

// compareRoutes handles ipf_compare_routes tool calls.
func (h *handlers) compareRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := h.sess.Or(getString(req, "snapshot_id", ""))
	baseline := getString(req, "compare_to", "")
	l := log.Event(h.source+":ipf_compare_routes", "compare").Author(h.source).
		Table(routesTable).Snapshot(target).Detail("compare_to", baseline)

	filters, err := getObject(req, "filters")
	if err != nil {
		l.Write(err)
		return h.failure(err, "See ipf_get_filter_help for filter syntax")
	}

	t, err := catalog.Lookup(routesTable)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Unknown table")
	}

	pair, err := compare.ResolvePair(ctx, h.client, target, baseline)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Failed to resolve snapshots to compare")
	}
	l.Resolved(pair.Target.ID).Detail("baseline", pair.Baseline.ID)

	a, b, err := compare.FetchPair(ctx, h.client, t.Endpoint, ipf.Query{
		Columns: compare.RouteColumns,
		Filters: filters,
	}, pair)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Failed to fetch routing tables")
	}

	res, err := compare.RouteDiff(a, b, pair.Baseline.ID, pair.Target.ID)
	if err != nil {
		l.Write(err)
		return h.failure(err, "Route comparison failed")
	}

	l.Rows(res.Counts.Added + res.Counts.Removed + res.Counts.Changed).Write(nil)
	return h.success(res, res.Message)
}

// compareOptions reads the field list arguments of ipf_compare_table.
func compareOptions(req mcp.CallToolRequest) (compare.Options, error) {
	var opts compare.Options
	for _, f := range []struct {
		name string
		dst  *[]string
	}{
		{"key_fields", &opts.KeyFields},
		{"include_fields", &opts.IncludeFields},
		{"exclude_fields", &opts.ExcludeFields},
		{"nested_exclude_fields", &opts.NestedExcludeFields},
	} {
		v, err := getStrings(req, f.name)
		if err != nil {
			return compare.Options{}, err
		}
		*f.dst = v
	}
	return opts, nil
}
