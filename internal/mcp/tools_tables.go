// tools_tables.go implements the table catalog and query tools. The
// per-table tools and ipf_query_table share one query path; they differ
// only in how the table is chosen.

package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// listTables handles ipf_list_tables tool calls.
func (h *handlers) listTables(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables := catalog.All()
	log.Event(h.source+":ipf_list_tables", "list").Author(h.source).Rows(len(tables)).Write(nil)
	return h.success(tables, fmt.Sprintf("%d tables available", len(tables)))
}

// queryTable handles ipf_query_table tool calls.
func (h *handlers) queryTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := getString(req, "table", "")
	if name == "" {
		err := fmt.Errorf("%w: table is required", ErrInvalidArgument)
		log.Event(h.source+":ipf_query_table", "query").Author(h.source).Write(err)
		return h.failure(err, "Call ipf_list_tables for valid table paths")
	}
	t, err := catalog.Lookup(name)
	if err != nil {
		log.Event(h.source+":ipf_query_table", "query").Author(h.source).Table(name).Write(err)
		return h.failure(err, "Unknown table")
	}
	return h.query(ctx, req, "ipf_query_table", t)
}

// tableHandler returns the handler for a tool bound to one catalog table.
func (h *handlers) tableHandler(tool, table string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := catalog.Lookup(table)
		if err != nil {
			return h.failure(err, "Unknown table")
		}
		return h.query(ctx, req, tool, t)
	}
}

// query reads t with the request's filters, columns, snapshot and limit.
func (h *handlers) query(ctx context.Context, req mcp.CallToolRequest, tool string, t catalog.Table) (*mcp.CallToolResult, error) {
	snap := h.sess.Or(getString(req, "snapshot_id", ""))
	l := log.Event(h.source+":"+tool, "query").Author(h.source).Table(t.Name).Snapshot(snap)

	filters, err := getObject(req, "filters")
	if err != nil {
		l.Write(err)
		return h.failure(err, "See ipf_get_filter_help for filter syntax")
	}
	limit, err := getInt(req, "limit", 0)
	if err != nil {
		l.Write(err)
		return h.failure(err, "")
	}
	requested, err := getStrings(req, "columns")
	if err != nil {
		l.Write(err)
		return h.failure(err, "")
	}
	columns := t.Columns(requested)

	start := time.Now()
	rows, err := h.client.Fetch(ctx, t.Endpoint, ipf.Query{
		Columns:  columns,
		Filters:  filters,
		Snapshot: snap,
		Limit:    limit,
	})
	h.log.Debug("table query",
		zap.String("tool", tool),
		zap.String("table", t.Name),
		zap.String("snapshot", snap),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))

	l.Rows(len(rows))
	if len(filters) > 0 {
		l.Detail("filters", filters)
	}
	l.Write(err)

	if err != nil {
		return h.failure(err, fmt.Sprintf("Failed to query %s in snapshot %s", t.Name, snap))
	}
	return h.success(rows, fmt.Sprintf("%d records from %s in snapshot %s", len(rows), t.Name, snap))
}
