// Package mcp implements the Model Context Protocol server, exposing IP
// Fabric queries and snapshot comparisons to LLMs as tools.
//
// Every tool returns a single text payload holding a JSON envelope:
//
//	{"success": true, "data": ..., "current_snapshot": "...", "message": "..."}
//	{"success": false, "error": "...", "current_snapshot": "...", "message": "..."}
//
// Failures from IP Fabric, unknown tables and invalid arguments are reported
// in the envelope. Only malformed invocations (arguments that are not a JSON
// object, unknown tool names) fail the call itself.
package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Name and Version are advertised to clients for capability negotiation.
const (
	Name    = "ipfa"
	Version = "1.0.0"
)

// Options wires the tool handlers to an IP Fabric instance and a session.
type Options struct {
	Client  *ipf.Client
	Session *session.Session
	Logger  *zap.Logger // nil logs nothing
	// Source names the caller in audit log entries: "mcp" for the stdio
	// server, "chat" for the chat agent. Defaults to "mcp".
	Source string
}

// NewServer returns an MCP server with every ipfa tool registered.
func NewServer(opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(Tools(opts)...)
	return s
}

// Serve runs srv over stdio until stdin closes or ctx is cancelled.
// stdout is reserved for JSON-RPC messages; logger must write elsewhere.
func Serve(ctx context.Context, srv *server.MCPServer, logger *zap.Logger) error {
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(zap.NewStdLog(logger))

	logger.Info("ipfa MCP server ready", zap.String("version", Version), zap.String("transport", "stdio"))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err == nil || errors.Is(err, context.Canceled) {
		logger.Info("server stopped")
		return nil
	}
	return err
}

// handlers provides MCP request handlers with access to IP Fabric and the
// session's active snapshot.
type handlers struct {
	client *ipf.Client
	sess   *session.Session
	log    *zap.Logger
	source string
}

func newHandlers(opts Options) *handlers {
	h := &handlers{
		client: opts.Client,
		sess:   opts.Session,
		log:    opts.Logger,
		source: opts.Source,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.source == "" {
		h.source = "mcp"
	}
	if h.sess == nil {
		h.sess = session.New(ipf.AliasLast)
	}
	return h
}

// tableTool is a convenience tool bound to one catalog table.
type tableTool struct {
	name        string
	table       string
	description string
}

var tableTools = []tableTool{
	{"ipf_get_devices", "inventory.devices", "Retrieve network devices from the IP Fabric inventory."},
	{"ipf_get_interfaces", "inventory.interfaces", "Retrieve network interface information from IP Fabric."},
	{"ipf_get_sites", "inventory.sites", "Retrieve sites and their device counts from IP Fabric."},
	{"ipf_get_vendors", "inventory.vendors", "Retrieve the device count per vendor from IP Fabric."},
	{"ipf_get_routing_table", "technology.routing.routes", "Retrieve routing table entries from IP Fabric."},
	{"ipf_get_vlans", "technology.vlans.device_detail", "Retrieve VLANs configured on each device from IP Fabric."},
	{"ipf_get_neighbors", "technology.neighbors.neighbors_all", "Retrieve CDP/LLDP and protocol neighbors from IP Fabric."},
	{"ipf_get_bgp_neighbors", "technology.routing.bgp_neighbors", "Retrieve BGP neighbor sessions and their state from IP Fabric."},
	{"ipf_get_arp_table", "technology.addressing.arp_table", "Retrieve ARP entries from IP Fabric."},
	{"ipf_get_mac_table", "technology.addressing.mac_table", "Retrieve MAC address table entries from IP Fabric."},
	{"ipf_get_managed_ips", "technology.addressing.managed_ip_ipv4", "Retrieve managed IPv4 addresses from IP Fabric."},
}

// Tools returns every ipfa tool bound to opts. The stdio server, the chat
// agent and tests all register this one list.
func Tools(opts Options) []server.ServerTool {
	h := newHandlers(opts)

	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("ipf_get_filter_help",
				mcp.WithDescription("Get comprehensive help on IP Fabric filter syntax and operators. Essential for constructing filters for all query functions."),
			),
			Handler: h.filterHelp,
		},
		{
			Tool: mcp.NewTool("ipf_get_snapshots",
				mcp.WithDescription("Retrieve all available snapshots from IP Fabric. Use this to find snapshot IDs before setting one."),
			),
			Handler: h.getSnapshots,
		},
		{
			Tool: mcp.NewTool("ipf_set_snapshot",
				mcp.WithDescription("Set the active snapshot for all subsequent IP Fabric queries."),
				mcp.WithString("snapshot_id", mcp.Required(), mcp.Description("The unique ID of the snapshot to activate, or $last, $prev, $lastLocked.")),
			),
			Handler: h.setSnapshot,
		},
		{
			Tool: mcp.NewTool("ipf_list_tables",
				mcp.WithDescription("List the IP Fabric tables that can be queried with ipf_query_table, with their default columns."),
			),
			Handler: h.listTables,
		},
		{
			Tool: queryTool("ipf_query_table",
				"Query any IP Fabric table by its path (see ipf_list_tables).",
				mcp.WithString("table", mcp.Required(), mcp.Description("Table path, e.g. 'inventory.devices' or 'technology.routing.routes'")),
			),
			Handler: h.queryTable,
		},
	}

	for _, tt := range tableTools {
		tools = append(tools, server.ServerTool{
			Tool:    queryTool(tt.name, tt.description),
			Handler: h.tableHandler(tt.name, tt.table),
		})
	}

	tools = append(tools,
		server.ServerTool{
			Tool: mcp.NewTool("ipf_compare_table",
				mcp.WithDescription("Compare an IP Fabric table between two snapshots. Returns added, removed and changed records; changed records list only the fields that differ."),
				mcp.WithString("table", mcp.Required(), mcp.Description("Table path, e.g. 'inventory.devices'")),
				mcp.WithString("snapshot_id", mcp.Description("Snapshot to inspect (default: the active snapshot)")),
				mcp.WithString("compare_to", mcp.Description("Baseline snapshot (default: $prev, or $last when $prev is snapshot_id)")),
				mcp.WithArray("key_fields", mcp.WithStringItems(), mcp.Description("Fields identifying a record across snapshots, e.g. ['hostname']. Default: the whole record")),
				mcp.WithArray("include_fields", mcp.WithStringItems(), mcp.Description("Only compare these fields")),
				mcp.WithArray("exclude_fields", mcp.WithStringItems(), mcp.Description("Fields to ignore (default: ['id']; pass [] to compare everything)")),
				mcp.WithArray("nested_exclude_fields", mcp.WithStringItems(), mcp.Description("Nested fields to ignore, e.g. ['age'] anywhere, ['nexthop.age'] under one column or ['nexthop.meta.age'] as an exact path")),
				mcp.WithArray("columns", mcp.WithStringItems(), mcp.Description("Columns to fetch (default: the table's default columns)")),
				mcp.WithObject("filters", mcp.Description("Filter criteria applied to both snapshots. e.g. {'siteName': ['eq', 'LON']}")),
			),
			Handler: h.compareTable,
		},
		server.ServerTool{
			Tool: mcp.NewTool("ipf_compare_routes",
				mcp.WithDescription("Compare routing tables between two snapshots by hostname, VRF and network. Reports protocol, first next hop and metric changes."),
				mcp.WithString("snapshot_id", mcp.Description("Snapshot to inspect (default: the active snapshot)")),
				mcp.WithString("compare_to", mcp.Description("Baseline snapshot (default: $prev, or $last when $prev is snapshot_id)")),
				mcp.WithObject("filters", mcp.Description("Filter criteria applied to both snapshots. e.g. {'hostname': ['like', 'core']}")),
			),
			Handler: h.compareRoutes,
		},
	)

	for i := range tools {
		tools[i].Handler = requireObject(tools[i].Handler)
	}
	return tools
}

// queryTool declares the arguments shared by every table query tool.
func queryTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	opts = append(opts, extra...)
	opts = append(opts,
		mcp.WithObject("filters", mcp.Description("Filter criteria. e.g. {'vendor': ['eq', 'cisco']}. See ipf_get_filter_help")),
		mcp.WithArray("columns", mcp.WithStringItems(), mcp.Description("Specific columns to return, e.g. ['hostname', 'siteName']")),
		mcp.WithString("snapshot_id", mcp.Description("Snapshot to query (default: the active snapshot)")),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return (default: all)")),
	)
	return mcp.NewTool(name, opts...)
}
