// tools_help.go implements the filter syntax help tool.

package mcp

import (
	"context"

	"github.com/jpl-au/ipfa/internal/log"
	"github.com/mark3labs/mcp-go/mcp"
)

type filterOperator struct {
	Description string `json:"description"`
	Example     string `json:"example"`
}

type filterSyntax struct {
	Format    string                    `json:"format"`
	Operators map[string]filterOperator `json:"operators"`
	Logic     map[string]filterOperator `json:"logic"`
}

type filterGuide struct {
	FilterSyntax filterSyntax `json:"filter_syntax"`
	Tips         []string     `json:"tips"`
}

var help = filterGuide{
	FilterSyntax: filterSyntax{
		Format: "Each filter uses the format: {'column_name': ['operator', 'value']}",
		Operators: map[string]filterOperator{
			"eq":      {"Exact match (case-sensitive)", `{"vendor": ["eq", "cisco"]}`},
			"neq":     {"Not equal", `{"l1": ["neq", "up"]}`},
			"like":    {"Contains match (case-insensitive)", `{"hostname": ["like", "core"]}`},
			"notlike": {"Does not contain (case-insensitive)", `{"hostname": ["notlike", "lab"]}`},
			"reg":     {"Regular expression (case-sensitive)", `{"vendor": ["reg", "(cisco|arista)"]}`},
			"ireg":    {"Case-insensitive regular expression", `{"vendor": ["ireg", "(cisco|ARISTA)"]}`},
			"empty":   {"Column is empty (true) or not empty (false)", `{"dscr": ["empty", true]}`},
			"gt":      {"Greater than (numbers)", `{"mtu": ["gt", 1500]}`},
			"lt":      {"Less than (numbers)", `{"uptime": ["lt", 3600]}`},
		},
		Logic: map[string]filterOperator{
			"and": {"All nested filters must match", `{"and": [{"vendor": ["eq", "cisco"]}, {"siteName": ["eq", "LON"]}]}`},
			"or":  {"Any nested filter may match", `{"or": [{"vendor": ["eq", "cisco"]}, {"vendor": ["eq", "arista"]}]}`},
		},
	},
	Tips: []string{
		"Combine multiple filters with AND logic: {'filter1': [...], 'filter2': [...]}",
		"For IP addresses, use escaped dots in regex: '192\\.168\\.'",
		"Column names are case-sensitive; call ipf_list_tables to see each table's default columns",
		"Filters apply to both snapshots in ipf_compare_table and ipf_compare_routes",
	},
}

// filterHelp handles ipf_get_filter_help tool calls.
func (h *handlers) filterHelp(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Event(h.source+":ipf_get_filter_help", "help").Author(h.source).Write(nil)
	return h.success(help, "IP Fabric filter syntax")
}
