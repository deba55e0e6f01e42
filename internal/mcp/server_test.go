package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jpl-au/ipfa/internal/catalog"
	"github.com/jpl-au/ipfa/internal/compare"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/ipf/ipftest"
	"github.com/jpl-au/ipfa/internal/session"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapshots = []ipf.Snapshot{
	{ID: "s3", State: "loaded", End: 300},
	{ID: "s2", State: "loaded", End: 200},
	{ID: "s1", State: "loaded", Locked: true, End: 100},
	{ID: "s0", State: "unloaded", End: 50},
}

type fixture struct {
	srv   *ipftest.Server
	sess  *session.Session
	tools map[string]server.ServerTool
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := ipftest.New(t, snapshots...)
	srv.SetTable("inventory/devices", "s3", []ipf.Record{
		{"id": "31", "hostname": "core-1", "vendor": "cisco", "version": "17.6"},
		{"id": "32", "hostname": "core-2", "vendor": "arista", "version": "4.30"},
		{"id": "33", "hostname": "edge-2", "vendor": "juniper", "version": "22.1"},
	})
	srv.SetTable("inventory/devices", "s2", []ipf.Record{
		{"id": "21", "hostname": "core-1", "vendor": "cisco", "version": "17.3"},
		{"id": "22", "hostname": "core-2", "vendor": "arista", "version": "4.30"},
		{"id": "23", "hostname": "edge-1", "vendor": "juniper", "version": "21.4"},
	})
	srv.SetTable("inventory/devices", "s1", []ipf.Record{
		{"id": "11", "hostname": "old-1", "vendor": "cisco", "version": "15.2"},
	})

	sess := session.New("s3")
	f := &fixture{srv: srv, sess: sess, tools: make(map[string]server.ServerTool)}
	for _, st := range Tools(Options{Client: srv.Client(t), Session: sess}) {
		f.tools[st.Tool.Name] = st
	}
	return f
}

// result is the decoded envelope.
type result struct {
	Success         bool            `json:"success"`
	Data            json.RawMessage `json:"data"`
	Error           string          `json:"error"`
	CurrentSnapshot string          `json:"current_snapshot"`
	Message         string          `json:"message"`
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) result {
	t.Helper()
	st, ok := f.tools[name]
	require.True(t, ok, "tool %s not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	if args != nil {
		req.Params.Arguments = args
	}
	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])

	var r result
	require.NoError(t, json.Unmarshal([]byte(text.Text), &r), text.Text)
	assert.Equal(t, !r.Success, res.IsError)
	return r
}

func TestTools_Registered(t *testing.T) {
	f := setup(t)
	want := []string{
		"ipf_get_filter_help", "ipf_get_snapshots", "ipf_set_snapshot", "ipf_list_tables", "ipf_query_table",
		"ipf_get_devices", "ipf_get_interfaces", "ipf_get_sites", "ipf_get_vendors", "ipf_get_routing_table",
		"ipf_get_vlans", "ipf_get_neighbors", "ipf_get_bgp_neighbors", "ipf_get_arp_table", "ipf_get_mac_table",
		"ipf_get_managed_ips", "ipf_compare_table", "ipf_compare_routes",
	}
	assert.Len(t, f.tools, len(want))
	for _, name := range want {
		assert.Contains(t, f.tools, name)
	}

	for _, tt := range tableTools {
		_, err := catalog.Lookup(tt.table)
		assert.NoError(t, err, tt.name)
	}
}

func TestTools_NonObjectArguments(t *testing.T) {
	f := setup(t)
	var req mcp.CallToolRequest
	req.Params.Name = "ipf_get_devices"
	req.Params.Arguments = []any{"inventory.devices"}

	res, err := f.tools["ipf_get_devices"].Handler(context.Background(), req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestSetSnapshotThenQuery(t *testing.T) {
	f := setup(t)

	r := f.call(t, "ipf_set_snapshot", map[string]any{"snapshot_id": "s1"})
	require.True(t, r.Success, r.Error)
	assert.Equal(t, "s1", r.CurrentSnapshot)
	assert.Equal(t, "Successfully changed snapshot from s3 to s1", r.Message)

	r = f.call(t, "ipf_get_devices", nil)
	require.True(t, r.Success, r.Error)
	assert.Equal(t, "s1", r.CurrentSnapshot)

	var rows []ipf.Record
	require.NoError(t, json.Unmarshal(r.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "old-1", rows[0]["hostname"])

	reqs := f.srv.Requests()
	assert.Equal(t, "s1", reqs[len(reqs)-1].Snapshot)
}

func TestSetSnapshot(t *testing.T) {
	t.Run("alias is pinned", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_set_snapshot", map[string]any{"snapshot_id": "$prev"})
		require.True(t, r.Success, r.Error)
		assert.Equal(t, "s2", f.sess.Snapshot())
	})

	t.Run("unknown leaves session unchanged", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_set_snapshot", map[string]any{"snapshot_id": "nope"})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "unknown snapshot")
		assert.Contains(t, r.Message, "ipf_get_snapshots")
		assert.Equal(t, "s3", r.CurrentSnapshot)
		assert.Equal(t, "s3", f.sess.Snapshot())
	})

	t.Run("unloaded rejected", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_set_snapshot", map[string]any{"snapshot_id": "s0"})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "only loaded snapshots")
	})

	t.Run("missing id", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_set_snapshot", map[string]any{})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "snapshot_id is required")
	})
}

func TestGetSnapshots(t *testing.T) {
	f := setup(t)
	r := f.call(t, "ipf_get_snapshots", nil)
	require.True(t, r.Success, r.Error)
	assert.Equal(t, "4 snapshots (3 loaded)", r.Message)

	var snaps []ipf.Snapshot
	require.NoError(t, json.Unmarshal(r.Data, &snaps))
	require.Len(t, snaps, 4)
	assert.Equal(t, "s3", snaps[0].ID)
}

func TestQueryTable(t *testing.T) {
	t.Run("unknown table lists valid names", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_query_table", map[string]any{"table": "inventory.routers"})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "unknown table")
		assert.Contains(t, r.Error, "verify the table path")
		for _, name := range catalog.Names() {
			assert.Contains(t, r.Error, name)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_query_table", map[string]any{})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "table is required")
	})

	t.Run("filters columns and limit", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_query_table", map[string]any{
			"table":       "ipf.inventory.devices",
			"filters":     `{"hostname": ["like", "core"]}`,
			"columns":     []any{"hostname", "version"},
			"limit":       "1",
			"snapshot_id": "s2",
		})
		require.True(t, r.Success, r.Error)
		assert.Equal(t, "s3", r.CurrentSnapshot, "override must not change the session")

		var rows []ipf.Record
		require.NoError(t, json.Unmarshal(r.Data, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, ipf.Record{"hostname": "core-1", "version": "17.3"}, rows[0])

		req := f.srv.Requests()[0]
		assert.Equal(t, "s2", req.Snapshot)
		assert.Equal(t, []string{"hostname", "version"}, req.Columns)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_get_devices", map[string]any{"filters": map[string]any{"vendor": []any{"eq", "nokia"}}})
		require.True(t, r.Success, r.Error)
		assert.JSONEq(t, `[]`, string(r.Data))
	})

	t.Run("invalid filters", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_get_devices", map[string]any{"filters": []any{"vendor", "eq"}})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "filters must be an object")
		assert.Empty(t, f.srv.Requests())
	})

	t.Run("negative limit", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_get_devices", map[string]any{"limit": -5.0})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "must not be negative")
	})

	t.Run("upstream error is surfaced", func(t *testing.T) {
		f := setup(t)
		f.srv.Fail("inventory/devices", http.StatusInternalServerError)
		r := f.call(t, "ipf_get_devices", nil)
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "simulated failure")
		assert.Equal(t, "s3", r.CurrentSnapshot)
	})
}

func TestQueryTable_NonStringColumns(t *testing.T) {
	f := setup(t)
	r := f.call(t, "ipf_get_devices", map[string]any{"columns": []any{"hostname", true}})
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "columns[1] must be a string")
	assert.Empty(t, f.srv.Requests())
}

func TestListTables(t *testing.T) {
	f := setup(t)
	r := f.call(t, "ipf_list_tables", nil)
	require.True(t, r.Success)

	var tables []catalog.Table
	require.NoError(t, json.Unmarshal(r.Data, &tables))
	assert.Len(t, tables, len(catalog.Names()))
}

func TestFilterHelp(t *testing.T) {
	f := setup(t)
	r := f.call(t, "ipf_get_filter_help", nil)
	require.True(t, r.Success)
	assert.Contains(t, string(r.Data), `"ireg"`)
	assert.Contains(t, string(r.Data), `["eq", "cisco"]`)
}

func TestCompareTable(t *testing.T) {
	t.Run("default baseline", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{
			"table":      "inventory.devices",
			"key_fields": []any{"hostname"},
		})
		require.True(t, r.Success, r.Error)

		var rep compare.TableReport
		require.NoError(t, json.Unmarshal(r.Data, &rep))
		assert.Equal(t, "s2", rep.SnapshotA)
		assert.Equal(t, "s3", rep.SnapshotB)
		assert.Equal(t, compare.Counts{Added: 1, Removed: 1, Changed: 1, RecordsA: 3, RecordsB: 3}, rep.Counts)

		require.Len(t, rep.Added, 1)
		assert.Equal(t, "edge-2", rep.Added[0]["hostname"])
		require.Len(t, rep.Removed, 1)
		assert.Equal(t, "edge-1", rep.Removed[0]["hostname"])
		require.Len(t, rep.Changed, 1)
		assert.Equal(t, "core-1", rep.Changed[0].Key)
		assert.Equal(t, map[string]compare.FieldChange{"version": {From: "17.3", To: "17.6"}}, rep.Changed[0].Changes)
		assert.Equal(t, rep.Message, r.Message)
	})

	t.Run("same snapshot rejected", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{
			"table":       "inventory.devices",
			"snapshot_id": "s3",
			"compare_to":  "$last",
		})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "itself")
		assert.Empty(t, f.srv.Requests(), "nothing fetched")
	})

	t.Run("key fields are fetched", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{
			"table":      "inventory.devices",
			"key_fields": "hostname",
			"columns":    []any{"version"},
		})
		require.True(t, r.Success, r.Error)
		for _, req := range f.srv.Requests() {
			assert.Equal(t, []string{"version", "hostname"}, req.Columns)
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{"table": "nope"})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "valid tables")
	})

	t.Run("non-string field items rejected", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{
			"table":          "inventory.devices",
			"key_fields":     []any{"hostname"},
			"exclude_fields": []any{1.0},
		})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "exclude_fields[0] must be a string")
		assert.Equal(t, "s3", r.CurrentSnapshot)
		assert.Empty(t, f.srv.Requests(), "nothing fetched")
	})

	t.Run("empty nested path segment", func(t *testing.T) {
		f := setup(t)
		r := f.call(t, "ipf_compare_table", map[string]any{
			"table":                 "inventory.devices",
			"key_fields":            []any{"hostname"},
			"nested_exclude_fields": []any{"nexthop..age"},
		})
		assert.False(t, r.Success)
		assert.Contains(t, r.Error, "empty segment")
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := setup(t)
		f.srv.Fail("inventory/devices", http.StatusUnauthorized)
		r := f.call(t, "ipf_compare_table", map[string]any{"table": "inventory.devices"})
		assert.False(t, r.Success)
		assert.Contains(t, r.Message, "Failed to fetch inventory.devices")
	})
}

func TestCompareRoutes(t *testing.T) {
	f := setup(t)
	route := func(metric float64) ipf.Record {
		return ipf.Record{
			"hostname": "r1", "vrf": "default", "network": "10.0.0.0/24", "protocol": "ospf",
			"nexthop":        []any{map[string]any{"ip": "10.1.1.1", "intName": "Gi0/1"}},
			"nhLowestMetric": metric,
		}
	}
	f.srv.SetTable("networks/routes", "s2", []ipf.Record{route(10)})
	f.srv.SetTable("networks/routes", "s3", []ipf.Record{route(20), {
		"hostname": "r2", "vrf": "default", "network": "10.9.0.0/16", "protocol": "static",
		"nexthop": []any{}, "nhLowestMetric": 1.0,
	}})

	r := f.call(t, "ipf_compare_routes", nil)
	require.True(t, r.Success, r.Error)

	var res compare.RouteResult
	require.NoError(t, json.Unmarshal(r.Data, &res))
	assert.Equal(t, "s2", res.SnapshotA)
	assert.Equal(t, "s3", res.SnapshotB)
	assert.Equal(t, []string{"r2|default|10.9.0.0/16"}, res.Added)
	assert.Empty(t, res.Removed)
	require.Len(t, res.Changed, 1)
	assert.Equal(t, "r1|default|10.0.0.0/24", res.Changed[0].Route)
	assert.Equal(t, map[string]compare.FieldChange{"metric": {From: 10.0, To: 20.0}}, res.Changed[0].Changes)
	assert.Equal(t, compare.RouteCounts{Added: 1, Changed: 1, RoutesA: 1, RoutesB: 2}, res.Counts)

	for _, req := range f.srv.Requests() {
		assert.Equal(t, compare.RouteColumns, req.Columns)
	}
}

func TestInProcessClient(t *testing.T) {
	srv := ipftest.New(t, snapshots...)
	s := NewServer(Options{Client: srv.Client(t), Session: session.New("s3")})

	c, err := client.NewInProcessClient(s)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Tools, len(tableTools)+7)

	var req mcp.CallToolRequest
	req.Params.Name = "ipf_get_snapshots"
	res, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, `"current_snapshot": "s3"`)

	req.Params.Name = "ipf_no_such_tool"
	_, err = c.CallTool(ctx, req)
	assert.Error(t, err, "unknown tools are protocol errors")
}
