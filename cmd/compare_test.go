package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type compareOutput struct {
	Table     string           `json:"table"`
	SnapshotA string           `json:"snapshot_a_id"`
	SnapshotB string           `json:"snapshot_b_id"`
	Added     []map[string]any `json:"added"`
	Removed   []map[string]any `json:"removed"`
	Changed   []struct {
		Key     string `json:"key"`
		Changes map[string]struct {
			From any `json:"from"`
			To   any `json:"to"`
		} `json:"changes"`
	} `json:"changed"`
	Counts struct {
		Added    int `json:"added"`
		Removed  int `json:"removed"`
		Changed  int `json:"changed"`
		RecordsA int `json:"records_a"`
		RecordsB int `json:"records_b"`
	} `json:"summary_counts"`
}

func TestCompare(t *testing.T) {
	t.Run("keyed", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices", "--keys", "hostname")
		assert.Equal(t, "inventory.devices", got.Table)
		assert.Equal(t, "s1", got.SnapshotA)
		assert.Equal(t, "s2", got.SnapshotB)
		assert.Equal(t, 1, got.Counts.Added)
		assert.Equal(t, 0, got.Counts.Removed)
		assert.Equal(t, 1, got.Counts.Changed)
		assert.Equal(t, 2, got.Counts.RecordsA)
		assert.Equal(t, 3, got.Counts.RecordsB)

		require.Len(t, got.Added, 1)
		assert.Equal(t, "dist-1", got.Added[0]["hostname"])
		require.Len(t, got.Changed, 1)
		require.Contains(t, got.Changed[0].Changes, "version")
		assert.Equal(t, "17.3", got.Changed[0].Changes["version"].From)
		assert.Equal(t, "17.6", got.Changed[0].Changes["version"].To)
		assert.NotContains(t, got.Changed[0].Changes, "id", "id is excluded by default")
	})

	t.Run("unkeyed shows a change as remove plus add", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices")
		assert.Equal(t, 2, got.Counts.Added)
		assert.Equal(t, 1, got.Counts.Removed)
		assert.Equal(t, 0, got.Counts.Changed)
	})

	t.Run("exclude nothing", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices", "--keys", "hostname", "--exclude", "")
		assert.Equal(t, 2, got.Counts.Changed, "every id differs")
	})

	t.Run("include", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices", "--keys", "hostname", "--include", "vendor")
		assert.Equal(t, 0, got.Counts.Changed)
		assert.Equal(t, 1, got.Counts.Added)
	})

	t.Run("reversed pair", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices", "--keys", "hostname", "--a", "s2", "--b", "s1")
		assert.Equal(t, "s2", got.SnapshotA)
		assert.Equal(t, "s1", got.SnapshotB)
		assert.Equal(t, 0, got.Counts.Added)
		assert.Equal(t, 1, got.Counts.Removed)
	})

	t.Run("text output", func(t *testing.T) {
		env := newTestEnv(t)

		out := env.run("compare", "inventory.devices", "--keys", "hostname")
		env.contains(out, "--- inventory.devices @ s1")
		env.contains(out, "+++ inventory.devices @ s2")
		env.contains(out, "+ ")
		env.contains(out, "dist-1")
		env.contains(out, "version: 17.3 -> 17.6")
		env.contains(out, "1 added, 0 removed, 1 changed")
		assert.NotContains(t, out, "\033[", "no colour when not a terminal")
	})

	t.Run("filters apply to both snapshots", func(t *testing.T) {
		env := newTestEnv(t)

		var got compareOutput
		env.runJSON(&got, "compare", "inventory.devices", "--keys", "hostname",
			"--filter", `{"vendor": ["eq", "juniper"]}`)
		assert.Equal(t, 1, got.Counts.RecordsA)
		assert.Equal(t, 1, got.Counts.RecordsB)
		assert.Empty(t, got.Changed)
	})
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		contain string
	}{
		{"same snapshot", []string{"compare", "inventory.devices", "--a", "s2", "--b", "$last"}, "cannot compare a snapshot with itself"},
		{"unknown snapshot", []string{"compare", "inventory.devices", "--a", "nope"}, "unknown snapshot"},
		{"unknown table", []string{"compare", "inventory.nope"}, "unknown table"},
		{"duplicate key", []string{"compare", "inventory.devices", "--keys", "siteName"}, "duplicate key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			out, err := env.runErr(tc.args...)
			assert.Error(t, err)
			env.contains(out, tc.contain)
		})
	}
}

func TestRoutesDiff(t *testing.T) {
	env := newTestEnv(t)

	var got struct {
		SnapshotA string   `json:"snapshot_a_id"`
		SnapshotB string   `json:"snapshot_b_id"`
		Added     []string `json:"added"`
		Removed   []string `json:"removed"`
		Changed   []struct {
			Route   string         `json:"route"`
			Changes map[string]any `json:"changes"`
		} `json:"changed"`
	}
	env.runJSON(&got, "routes-diff")
	assert.Equal(t, "s1", got.SnapshotA)
	assert.Equal(t, "s2", got.SnapshotB)
	assert.Empty(t, got.Added)
	assert.Equal(t, []string{"core-1||192.168.0.0/16"}, got.Removed)
	require.Len(t, got.Changed, 1)
	assert.Contains(t, got.Changed[0].Changes, "protocol")
	assert.Contains(t, got.Changed[0].Changes, "next_hop_ip")

	out := env.run("routes-diff")
	env.contains(out, "- core-1||192.168.0.0/16")
	env.contains(out, "protocol: ospf -> bgp")
}
