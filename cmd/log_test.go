package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logRecord struct {
	Source           string         `json:"source"`
	Author           string         `json:"author"`
	Action           string         `json:"action"`
	Table            string         `json:"table"`
	Snapshot         string         `json:"snapshot"`
	ResolvedSnapshot string         `json:"resolved_snapshot"`
	Rows             int            `json:"rows"`
	Success          bool           `json:"success"`
	Error            string         `json:"error"`
	Detail           map[string]any `json:"detail"`
}

func TestLog(t *testing.T) {
	env := newTestEnv(t)

	env.run("query", "inventory.devices")
	env.run("compare", "inventory.devices", "--keys", "hostname")
	_, _ = env.runErr("query", "inventory.nope")

	var recs []logRecord
	env.runJSON(&recs, "log")
	require.GreaterOrEqual(t, len(recs), 3)

	// newest first
	assert.Equal(t, "table:query", recs[0].Source)
	assert.False(t, recs[0].Success)
	assert.Contains(t, recs[0].Error, "unknown table")

	cmp := recs[1]
	assert.Equal(t, "snapshot:compare", cmp.Source)
	assert.Equal(t, "tester", cmp.Author)
	assert.Equal(t, "inventory.devices", cmp.Table)
	assert.Equal(t, "$last", cmp.Snapshot)
	assert.Equal(t, "s2", cmp.ResolvedSnapshot)
	assert.Equal(t, "s1", cmp.Detail["baseline"])
	assert.Equal(t, 2, cmp.Rows)

	q := recs[2]
	assert.Equal(t, "table:query", q.Source)
	assert.True(t, q.Success)
	assert.Equal(t, 3, q.Rows)

	t.Run("failed only", func(t *testing.T) {
		var failed []logRecord
		env.runJSON(&failed, "log", "--failed")
		for _, r := range failed {
			assert.False(t, r.Success)
		}
	})

	t.Run("text", func(t *testing.T) {
		out := env.run("log", "-n", "1")
		env.contains(out, "table:query")
		env.contains(out, "error: ")
	})

	t.Run("bad since", func(t *testing.T) {
		_, err := env.runErr("log", "--since", "yesterday")
		assert.Error(t, err)
	})
}
