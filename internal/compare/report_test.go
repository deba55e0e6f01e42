package compare

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	rows  map[string][]ipf.Record // snapshot -> rows
	fail  map[string]error
	calls []ipf.Query
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, q ipf.Query) ([]ipf.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if err := f.fail[q.Snapshot]; err != nil {
		return nil, err
	}
	return f.rows[q.Snapshot], nil
}

func pair() Pair {
	return Pair{
		Target:   ipf.Snapshot{ID: "new"},
		Baseline: ipf.Snapshot{ID: "old"},
	}
}

func TestFetchPair(t *testing.T) {
	f := &fakeFetcher{rows: map[string][]ipf.Record{
		"old": {{"hostname": "a"}},
		"new": {{"hostname": "a"}, {"hostname": "b"}},
	}}

	base, target, err := FetchPair(context.Background(), f, "inventory/devices",
		ipf.Query{Columns: []string{"hostname"}, Snapshot: "ignored"}, pair())
	require.NoError(t, err)
	assert.Len(t, base, 1)
	assert.Len(t, target, 2)

	require.Len(t, f.calls, 2)
	var snaps []string
	for _, q := range f.calls {
		snaps = append(snaps, q.Snapshot)
		assert.Equal(t, []string{"hostname"}, q.Columns)
	}
	assert.ElementsMatch(t, []string{"old", "new"}, snaps)
}

func TestFetchPair_Error(t *testing.T) {
	boom := errors.New("timeout")
	f := &fakeFetcher{
		rows: map[string][]ipf.Record{"new": {}},
		fail: map[string]error{"old": boom},
	}
	_, _, err := FetchPair(context.Background(), f, "inventory/devices", ipf.Query{Columns: []string{"id"}}, pair())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "snapshot old")
}

func TestReport(t *testing.T) {
	a := devices()
	b := devices()[:2]
	b[0] = Record{"id": "9", "hostname": "core-1", "vendor": "cisco", "version": "17.6"}

	res, err := Diff(a, b, Options{KeyFields: []string{"hostname"}})
	require.NoError(t, err)

	r := Report("inventory.devices", pair(), a, b, res)
	assert.Equal(t, "old", r.SnapshotA)
	assert.Equal(t, "new", r.SnapshotB)
	assert.Equal(t, Counts{Added: 0, Removed: 1, Changed: 1, RecordsA: 3, RecordsB: 2}, r.Counts)
	assert.Equal(t, "Compared 3 inventory.devices records in old with 2 in new: 0 added, 1 removed, 1 changed", r.Message)
}

func TestColumns(t *testing.T) {
	defaults := []string{"id", "hostname", "vendor"}

	assert.Equal(t, defaults, Columns(nil, defaults, Options{}))
	assert.Equal(t, []string{"hostname", "version", "siteName"},
		Columns([]string{"hostname", "version"}, defaults, Options{
			KeyFields:     []string{"hostname", "siteName"},
			IncludeFields: []string{"version"},
		}))
}
