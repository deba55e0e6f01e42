package ipf_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/ipf/ipftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// httptest keeps idle keep-alive connections around until Close.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

var testSnapshots = []ipf.Snapshot{
	{ID: "snap-old", State: "loaded", Locked: true, End: 100},
	{ID: "snap-new", State: "loaded", End: 300},
	{ID: "snap-mid", State: "loaded", End: 200},
	{ID: "snap-unloaded", State: "unloaded", End: 400},
}

func TestNew(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		_, err := ipf.New(ipf.Options{Token: "x"})
		assert.ErrorIs(t, err, ipf.ErrMissingURL)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := ipf.New(ipf.Options{URL: "https://ipf.example.com"})
		assert.ErrorIs(t, err, ipf.ErrMissingToken)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := ipf.New(ipf.Options{URL: "not a url", Token: "x"})
		assert.Error(t, err)
	})

	t.Run("version prefix", func(t *testing.T) {
		c, err := ipf.New(ipf.Options{URL: "https://ipf.example.com/", Token: "x", APIVersion: "6.10"})
		require.NoError(t, err)
		assert.Equal(t, "https://ipf.example.com/api/v6.10", c.BaseURL())
	})
}

func TestResolve(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{id: ipf.AliasLast, want: "snap-new"},
		{id: ipf.AliasPrev, want: "snap-mid"},
		{id: ipf.AliasLastLocked, want: "snap-old"},
		{id: "snap-mid", want: "snap-mid"},
		{id: "snap-unloaded", want: "snap-unloaded"},
		{id: "missing", wantErr: true},
		{id: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ipf.Resolve(testSnapshots, tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ipf.ErrUnknownSnapshot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolve_NotEnoughSnapshots(t *testing.T) {
	one := []ipf.Snapshot{{ID: "only", State: "loaded", End: 1}}

	_, err := ipf.Resolve(one, ipf.AliasPrev)
	assert.ErrorIs(t, err, ipf.ErrUnknownSnapshot)

	_, err = ipf.Resolve(one, ipf.AliasLastLocked)
	assert.ErrorIs(t, err, ipf.ErrUnknownSnapshot)

	_, err = ipf.Resolve(nil, ipf.AliasLast)
	assert.ErrorIs(t, err, ipf.ErrUnknownSnapshot)
}

func TestSnapshots(t *testing.T) {
	srv := ipftest.New(t, testSnapshots...)
	c := srv.Client(t)

	snaps, err := c.Snapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 4)
	assert.Equal(t, "snap-unloaded", snaps[0].ID, "newest first")
	assert.Equal(t, "snap-old", snaps[3].ID)

	def, err := c.DefaultSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-new", def.ID)
}

func TestFetch(t *testing.T) {
	srv := ipftest.New(t, testSnapshots...)
	srv.SetTable("inventory/devices", "snap-new", []ipf.Record{
		{"id": "1", "hostname": "core-1", "vendor": "cisco"},
		{"id": "2", "hostname": "core-2", "vendor": "arista"},
		{"id": "3", "hostname": "edge-1", "vendor": "cisco"},
	})
	c := srv.Client(t)
	ctx := context.Background()

	t.Run("all rows projected to columns", func(t *testing.T) {
		rows, err := c.Fetch(ctx, "inventory/devices", ipf.Query{
			Columns:  []string{"hostname"},
			Snapshot: "snap-new",
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, ipf.Record{"hostname": "core-1"}, rows[0])
	})

	t.Run("filters forwarded", func(t *testing.T) {
		rows, err := c.Fetch(ctx, "inventory/devices", ipf.Query{
			Columns:  []string{"hostname", "vendor"},
			Filters:  ipf.Filters{"vendor": []any{"eq", "cisco"}},
			Snapshot: "snap-new",
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("limit", func(t *testing.T) {
		rows, err := c.Fetch(ctx, "inventory/devices", ipf.Query{
			Columns:  []string{"hostname"},
			Snapshot: "snap-new",
			Limit:    2,
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("unknown snapshot yields empty", func(t *testing.T) {
		rows, err := c.Fetch(ctx, "inventory/devices", ipf.Query{
			Columns:  []string{"hostname"},
			Snapshot: "snap-old",
		})
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.NotNil(t, rows)
	})

	t.Run("columns required", func(t *testing.T) {
		_, err := c.Fetch(ctx, "inventory/devices", ipf.Query{Snapshot: "snap-new"})
		assert.Error(t, err)
	})
}

func TestFetch_Paginated(t *testing.T) {
	srv := ipftest.New(t, testSnapshots...)
	total := ipf.PageSize*2 + 17
	rows := make([]ipf.Record, total)
	for i := range rows {
		rows[i] = ipf.Record{"hostname": fmt.Sprintf("dev-%05d", i)}
	}
	srv.SetTable("inventory/devices", "snap-new", rows)
	c := srv.Client(t)

	got, err := c.Fetch(context.Background(), "inventory/devices", ipf.Query{
		Columns:  []string{"hostname"},
		Snapshot: "snap-new",
	})
	require.NoError(t, err)
	require.Len(t, got, total)
	for i, r := range got {
		require.Equal(t, fmt.Sprintf("dev-%05d", i), r["hostname"], "row %d out of order", i)
	}
	assert.Len(t, srv.Requests(), 3)
}

func TestFetch_APIError(t *testing.T) {
	srv := ipftest.New(t, testSnapshots...)
	srv.SetTable("inventory/devices", "snap-new", nil)
	srv.Fail("inventory/devices", http.StatusBadGateway)
	c := srv.Client(t)

	_, err := c.Fetch(context.Background(), "inventory/devices", ipf.Query{
		Columns:  []string{"hostname"},
		Snapshot: "snap-new",
	})
	var apiErr *ipf.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, err.Error(), "simulated failure")
}

func TestUnauthorised(t *testing.T) {
	srv := ipftest.New(t, testSnapshots...)
	c, err := ipf.New(ipf.Options{URL: srv.URL, Token: "wrong", Verify: true})
	require.NoError(t, err)

	_, err = c.Snapshots(context.Background())
	var apiErr *ipf.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "invalid token")
}

func TestParseFilters(t *testing.T) {
	f, err := ipf.ParseFilters(`{"vendor": ["eq", "cisco"], "or": [{"siteName": ["like", "HQ"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"eq", "cisco"}, f["vendor"])
	assert.Len(t, f["or"], 1)

	f, err = ipf.ParseFilters("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = ipf.ParseFilters(`["eq", "cisco"]`)
	assert.Error(t, err)
}
