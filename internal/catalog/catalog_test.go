package catalog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Run("known table", func(t *testing.T) {
		tbl, err := Lookup("technology.routing.routes")
		require.NoError(t, err)
		assert.Equal(t, "networks/routes", tbl.Endpoint)
	})

	t.Run("sdk style prefix", func(t *testing.T) {
		tbl, err := Lookup(" ipf.inventory.devices ")
		require.NoError(t, err)
		assert.Equal(t, "inventory.devices", tbl.Name)
	})

	t.Run("unknown table lists valid names", func(t *testing.T) {
		_, err := Lookup("inventory.toasters")
		require.ErrorIs(t, err, ErrUnknownTable)
		assert.Contains(t, err.Error(), "inventory.devices")
		assert.Contains(t, err.Error(), "verify the table path")
	})
}

func TestCatalogIntegrity(t *testing.T) {
	seen := map[string]bool{}
	for _, tbl := range All() {
		assert.False(t, seen[tbl.Name], "duplicate table %s", tbl.Name)
		seen[tbl.Name] = true
		assert.NotEmpty(t, tbl.Endpoint, tbl.Name)
		assert.NotEmpty(t, tbl.Description, tbl.Name)
		assert.NotEmpty(t, tbl.DefaultColumns, tbl.Name)
	}
	assert.True(t, sort.StringsAreSorted(Names()))
}

func TestColumns(t *testing.T) {
	tbl, err := Lookup("inventory.devices")
	require.NoError(t, err)

	assert.Equal(t, tbl.DefaultColumns, tbl.Columns(nil))
	assert.Equal(t, []string{"hostname"}, tbl.Columns([]string{"hostname"}))
}
