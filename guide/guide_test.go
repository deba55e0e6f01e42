package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	main, err := Get("")
	require.NoError(t, err)
	assert.Contains(t, main, "# ipfa")

	filters, err := Get("filters")
	require.NoError(t, err)
	assert.Contains(t, filters, "notlike")

	_, err = Get("nope")
	assert.EqualError(t, err, `guide "nope" not found`)
}

func TestList(t *testing.T) {
	names, err := List()
	require.NoError(t, err)
	assert.Equal(t, []string{"chat", "compare", "config", "filters", "serve", "snapshots"}, names)
}

func TestAgentPrompt(t *testing.T) {
	prompt, err := Get(Agent)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Do not fabricate data")
	assert.Contains(t, prompt, "ipf_set_snapshot")
}
